package aws

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/DrSkyle/cloudsweep/pkg/version"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// SessionOptions selects the account, region and endpoint to talk to.
type SessionOptions struct {
	Region  string
	Profile string
	// Endpoint overrides every service endpoint (LocalStack). Falls back to
	// AWS_ENDPOINT_URL.
	Endpoint string
	Verbose  bool
	Logger   *slog.Logger
}

type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Client holds the loaded SDK config and builds the per-service bindings.
type Client struct {
	Config aws.Config
	STS    STSAPI
}

// NewClient initializes a new authenticated AWS client. Every provider call is
// attempted exactly once; the engine never retries.
func NewClient(ctx context.Context, o SessionOptions) (*Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryMaxAttempts(1),
	}
	if o.Region != "" {
		opts = append(opts, config.WithRegion(o.Region))
	}
	if o.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(o.Profile))
	}

	endpoint := o.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv("AWS_ENDPOINT_URL")
	}
	if endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	Instrument(&cfg, o.Verbose, o.Logger)

	return &Client{
		Config: cfg,
		STS:    sts.NewFromConfig(cfg),
	}, nil
}

// Instrument adds the user agent and, when verbose, a per-call log line to cfg.
func Instrument(cfg *aws.Config, verbose bool, logger *slog.Logger) {
	cfg.APIOptions = append(cfg.APIOptions, func(stack *middleware.Stack) error {
		return stack.Build.Add(middleware.BuildMiddlewareFunc("CloudSweepUserAgent", func(ctx context.Context, input middleware.BuildInput, next middleware.BuildHandler) (
			middleware.BuildOutput, middleware.Metadata, error,
		) {
			if req, ok := input.Request.(*smithyhttp.Request); ok {
				ua := req.Header.Get("User-Agent")
				if ua == "" {
					ua = "aws-sdk-go-v2"
				}
				req.Header.Set("User-Agent", fmt.Sprintf("%s %s/%s", ua, version.AppName, version.Current))
			}
			return next.HandleBuild(ctx, input)
		}), middleware.After)
	})

	if !verbose {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.APIOptions = append(cfg.APIOptions, func(stack *middleware.Stack) error {
		return stack.Initialize.Add(middleware.InitializeMiddlewareFunc("CloudSweepCallLogger", func(ctx context.Context, input middleware.InitializeInput, next middleware.InitializeHandler) (
			middleware.InitializeOutput, middleware.Metadata, error,
		) {
			logger.Info("AWS API call", "service", middleware.GetServiceID(ctx), "operation", middleware.GetOperationName(ctx))
			return next.HandleInitialize(ctx, input)
		}), middleware.Before)
	})
}

// VerifyIdentity checks the credentials with one STS call and returns the
// account they belong to.
func (c *Client) VerifyIdentity(ctx context.Context) (string, error) {
	result, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	return aws.ToString(result.Account), nil
}

func (c *Client) EC2() *EC2 { return &EC2{Client: ec2.NewFromConfig(c.Config)} }

func (c *Client) S3() *S3 { return &S3{Client: c.S3Client()} }

// S3Client is the raw S3 client, also used for report and tombstone storage.
// LocalStack and other endpoint overrides only serve path-style requests.
func (c *Client) S3Client() *s3.Client {
	return s3.NewFromConfig(c.Config, func(o *s3.Options) {
		o.UsePathStyle = c.Config.BaseEndpoint != nil
	})
}

func (c *Client) Lambda() *Lambda { return &Lambda{Client: lambda.NewFromConfig(c.Config)} }

func (c *Client) IAM() *IAM { return &IAM{Client: iam.NewFromConfig(c.Config)} }

func (c *Client) RDS() *RDS { return &RDS{Client: rds.NewFromConfig(c.Config)} }

func (c *Client) Route53() *Route53 { return &Route53{Client: route53.NewFromConfig(c.Config)} }

func (c *Client) CloudWatch() *CloudWatch {
	return &CloudWatch{Client: cloudwatch.NewFromConfig(c.Config)}
}

func (c *Client) Logs() *Logs { return &Logs{Client: cloudwatchlogs.NewFromConfig(c.Config)} }

func (c *Client) ECR() *ECR { return &ECR{Client: ecr.NewFromConfig(c.Config)} }

func (c *Client) Billing() *Billing {
	return &Billing{Client: costexplorer.NewFromConfig(c.Config)}
}

// Tables exports DynamoDB tables into S3.
func (c *Client) Tables() *TableExporter {
	return &TableExporter{DB: dynamodb.NewFromConfig(c.Config), S3: c.S3Client()}
}
