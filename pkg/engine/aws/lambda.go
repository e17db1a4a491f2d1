package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// lambdaTimeLayout is the format of FunctionConfiguration.LastModified.
const lambdaTimeLayout = "2006-01-02T15:04:05.000-0700"

type LambdaAPI interface {
	ListVersionsByFunction(ctx context.Context, params *lambda.ListVersionsByFunctionInput, optFns ...func(*lambda.Options)) (*lambda.ListVersionsByFunctionOutput, error)
	ListAliases(ctx context.Context, params *lambda.ListAliasesInput, optFns ...func(*lambda.Options)) (*lambda.ListAliasesOutput, error)
	DeleteFunction(ctx context.Context, params *lambda.DeleteFunctionInput, optFns ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error)
	UpdateFunctionCode(ctx context.Context, params *lambda.UpdateFunctionCodeInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error)
}

type Lambda struct {
	Client LambdaAPI
}

// Versions lists every published version of fn, including $LATEST. Record IDs
// are "fn:version".
func (l *Lambda) Versions(fn string) engine.Lister {
	in := &lambda.ListVersionsByFunctionInput{FunctionName: aws.String(fn)}
	return lister(func() sdkPaginator[lambda.ListVersionsByFunctionOutput, lambda.Options] {
		return lambda.NewListVersionsByFunctionPaginator(l.Client, in)
	}, func(out *lambda.ListVersionsByFunctionOutput) []engine.ResourceRecord {
		recs := make([]engine.ResourceRecord, 0, len(out.Versions))
		for _, v := range out.Versions {
			ver := aws.ToString(v.Version)
			attrs := map[string]any{
				engine.AttrVersion: ver,
				engine.AttrName:    fn,
				engine.AttrSize:    v.CodeSize,
				"runtime":          string(v.Runtime),
			}
			if ts, err := time.Parse(lambdaTimeLayout, aws.ToString(v.LastModified)); err == nil {
				attrs[engine.AttrCreatedAt] = ts
			}
			recs = append(recs, engine.NewRecord(fn+":"+ver, KindFunctionVer, attrs))
		}
		return recs
	})
}

// AliasedVersions returns the set of versions that at least one alias of fn
// points to.
func (l *Lambda) AliasedVersions(ctx context.Context, fn string) (map[string]bool, error) {
	set := map[string]bool{}
	p := lambda.NewListAliasesPaginator(l.Client, &lambda.ListAliasesInput{FunctionName: aws.String(fn)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list aliases of %s: %w", fn, err)
		}
		for _, a := range page.Aliases {
			set[aws.ToString(a.FunctionVersion)] = true
			if a.RoutingConfig != nil {
				for ver := range a.RoutingConfig.AdditionalVersionWeights {
					set[ver] = true
				}
			}
		}
	}
	return set, nil
}

// Delete removes one function version.
func (l *Lambda) Delete(ctx context.Context, rec engine.ResourceRecord) (engine.Result, error) {
	if rec.Kind != KindFunctionVer {
		return engine.Result{}, wrongKind("lambda delete", rec)
	}
	_, err := l.Client.DeleteFunction(ctx, &lambda.DeleteFunctionInput{
		FunctionName: aws.String(rec.String(engine.AttrName)),
		Qualifier:    aws.String(rec.String(engine.AttrVersion)),
	})
	if err != nil {
		return engine.Result{}, err
	}
	return engine.Result{Ref: rec.ID}, nil
}

// UpdateCode uploads archive as the function's new deployment package.
func (l *Lambda) UpdateCode(ctx context.Context, rec engine.ResourceRecord, archive []byte) (engine.Result, error) {
	out, err := l.Client.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(rec.ID),
		ZipFile:      archive,
	})
	if err != nil {
		return engine.Result{}, err
	}
	return engine.Result{
		Ref: aws.ToString(out.FunctionArn),
		Details: map[string]string{
			"version":      aws.ToString(out.Version),
			"codeSha256":   aws.ToString(out.CodeSha256),
			"lastModified": aws.ToString(out.LastModified),
		},
	}, nil
}
