// Package aws binds the engine to aws-sdk-go-v2. Listers wrap the SDK's own
// paginators; the service types implement the engine's capability
// interfaces over narrow client interfaces so tests can substitute fakes.
package aws

import (
	"context"
	"fmt"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
)

// Resource kinds produced by the listers.
const (
	KindVolume        = "AWS::EC2::Volume"
	KindSnapshot      = "AWS::EC2::Snapshot"
	KindInstance      = "AWS::EC2::Instance"
	KindSecurityGroup = "AWS::EC2::SecurityGroup"
	KindObject        = "AWS::S3::Object"
	KindFunction      = "AWS::Lambda::Function"
	KindFunctionVer   = "AWS::Lambda::Version"
	KindAccessKey     = "AWS::IAM::AccessKey"
	KindUser          = "AWS::IAM::User"
	KindDBInstance    = "AWS::RDS::DBInstance"
	KindTable         = "AWS::DynamoDB::Table"
	KindHostedZone    = "AWS::Route53::HostedZone"
	KindCostPeriod    = "AWS::CE::CostPeriod"
	KindImage         = "AWS::ECR::Image"
	KindLogGroup      = "AWS::Logs::LogGroup"
)

// sdkPaginator is the method set every generated SDK paginator shares.
type sdkPaginator[O, Opt any] interface {
	HasMorePages() bool
	NextPage(ctx context.Context, optFns ...func(*Opt)) (*O, error)
}

type pages[O, Opt any] struct {
	p       sdkPaginator[O, Opt]
	convert func(*O) []engine.ResourceRecord
}

func (a *pages[O, Opt]) HasMorePages() bool { return a.p.HasMorePages() }

func (a *pages[O, Opt]) NextPage(ctx context.Context) ([]engine.ResourceRecord, error) {
	out, err := a.p.NextPage(ctx)
	if err != nil {
		return nil, err
	}
	return a.convert(out), nil
}

// lister builds an engine.Lister around an SDK paginator constructor. open is
// called once per listing so every run starts from the first page.
func lister[O, Opt any](open func() sdkPaginator[O, Opt], convert func(*O) []engine.ResourceRecord) engine.Lister {
	return engine.ListerFunc(func() engine.Paginator {
		return &pages[O, Opt]{p: open(), convert: convert}
	})
}

func wrongKind(op string, rec engine.ResourceRecord) error {
	return fmt.Errorf("%s does not support %s %s", op, rec.Kind, rec.ID)
}
