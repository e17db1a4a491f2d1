package aws

import (
	"context"
	"time"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/dustin/go-humanize"
)

// AttrRetention is present on log groups that already expire their events.
const AttrRetention = "retentionDays"

type LogsAPI interface {
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	PutRetentionPolicy(ctx context.Context, params *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error)
}

type Logs struct {
	Client LogsAPI
}

// LogGroups lists every log group, optionally restricted to a name prefix.
func (l *Logs) LogGroups(prefix string) engine.Lister {
	in := &cloudwatchlogs.DescribeLogGroupsInput{}
	if prefix != "" {
		in.LogGroupNamePrefix = aws.String(prefix)
	}
	return lister(func() sdkPaginator[cloudwatchlogs.DescribeLogGroupsOutput, cloudwatchlogs.Options] {
		return cloudwatchlogs.NewDescribeLogGroupsPaginator(l.Client, in)
	}, func(out *cloudwatchlogs.DescribeLogGroupsOutput) []engine.ResourceRecord {
		recs := make([]engine.ResourceRecord, 0, len(out.LogGroups))
		for _, g := range out.LogGroups {
			stored := aws.ToInt64(g.StoredBytes)
			attrs := map[string]any{
				engine.AttrSize: stored,
				"displaySize":   humanize.IBytes(uint64(stored)),
			}
			if g.RetentionInDays != nil {
				attrs[AttrRetention] = *g.RetentionInDays
			}
			if g.CreationTime != nil {
				attrs[engine.AttrCreatedAt] = time.UnixMilli(*g.CreationTime).UTC()
			}
			recs = append(recs, engine.NewRecord(aws.ToString(g.LogGroupName), KindLogGroup, attrs))
		}
		return recs
	})
}

func (l *Logs) SetRetention(ctx context.Context, rec engine.ResourceRecord, days int32) (engine.Result, error) {
	_, err := l.Client.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    aws.String(rec.ID),
		RetentionInDays: aws.Int32(days),
	})
	if err != nil {
		return engine.Result{}, err
	}
	return engine.Result{Ref: rec.ID}, nil
}
