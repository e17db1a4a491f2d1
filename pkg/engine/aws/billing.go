package aws

import (
	"context"
	"strconv"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/dustin/go-humanize"
)

// Attributes of a cost period record.
const (
	AttrAmount        = "amount"
	AttrUnit          = "unit"
	AttrDisplayAmount = "displayAmount"
)

type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

type Billing struct {
	Client CostExplorerAPI
}

// Costs lists one record per period between start and end (YYYY-MM-DD, end
// exclusive) carrying the total of metric.
func (b *Billing) Costs(start, end, metric string) engine.Lister {
	return engine.CursorLister(func(ctx context.Context, cursor string) ([]engine.ResourceRecord, string, error) {
		in := &costexplorer.GetCostAndUsageInput{
			TimePeriod:  &types.DateInterval{Start: aws.String(start), End: aws.String(end)},
			Granularity: types.GranularityMonthly,
			Metrics:     []string{metric},
		}
		if cursor != "" {
			in.NextPageToken = aws.String(cursor)
		}
		out, err := b.Client.GetCostAndUsage(ctx, in)
		if err != nil {
			return nil, "", err
		}
		recs := make([]engine.ResourceRecord, 0, len(out.ResultsByTime))
		for _, r := range out.ResultsByTime {
			var from, to string
			if r.TimePeriod != nil {
				from, to = aws.ToString(r.TimePeriod.Start), aws.ToString(r.TimePeriod.End)
			}
			attrs := map[string]any{
				"start":     from,
				"end":       to,
				"metric":    metric,
				"estimated": r.Estimated,
			}
			if total, ok := r.Total[metric]; ok {
				amount := aws.ToString(total.Amount)
				attrs[AttrAmount] = amount
				attrs[AttrUnit] = aws.ToString(total.Unit)
				if f, err := strconv.ParseFloat(amount, 64); err == nil {
					attrs[AttrDisplayAmount] = humanize.CommafWithDigits(f, 2)
				}
			}
			recs = append(recs, engine.NewRecord(from+"/"+to, KindCostPeriod, attrs))
		}
		return recs, aws.ToString(out.NextPageToken), nil
	})
}
