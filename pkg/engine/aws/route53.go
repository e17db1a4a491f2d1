package aws

import (
	"context"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

type Route53API interface {
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

type Route53 struct {
	Client Route53API
}

// HostedZone is the record for a hosted zone addressed by ID.
func HostedZone(id string) engine.ResourceRecord {
	return engine.NewRecord(id, KindHostedZone, nil)
}

// UpsertRecord creates or replaces a single-value record set.
func (r *Route53) UpsertRecord(ctx context.Context, zoneID string, rr engine.DNSRecord) (engine.Result, error) {
	out, err := r.Client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{{
				Action: types.ChangeActionUpsert,
				ResourceRecordSet: &types.ResourceRecordSet{
					Name:            aws.String(rr.Name),
					Type:            types.RRType(rr.Type),
					TTL:             aws.Int64(rr.TTL),
					ResourceRecords: []types.ResourceRecord{{Value: aws.String(rr.Value)}},
				},
			}},
		},
	})
	if err != nil {
		return engine.Result{}, err
	}
	res := engine.Result{Ref: zoneID}
	if out.ChangeInfo != nil {
		res.Ref = aws.ToString(out.ChangeInfo.Id)
		res.Details = map[string]string{"status": string(out.ChangeInfo.Status)}
	}
	return res, nil
}
