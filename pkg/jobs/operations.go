package jobs

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/DrSkyle/cloudsweep/pkg/engine/aws"
)

const (
	// DefaultAlarmThreshold is the CPU percentage cpu-alarm fires above.
	DefaultAlarmThreshold = 70.0
	// DefaultCostMetric is the Cost Explorer metric billing reports.
	DefaultCostMetric = "BlendedCost"

	dnsTTL   = 300
	dateOnly = "2006-01-02"
)

// RotateKeys deletes every access key of user and then creates one new key.
// Deletion failures do not prevent the new key from being issued.
func (s *Service) RotateKeys(ctx context.Context, user string, opts Options) (*engine.BatchSummary, error) {
	if err := needs("iam", s.Credentials); err != nil {
		return nil, err
	}
	if err := requireArg("user", user); err != nil {
		return nil, err
	}
	return s.runner().RunRotation(ctx, engine.RotationJob{
		Name:      "rotate-keys",
		Principal: aws.User(user),
		Existing:  s.Credentials.AccessKeys(user),
		Revoke:    engine.Delete{Via: s.Credentials},
		Issue:     engine.RotateCredential{Via: s.Credentials},
		DryRun:    opts.DryRun,
	})
}

// RDSSnapshot snapshots one database instance.
func (s *Service) RDSSnapshot(ctx context.Context, dbInstance, snapshotID string, opts Options) (*engine.BatchSummary, error) {
	if err := needs("rds", s.Databases); err != nil {
		return nil, err
	}
	if err := requireArg("db-instance", dbInstance); err != nil {
		return nil, err
	}
	if err := requireArg("snapshot", snapshotID); err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "rds-snapshot",
		Source: engine.Static(aws.DBInstance(dbInstance)),
		Action: engine.CreateSnapshot{Name: snapshotID, Via: s.Databases},
		DryRun: opts.DryRun,
	})
}

// SyncBuckets copies every object of source into dest under the same key.
// A failed copy is recorded and the remaining objects are still copied.
func (s *Service) SyncBuckets(ctx context.Context, source, dest string, opts Options) (*engine.BatchSummary, error) {
	if err := needs("s3", s.Storage); err != nil {
		return nil, err
	}
	if err := requireArg("source", source); err != nil {
		return nil, err
	}
	if err := requireArg("destination", dest); err != nil {
		return nil, err
	}
	if source == dest {
		return nil, engine.Configf("destination", "must differ from the source bucket %s", source)
	}
	filter, err := opts.selection()
	if err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "sync-buckets",
		Source: s.Storage.Objects(source),
		Filter: filter,
		Action: engine.CopyObject{DestBucket: dest, Via: s.Storage},
		DryRun: opts.DryRun,
	})
}

// ExportTable writes every item of table to s3://bucket/key as JSON. The scan
// is the listing, so a dry run still reads the table and a failed scan is fatal.
func (s *Service) ExportTable(ctx context.Context, table, bucket, key string, opts Options) (*engine.BatchSummary, error) {
	if err := needs("dynamodb", s.Tables); err != nil {
		return nil, err
	}
	for _, arg := range [][2]string{{"table", table}, {"bucket", bucket}, {"key", key}} {
		if err := requireArg(arg[0], arg[1]); err != nil {
			return nil, err
		}
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "export-table",
		Source: s.Tables.Contents(table),
		Action: engine.Export{Bucket: bucket, Key: key, Via: s.Tables},
		DryRun: opts.DryRun,
	})
}

// DeployLambda replaces the code of fn with the archive at zipPath. The
// archive is read before any provider call.
func (s *Service) DeployLambda(ctx context.Context, fn, zipPath string, opts Options) (*engine.BatchSummary, error) {
	if err := needs("lambda", s.Functions); err != nil {
		return nil, err
	}
	if err := requireArg("function", fn); err != nil {
		return nil, err
	}
	archive, err := ReadArchive(zipPath)
	if err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "deploy-lambda",
		Source: engine.Static(engine.NewRecord(fn, aws.KindFunction, map[string]any{engine.AttrName: fn})),
		Action: engine.UpdateCode{Path: zipPath, Archive: archive, Via: s.Functions},
		DryRun: opts.DryRun,
	})
}

// DNSRecord upserts an A record for domain in the hosted zone.
func (s *Service) DNSRecord(ctx context.Context, domain, ip, zoneID string, opts Options) (*engine.BatchSummary, error) {
	if err := needs("route53", s.DNS); err != nil {
		return nil, err
	}
	if err := requireArg("domain", domain); err != nil {
		return nil, err
	}
	if err := requireArg("zone", zoneID); err != nil {
		return nil, err
	}
	if parsed := net.ParseIP(ip); parsed == nil || parsed.To4() == nil {
		return nil, engine.Configf("ip", "%q is not an IPv4 address", ip)
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "dns-record",
		Source: engine.Static(aws.HostedZone(zoneID)),
		Action: engine.UpsertRecord{
			ZoneID: zoneID,
			Record: engine.DNSRecord{Name: domain, Type: "A", Value: ip, TTL: dnsTTL},
			Via:    s.DNS,
		},
		DryRun: opts.DryRun,
	})
}

// CPUAlarm creates the CPU utilization alarm of one instance. The SNS topic is
// mandatory.
func (s *Service) CPUAlarm(ctx context.Context, instanceID, topicARN string, threshold float64, opts Options) (*engine.BatchSummary, error) {
	if err := needs("cloudwatch", s.Alarms); err != nil {
		return nil, err
	}
	if err := requireArg("instance", instanceID); err != nil {
		return nil, err
	}
	if err := requireArg("sns-topic", topicARN); err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "cpu-alarm",
		Source: engine.Static(instance(instanceID)),
		Action: engine.PutAlarm{Spec: aws.CPUAlarm(instanceID, threshold, topicARN), Via: s.Alarms},
		DryRun: opts.DryRun,
	})
}

// Costs reports the cost of every month between start and end. Reporting
// never mutates, so dry-run changes nothing but the outcome status.
func (s *Service) Costs(ctx context.Context, start, end, metric string, opts Options) (*engine.BatchSummary, error) {
	if err := needs("costexplorer", s.Billing); err != nil {
		return nil, err
	}
	from, err := time.Parse(dateOnly, start)
	if err != nil {
		return nil, &engine.ConfigError{Field: "start-date", Msg: "expected YYYY-MM-DD", Err: err}
	}
	to, err := time.Parse(dateOnly, end)
	if err != nil {
		return nil, &engine.ConfigError{Field: "end-date", Msg: "expected YYYY-MM-DD", Err: err}
	}
	if !to.After(from) {
		return nil, engine.Configf("end-date", "%s is not after %s", end, start)
	}
	if metric == "" {
		metric = DefaultCostMetric
	}
	filter, err := opts.selection(costAmount)
	if err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "billing",
		Source: s.Billing.Costs(start, end, metric),
		Filter: filter,
		Action: engine.Report{},
		DryRun: opts.DryRun,
	})
}

// costAmount selects every period and carries its total as the reason.
func costAmount(rec engine.ResourceRecord) engine.Verdict {
	amount := rec.String(aws.AttrDisplayAmount)
	if amount == "" {
		amount = rec.String(aws.AttrAmount)
	}
	if amount == "" {
		return engine.Verdict{Match: true, Reason: "no cost data"}
	}
	return engine.Verdict{Match: true, Reason: fmt.Sprintf("%s %s", amount, rec.String(aws.AttrUnit))}
}
