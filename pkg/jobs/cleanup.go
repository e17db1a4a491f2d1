package jobs

import (
	"context"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/DrSkyle/cloudsweep/pkg/engine/aws"
)

const latestVersion = "$LATEST"

// Volumes deletes EBS volumes in the requested state, "available" by default.
func (s *Service) Volumes(ctx context.Context, opts Options) (*engine.BatchSummary, error) {
	if err := needs("ec2", s.Compute); err != nil {
		return nil, err
	}
	status := opts.Status
	if status == "" {
		status = "available"
	}
	filter, err := opts.selection(engine.Equals(engine.AttrStatus, status))
	if err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "volumes",
		Source: s.Compute.Volumes(status),
		Filter: filter,
		Action: engine.Delete{Via: s.Compute},
		DryRun: opts.DryRun,
	})
}

// Snapshots deletes snapshots owned by the account that are older than the
// retention period.
func (s *Service) Snapshots(ctx context.Context, opts Options) (*engine.BatchSummary, error) {
	if err := needs("ec2", s.Compute); err != nil {
		return nil, err
	}
	if opts.RetentionDays < 0 {
		return nil, engine.Configf("retention-days", "must not be negative, got %d", opts.RetentionDays)
	}
	filter, err := opts.selection(engine.OlderThan(engine.AttrCreatedAt, opts.RetentionDays, opts.now()))
	if err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "snapshots",
		Source: s.Compute.Snapshots(),
		Filter: filter,
		Action: engine.Delete{Via: s.Compute},
		DryRun: opts.DryRun,
	})
}

// Objects deletes objects of bucket last modified more than RetentionDays ago.
func (s *Service) Objects(ctx context.Context, bucket string, opts Options) (*engine.BatchSummary, error) {
	if err := needs("s3", s.Storage); err != nil {
		return nil, err
	}
	if err := requireArg("bucket", bucket); err != nil {
		return nil, err
	}
	filter, err := opts.selection(engine.OlderThan(engine.AttrCreatedAt, opts.RetentionDays, opts.now()))
	if err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "objects",
		Source: s.Storage.Objects(bucket),
		Filter: filter,
		Action: engine.Delete{Via: s.Storage},
		DryRun: opts.DryRun,
	})
}

// LambdaVersions deletes every published version of fn except $LATEST.
// With keepAliased, versions an alias routes to are kept as well; the alias
// set is read before anything is listed.
func (s *Service) LambdaVersions(ctx context.Context, fn string, keepAliased bool, opts Options) (*engine.BatchSummary, error) {
	if err := needs("lambda", s.Functions); err != nil {
		return nil, err
	}
	if err := requireArg("function", fn); err != nil {
		return nil, err
	}
	preds := []engine.Predicate{engine.Excluding(engine.AttrVersion, latestVersion)}
	if keepAliased {
		aliased, err := s.Functions.AliasedVersions(ctx, fn)
		if err != nil {
			return nil, &engine.ListingError{Job: "lambda-versions", Err: err}
		}
		preds = append(preds, engine.NotIn(engine.AttrVersion, aliased, "is referenced by an alias"))
	}
	filter, err := opts.selection(preds...)
	if err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "lambda-versions",
		Source: s.Functions.Versions(fn),
		Filter: filter,
		Action: engine.Delete{Via: s.Functions},
		DryRun: opts.DryRun,
	})
}

// UntaggedImages deletes untagged images of repo pushed more than
// RetentionDays ago.
func (s *Service) UntaggedImages(ctx context.Context, repo string, opts Options) (*engine.BatchSummary, error) {
	if err := needs("ecr", s.Registry); err != nil {
		return nil, err
	}
	if err := requireArg("repository", repo); err != nil {
		return nil, err
	}
	filter, err := opts.selection(engine.OlderThan(engine.AttrCreatedAt, opts.RetentionDays, opts.now()))
	if err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "ecr-images",
		Source: s.Registry.UntaggedImages(repo),
		Filter: filter,
		Action: engine.Delete{Via: s.Registry},
		DryRun: opts.DryRun,
	})
}

// validRetention lists the values PutRetentionPolicy accepts.
var validRetention = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 14: true, 30: true, 60: true, 90: true,
	120: true, 150: true, 180: true, 365: true, 400: true, 545: true, 731: true,
	1096: true, 1827: true, 2192: true, 2557: true, 2922: true, 3288: true, 3653: true,
}

// LogRetention sets a retention policy on log groups that keep events forever.
func (s *Service) LogRetention(ctx context.Context, prefix string, opts Options) (*engine.BatchSummary, error) {
	if err := needs("logs", s.Logs); err != nil {
		return nil, err
	}
	if !validRetention[opts.RetentionDays] {
		return nil, engine.Configf("retention-days", "%d is not a CloudWatch Logs retention period", opts.RetentionDays)
	}
	filter, err := opts.selection(engine.Missing(aws.AttrRetention))
	if err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "log-retention",
		Source: s.Logs.LogGroups(prefix),
		Filter: filter,
		Action: engine.SetRetention{Days: int32(opts.RetentionDays), Via: s.Logs},
		DryRun: opts.DryRun,
	})
}
