package commands

import (
	"context"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/DrSkyle/cloudsweep/pkg/jobs"
	"github.com/spf13/cobra"
)

var (
	volumeStatus  string
	retentionDays int
	keepAliased   bool
)

// withDays applies --days when it was given; otherwise retention_days from
// the config wins.
func withDays(cmd *cobra.Command, opts jobs.Options) jobs.Options {
	if cmd.Flags().Changed("days") {
		opts.RetentionDays = retentionDays
	}
	return opts
}

func addDaysFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().IntVar(&retentionDays, "days", 0, usage+" (default retention_days from config, 30)")
}

var VolumesCmd = &cobra.Command{
	Use:     "volumes",
	Short:   "Delete unattached EBS volumes",
	Example: "  cloudsweep volumes --dry-run\n  cloudsweep volumes --status available --yes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := baseOptions()
		opts.Status = volumeStatus
		return run(cmd, "volumes", opts, func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.Volumes(ctx, o)
		})
	},
}

var SnapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Delete EBS snapshots older than the retention period",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "snapshots", withDays(cmd, baseOptions()), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.Snapshots(ctx, o)
		})
	},
}

var ObjectsCmd = &cobra.Command{
	Use:   "objects <bucket>",
	Short: "Delete S3 objects older than the retention period",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket := args[0]
		return run(cmd, "objects", withDays(cmd, baseOptions()), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.Objects(ctx, bucket, o)
		})
	},
}

var LambdaVersionsCmd = &cobra.Command{
	Use:   "lambda-versions <function>",
	Short: "Delete every published version of a function except $LATEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fn := args[0]
		return run(cmd, "lambda-versions", baseOptions(), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.LambdaVersions(ctx, fn, keepAliased, o)
		})
	},
}

var ECRImagesCmd = &cobra.Command{
	Use:   "ecr-images <repository>",
	Short: "Delete untagged ECR images older than the retention period",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := args[0]
		return run(cmd, "ecr-images", withDays(cmd, baseOptions()), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.UntaggedImages(ctx, repo, o)
		})
	},
}

var logGroupPrefix string

var LogRetentionCmd = &cobra.Command{
	Use:   "log-retention",
	Short: "Set a retention period on log groups that keep logs forever",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "log-retention", withDays(cmd, baseOptions()), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.LogRetention(ctx, logGroupPrefix, o)
		})
	},
}

func init() {
	VolumesCmd.Flags().StringVar(&volumeStatus, "status", "available", "Volume status to delete")
	addDaysFlag(SnapshotsCmd, "Minimum snapshot age in days")
	addDaysFlag(ObjectsCmd, "Minimum object age in days")
	addDaysFlag(ECRImagesCmd, "Minimum image age in days")
	addDaysFlag(LogRetentionCmd, "Retention to set, in days")
	LogRetentionCmd.Flags().StringVar(&logGroupPrefix, "prefix", "", "Only log groups whose name starts with this prefix")
	LambdaVersionsCmd.Flags().BoolVar(&keepAliased, "keep-aliased", false, "Keep versions an alias points to")
}
