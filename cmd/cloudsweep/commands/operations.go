package commands

import (
	"context"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/DrSkyle/cloudsweep/pkg/jobs"
	"github.com/spf13/cobra"
)

var (
	zipFile        string
	hostedZone     string
	snsTopic       string
	alarmThreshold float64
	startDate      string
	endDate        string
	costMetric     string
)

var RotateKeysCmd = &cobra.Command{
	Use:   "rotate-keys <user>",
	Short: "Delete every access key of a user, then create a new one",
	Long: `Deletes every existing access key of the IAM user and issues exactly one
replacement. The new secret is printed once and never written anywhere else.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user := args[0]
		return run(cmd, "rotate-keys", baseOptions(), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.RotateKeys(ctx, user, o)
		})
	},
}

var RDSSnapshotCmd = &cobra.Command{
	Use:   "rds-snapshot <db-instance> <snapshot-id>",
	Short: "Create a manual snapshot of an RDS instance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, snap := args[0], args[1]
		return run(cmd, "rds-snapshot", baseOptions(), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.RDSSnapshot(ctx, db, snap, o)
		})
	},
}

var SyncBucketsCmd = &cobra.Command{
	Use:   "sync-buckets <source> <destination>",
	Short: "Copy every object of one bucket into another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, dst := args[0], args[1]
		return run(cmd, "sync-buckets", baseOptions(), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.SyncBuckets(ctx, src, dst, o)
		})
	},
}

var ExportTableCmd = &cobra.Command{
	Use:   "export-table <table> <bucket> <key>",
	Short: "Export every item of a DynamoDB table to S3 as JSON",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, bucket, key := args[0], args[1], args[2]
		return run(cmd, "export-table", baseOptions(), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.ExportTable(ctx, table, bucket, key, o)
		})
	},
}

var DeployLambdaCmd = &cobra.Command{
	Use:   "deploy-lambda <function>",
	Short: "Upload a zip archive as a function's code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fn := args[0]
		return run(cmd, "deploy-lambda", baseOptions(), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.DeployLambda(ctx, fn, zipFile, o)
		})
	},
}

var DNSRecordCmd = &cobra.Command{
	Use:   "dns-record <domain> <ipv4>",
	Short: "Upsert an A record in a hosted zone",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, ip := args[0], args[1]
		return run(cmd, "dns-record", baseOptions(), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.DNSRecord(ctx, domain, ip, hostedZone, o)
		})
	},
}

var CPUAlarmCmd = &cobra.Command{
	Use:   "cpu-alarm <instance-id>",
	Short: "Create a CPU utilization alarm for an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return run(cmd, "cpu-alarm", baseOptions(), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.CPUAlarm(ctx, id, snsTopic, alarmThreshold, o)
		})
	},
}

var BillingCmd = &cobra.Command{
	Use:     "billing",
	Short:   "Report monthly cost for a date range",
	Example: "  cloudsweep billing --start-date 2024-01-01 --end-date 2024-04-01",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "billing", baseOptions(), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.Costs(ctx, startDate, endDate, costMetric, o)
		})
	},
}

func init() {
	DeployLambdaCmd.Flags().StringVar(&zipFile, "zip-file", "", "Path to the deployment package")
	_ = DeployLambdaCmd.MarkFlagRequired("zip-file")
	DNSRecordCmd.Flags().StringVar(&hostedZone, "zone", "", "Hosted zone ID")
	_ = DNSRecordCmd.MarkFlagRequired("zone")
	CPUAlarmCmd.Flags().StringVar(&snsTopic, "sns-topic", "", "SNS topic ARN notified when the alarm fires")
	CPUAlarmCmd.Flags().Float64Var(&alarmThreshold, "threshold", jobs.DefaultAlarmThreshold, "CPU percentage that triggers the alarm")
	BillingCmd.Flags().StringVar(&startDate, "start-date", "2023-01-01", "First day (YYYY-MM-DD)")
	BillingCmd.Flags().StringVar(&endDate, "end-date", "2023-01-31", "End day, exclusive (YYYY-MM-DD)")
	BillingCmd.Flags().StringVar(&costMetric, "metric", jobs.DefaultCostMetric, "Cost Explorer metric")
}
