package commands

import (
	"context"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/DrSkyle/cloudsweep/pkg/jobs"
	"github.com/spf13/cobra"
)

var (
	coreThreshold int64
	cidr          string
	instanceTags  []string
	amiName       string
)

var IdleInstancesCmd = &cobra.Command{
	Use:   "idle-instances",
	Short: "Stop running instances with fewer CPU cores than the threshold",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := baseOptions()
		if cmd.Flags().Changed("threshold") {
			opts.CoreCountThreshold = coreThreshold
		}
		return run(cmd, "idle-instances", opts, func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.IdleInstances(ctx, o)
		})
	},
}

var UnhealthyInstancesCmd = &cobra.Command{
	Use:   "unhealthy-instances",
	Short: "Reboot instances whose status check is not ok",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "unhealthy-instances", baseOptions(), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.UnhealthyInstances(ctx, o)
		})
	},
}

var OpenSecurityGroupsCmd = &cobra.Command{
	Use:   "open-security-groups",
	Short: "Report security groups with ingress open to a CIDR",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := baseOptions()
		opts.CIDR = cidr
		return run(cmd, "open-security-groups", opts, func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.OpenSecurityGroups(ctx, o)
		})
	},
}

var TagInstanceCmd = &cobra.Command{
	Use:     "tag-instance <instance-id>",
	Short:   "Apply Key=Value tags to an instance",
	Example: "  cloudsweep tag-instance i-0123 --tags Env=prod --tags Owner=ops",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := jobs.ParseTags(instanceTags); err != nil {
			return &exitStatus{code: 1, err: err}
		}
		opts := baseOptions()
		opts.Tags = instanceTags
		id := args[0]
		return run(cmd, "tag-instance", opts, func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.TagInstance(ctx, id, o)
		})
	},
}

var InstanceCmd = &cobra.Command{
	Use:   "instance <instance-id> <start|stop|restart|terminate>",
	Short: "Start, stop, restart or terminate one instance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, err := jobs.ParseInstanceAction(args[1])
		if err != nil {
			return &exitStatus{code: 1, err: err}
		}
		id := args[0]
		return run(cmd, "instance/"+action.String(), baseOptions(), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.Instance(ctx, id, action, o)
		})
	},
}

var CreateAMICmd = &cobra.Command{
	Use:   "create-ami <instance-id>",
	Short: "Create an AMI from an instance without rebooting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return run(cmd, "create-ami", baseOptions(), func(ctx context.Context, svc *jobs.Service, o jobs.Options) (*engine.BatchSummary, error) {
			return svc.CreateAMI(ctx, id, amiName, o)
		})
	},
}

func init() {
	IdleInstancesCmd.Flags().Int64Var(&coreThreshold, "threshold", 0, "Stop instances with fewer cores than this (default core_threshold from config, 5)")
	OpenSecurityGroupsCmd.Flags().StringVar(&cidr, "cidr", jobs.DefaultCIDR, "CIDR range to look for")
	TagInstanceCmd.Flags().StringArrayVar(&instanceTags, "tags", nil, "Tag in Key=Value form (repeatable)")
	CreateAMICmd.Flags().StringVar(&amiName, "name", "", "Image name")
	_ = CreateAMICmd.MarkFlagRequired("name")
}
