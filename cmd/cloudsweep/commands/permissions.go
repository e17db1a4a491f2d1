package commands

import (
	"fmt"

	"github.com/DrSkyle/cloudsweep/pkg/engine/permissions"
	"github.com/spf13/cobra"
)

var withS3Output bool

var PermissionsCmd = &cobra.Command{
	Use:     "permissions [command...]",
	Short:   "Generate a least-privilege IAM policy",
	Long:    `Prints the IAM JSON policy needed to run the given commands, or all of them.`,
	Example: "  cloudsweep permissions volumes snapshots --s3-output",
	RunE: func(cmd *cobra.Command, args []string) error {
		var features []string
		if withS3Output {
			features = append(features, "s3-output")
		}
		policy, err := permissions.GeneratePolicy(args, features)
		if err != nil {
			return &exitStatus{code: 1, err: err}
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(policy))
		return nil
	},
}

func init() {
	PermissionsCmd.Flags().BoolVar(&withS3Output, "s3-output", false, "Include access for s3:// reports and tombstones")
}
