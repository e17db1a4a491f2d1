package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	awsbind "github.com/DrSkyle/cloudsweep/pkg/engine/aws"
	"github.com/DrSkyle/cloudsweep/pkg/engine/lazarus"
	"github.com/DrSkyle/cloudsweep/pkg/storage"
	"github.com/spf13/cobra"
)

var TombstonesCmd = &cobra.Command{
	Use:   "tombstones",
	Short: "Inspect resources saved before destructive actions",
	Long: `Lists and shows the tombstones written by --tombstones. A tombstone is the
last known attribute set of a resource, saved right before it was deleted or
terminated.`,
}

var tombstonesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List buried resources as kind/[bucket/]id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yard, err := openYard(cmd)
		if err != nil {
			return &exitStatus{code: 1, err: err}
		}
		entries, err := yard.List(cmd.Context())
		if err != nil {
			return &exitStatus{code: 1, err: fmt.Errorf("failed to list tombstones: %w", err)}
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tombstones.")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintln(cmd.OutOrStdout(), e.Ref())
		}
		return nil
	},
}

var tombstonesShowCmd = &cobra.Command{
	Use:   "show <ref|resource-id>",
	Short: "Print the saved attributes of one resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yard, err := openYard(cmd)
		if err != nil {
			return &exitStatus{code: 1, err: err}
		}
		t, err := yard.Find(cmd.Context(), args[0])
		if errors.Is(err, storage.ErrNotFound) {
			return &exitStatus{code: 1, err: fmt.Errorf("no tombstone for %s in %s", args[0], settings.Tombstones)}
		}
		if err != nil {
			return &exitStatus{code: 1, err: fmt.Errorf("failed to load tombstone %s: %w", args[0], err)}
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s)\n", t.ResourceID, t.ResourceType)
		fmt.Fprintf(out, "action: %s at %s\n", t.Action, time.Unix(t.Timestamp, 0).UTC().Format(time.RFC3339))
		if t.Region != "" {
			fmt.Fprintf(out, "region: %s\n", t.Region)
		}
		soul, err := json.MarshalIndent(t.Soul, "", "  ")
		if err != nil {
			return &exitStatus{code: 1, err: err}
		}
		fmt.Fprintln(out, string(soul))
		return nil
	},
}

// openYard only builds an AWS session when the tombstones live in S3.
func openYard(cmd *cobra.Command) (*lazarus.Yard, error) {
	target := settings.Tombstones
	if target == "" {
		return nil, fmt.Errorf("no tombstone location: pass --tombstones <dir|s3://bucket/prefix>")
	}
	var client storage.S3API
	if _, _, ok := storage.ParseS3URI(target); ok {
		c, err := awsbind.NewClient(cmd.Context(), awsbind.SessionOptions{
			Region:   settings.Region,
			Profile:  settings.Profile,
			Endpoint: settings.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		client = c.S3Client()
	}
	return lazarus.NewYard(storage.Open(target, client), settings.Region), nil
}

func init() {
	TombstonesCmd.AddCommand(tombstonesListCmd, tombstonesShowCmd)
}
