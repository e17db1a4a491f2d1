package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DrSkyle/cloudsweep/pkg/config"
	"github.com/DrSkyle/cloudsweep/pkg/version"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	settings config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "cloudsweep",
	Short: "Bulk AWS maintenance runner",
	Long: `CloudSweep - Bulk AWS Maintenance

List. Filter. Act. Every command supports --dry-run.`,
	Version:       version.Current,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		settings = s
		return nil
	},
}

// globalFlags maps each persistent flag onto its settings key.
var globalFlags = map[string]string{
	"region":        "region",
	"profile":       "profile",
	"endpoint":      "endpoint",
	"dry-run":       "dry_run",
	"strict":        "strict",
	"yes":           "yes",
	"where":         "where",
	"json-logs":     "json_logs",
	"log-level":     "log_level",
	"verbose":       "verbose",
	"report":        "report",
	"report-format": "report_format",
	"tombstones":    "tombstones",
	"audit-log":     "audit_log",
	"slack-webhook": "slack_webhook",
	"slack-channel": "slack_channel",
	"otlp-endpoint": "otlp_endpoint",
}

// Execute runs the root command and exits with the run's status.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var st *exitStatus
		if errors.As(err, &st) {
			if st.err != nil {
				fmt.Fprintln(os.Stderr, errStyle.Render("Error: ")+st.err.Error())
			}
			os.Exit(st.code)
		}
		fmt.Fprintln(os.Stderr, errStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ~/"+config.DefaultConfigFileName+")")
	pf.String("region", config.DefaultRegion, "AWS Region")
	pf.String("profile", "", "AWS shared config profile")
	pf.String("endpoint", "", "Override every AWS endpoint (e.g. LocalStack)")
	pf.Bool("dry-run", false, "Report what would happen without changing anything")
	pf.Bool("strict", false, "Exit non-zero when any item fails")
	pf.BoolP("yes", "y", false, "Skip the confirmation prompt for live runs")
	pf.String("where", "", "Extra CEL filter applied to every listed resource")
	pf.Bool("json-logs", false, "Emit logs as JSON")
	pf.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	pf.BoolP("verbose", "v", false, "Log every AWS API call")
	pf.String("report", "", "Write the run report to a path or s3://bucket/key")
	pf.String("report-format", "", "Report format: json, csv or yaml (default from extension)")
	pf.String("tombstones", "", "Save resources before destructive actions to a directory or s3://bucket/prefix")
	pf.String("audit-log", "", "Audit log path (default ~/.cloudsweep/audit.log)")
	pf.String("slack-webhook", "", "Slack Webhook URL")
	pf.String("slack-channel", "", "Slack channel override")
	pf.String("otlp-endpoint", "", "OTLP HTTP endpoint for traces")

	for flag, key := range globalFlags {
		if err := viper.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})

	rootCmd.AddCommand(
		VolumesCmd,
		SnapshotsCmd,
		ObjectsCmd,
		LambdaVersionsCmd,
		IdleInstancesCmd,
		UnhealthyInstancesCmd,
		OpenSecurityGroupsCmd,
		RotateKeysCmd,
		TagInstanceCmd,
		InstanceCmd,
		CreateAMICmd,
		RDSSnapshotCmd,
		SyncBucketsCmd,
		ExportTableCmd,
		DeployLambdaCmd,
		DNSRecordCmd,
		CPUAlarmCmd,
		BillingCmd,
		ECRImagesCmd,
		LogRetentionCmd,
		TombstonesCmd,
		PermissionsCmd,
	)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, config.DefaultConfigFileName))
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: cannot read config %s: %v\n", cfgFile, err)
	}
}

var errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0055")).Bold(true)

func renderHelp(cmd *cobra.Command) {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00FF99")).
		MarginBottom(1)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("CLOUDSWEEP %s", version.Current)))
	if cmd.Long != "" {
		fmt.Fprintln(out, cmd.Long)
	} else {
		fmt.Fprintln(out, cmd.Short)
	}

	fmt.Fprintln(out, titleStyle.Render("USAGE"))
	fmt.Fprintf(out, "  %s\n\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(out, titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Fprintf(out, "  %-22s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Fprintln(out)
	}

	if cmd.Example != "" {
		fmt.Fprintln(out, titleStyle.Render("EXAMPLES"))
		fmt.Fprintln(out, cmd.Example)
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, titleStyle.Render("FLAGS"))
	visit := func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		output := fmt.Sprintf("  --%-15s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "[]" {
			output += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Fprintln(out, flagStyle.Render(output))
	}
	cmd.LocalFlags().VisitAll(visit)
	if cmd != rootCmd {
		cmd.InheritedFlags().VisitAll(visit)
	}
	fmt.Fprintln(out)
}
