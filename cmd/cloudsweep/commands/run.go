package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/DrSkyle/cloudsweep/pkg/engine/audit"
	awsbind "github.com/DrSkyle/cloudsweep/pkg/engine/aws"
	"github.com/DrSkyle/cloudsweep/pkg/engine/lazarus"
	"github.com/DrSkyle/cloudsweep/pkg/engine/notifier"
	"github.com/DrSkyle/cloudsweep/pkg/engine/report"
	"github.com/DrSkyle/cloudsweep/pkg/jobs"
	"github.com/DrSkyle/cloudsweep/pkg/storage"
	"github.com/DrSkyle/cloudsweep/pkg/telemetry"
	"github.com/DrSkyle/cloudsweep/pkg/tui"
	"github.com/DrSkyle/cloudsweep/pkg/version"
	"github.com/spf13/cobra"
)

// exitStatus carries the process exit code out of a command.
type exitStatus struct {
	code int
	err  error
}

func (e *exitStatus) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitStatus) Unwrap() error { return e.err }

// readOnly jobs only report and never ask for confirmation.
var readOnly = map[string]bool{
	"open-security-groups": true,
	"billing":              true,
}

type jobFunc func(ctx context.Context, svc *jobs.Service, opts jobs.Options) (*engine.BatchSummary, error)

// traceWriter prints spans to stderr at debug level.
func traceWriter() io.Writer {
	if strings.EqualFold(settings.LogLevel, "debug") {
		return os.Stderr
	}
	return nil
}

// baseOptions carries the global settings every job shares.
func baseOptions() jobs.Options {
	return jobs.Options{
		DryRun:             settings.DryRun,
		RetentionDays:      settings.RetentionDays,
		CoreCountThreshold: int64(settings.CoreThreshold),
		Where:              settings.Where,
	}
}

// run executes one job end to end: session, runner with the confirmation
// gate, report, notification and exit status.
func run(cmd *cobra.Command, job string, opts jobs.Options, fn jobFunc) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	logger := engine.NewLogger(os.Stderr, settings.JSONLogs, settings.LogLevel)
	slog.SetDefault(logger)

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: version.AppName,
		Version:     version.Current,
		Endpoint:    settings.OTLPEndpoint,
		Debug:       traceWriter(),
	})
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("Failed to flush traces", "error", err)
			}
		}()
	}
	defer engine.Recover(ctx, logger)

	client, err := awsbind.NewClient(ctx, awsbind.SessionOptions{
		Region:   settings.Region,
		Profile:  settings.Profile,
		Endpoint: settings.Endpoint,
		Verbose:  settings.Verbose,
		Logger:   logger,
	})
	if err != nil {
		return &exitStatus{code: 1, err: err}
	}

	g := &gate{
		job:         job,
		ask:         !opts.DryRun && !settings.Yes && !readOnly[job],
		interactive: tui.Interactive(os.Stdin) && tui.Interactive(os.Stdout),
		identity:    client,
		prompt: func(title string, details []string) (bool, error) {
			return tui.Confirm(os.Stdin, out, title, details)
		},
	}

	runnerOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithPreflight(g.check),
		engine.WithObserver(func(o engine.ActionOutcome) {
			fmt.Fprintln(out, report.Line(o))
		}),
	}
	if settings.Tombstones != "" {
		yard := lazarus.NewYard(storage.Open(settings.Tombstones, client.S3Client()), settings.Region)
		runnerOpts = append(runnerOpts, engine.WithTombstones(yard))
	}
	if auditPath := auditLogPath(logger); auditPath != "" {
		runnerOpts = append(runnerOpts, engine.WithAuditor(audit.NewLog(auditPath)))
	}

	svc := jobs.NewService(engine.NewRunner(runnerOpts...), client)
	summary, runErr := fn(ctx, svc, opts)
	if errors.Is(runErr, engine.ErrDeclined) {
		fmt.Fprintln(out, "Nothing was changed.")
		return nil
	}

	if summary != nil {
		fmt.Fprintln(out, report.Render(summary))
		publish(ctx, logger, client, summary, notifier.Scope{Region: settings.Region, Account: g.account})
	}

	code := engine.ExitCode(summary, runErr, settings.Strict)
	if code != 0 {
		if runErr == nil {
			runErr = summary.Err(settings.Strict)
		}
		return &exitStatus{code: code, err: runErr}
	}
	return nil
}

// publish writes the report file and the Slack message. Neither changes the
// exit status.
func publish(ctx context.Context, logger *slog.Logger, client *awsbind.Client, summary *engine.BatchSummary, scope notifier.Scope) {
	if settings.Report != "" {
		format, err := report.ParseFormat(settings.ReportFormat, settings.Report)
		if err == nil {
			err = report.Save(ctx, settings.Report, client.S3Client(), summary, format)
		}
		if err != nil {
			logger.Error("Failed to save report", "target", settings.Report, "error", err)
		} else {
			logger.Info("Report saved", "target", settings.Report, "format", string(format))
		}
	}
	if settings.SlackWebhook != "" {
		slack := notifier.NewSlackClient(settings.SlackWebhook, settings.SlackChannel)
		if err := slack.SendSummary(ctx, summary, scope); err != nil {
			logger.Warn("Failed to send Slack notification", "error", err)
		}
	}
}

func auditLogPath(logger *slog.Logger) string {
	if settings.AuditLog != "" {
		return settings.AuditLog
	}
	p, err := audit.DefaultPath()
	if err != nil {
		logger.Warn("Audit log disabled", "error", err)
		return ""
	}
	return p
}
