package engine

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "cloudsweep/engine"

// Job is one bulk maintenance pass.
type Job struct {
	Name   string
	Source Lister
	// Filter defaults to selecting every record.
	Filter Predicate
	Action Action
	DryRun bool
}

// RotationJob revokes every existing credential of Principal and then issues
// exactly one new one.
type RotationJob struct {
	Name      string
	Principal ResourceRecord
	Existing  Lister
	Revoke    Action
	Issue     Action
	DryRun    bool
}

// Observer is called with every outcome as soon as it is produced.
type Observer func(ActionOutcome)

// Runner drives Lister -> Predicate -> Executor and aggregates the result.
type Runner struct {
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Executor *Executor

	observer  Observer
	outcomes  metric.Int64Counter
	preflight Preflight
	cleared   bool
}

// NewRunner builds a runner. Options are applied in order.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger:   slog.Default(),
		Tracer:   otel.Tracer(tracerName),
		Executor: &Executor{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Executor.Logger = r.Logger
	r.Executor.Tracer = r.Tracer

	counter, err := otel.Meter(tracerName).Int64Counter("cloudsweep.outcomes",
		metric.WithDescription("Action outcomes by status"))
	if err != nil {
		r.Logger.Warn("Outcome counter unavailable", "error", err)
	}
	r.outcomes = counter
	return r
}

// Run lists the whole source before executing anything, so a listing failure
// never leaves the account half-processed. Per-item failures are recorded in
// the summary and never returned as errors.
func (r *Runner) Run(ctx context.Context, job Job) (*BatchSummary, error) {
	ctx, span := r.Tracer.Start(ctx, "Runner.Run", trace.WithAttributes(
		attribute.String("job", job.Name),
		attribute.Bool("dry_run", job.DryRun),
	))
	defer span.End()

	summary := &BatchSummary{Job: job.Name, DryRun: job.DryRun, Phase: PhaseListing}
	if job.Source == nil {
		return nil, Configf("job", "%s has no source", job.Name)
	}
	if job.Action == nil {
		return nil, Configf("job", "%s has no action", job.Name)
	}
	if err := r.clear(ctx); err != nil {
		return nil, err
	}

	records, err := Drain(ctx, job.Source.List())
	if err != nil {
		summary.Phase = PhaseFatal
		summary.settle()
		lerr := &ListingError{Job: job.Name, Err: err}
		span.RecordError(lerr)
		span.SetStatus(codes.Error, "listing failed")
		r.Logger.Error("Listing failed", "job", job.Name, "error", err)
		return summary, lerr
	}
	summary.Listed = len(records)

	summary.Phase = PhaseFiltering
	filter := job.Filter
	if filter == nil {
		filter = Always("selected")
	}
	seen := make(map[string]bool, len(records))
	var candidates []Candidate
	for _, rec := range records {
		if seen[rec.ID] {
			summary.skip(rec.ID, "duplicate")
			continue
		}
		seen[rec.ID] = true
		v := filter(rec)
		if !v.Match {
			summary.skip(rec.ID, v.Reason)
			continue
		}
		candidates = append(candidates, Candidate{Record: rec, Reason: v.Reason})
	}
	r.Logger.Debug("Filtered listing", "job", job.Name, "listed", summary.Listed, "candidates", len(candidates))

	summary.Phase = PhaseExecuting
	for _, c := range candidates {
		o := r.Executor.Execute(ctx, c, job.Action, job.DryRun)
		summary.record(o)
		if r.outcomes != nil {
			r.outcomes.Add(ctx, 1, metric.WithAttributes(
				attribute.String("job", job.Name),
				attribute.String("status", o.Status.String()),
			))
		}
		if r.observer != nil {
			r.observer(o)
		}
	}

	summary.Phase = PhaseSummarizing
	summary.settle()
	span.SetAttributes(
		attribute.Int("summary.applied", summary.Applied),
		attribute.Int("summary.simulated", summary.Simulated),
		attribute.Int("summary.failed", summary.Failed),
		attribute.Int("summary.skipped", summary.Skipped),
	)
	r.Logger.Info("Run finished", "job", job.Name, "status", summary.Status.String(),
		"applied", summary.Applied, "simulated", summary.Simulated,
		"failed", summary.Failed, "skipped", summary.Skipped)
	summary.Phase = PhaseDone
	return summary, nil
}

// RunRotation revokes, then issues. Revocation failures do not stop the
// issue phase; a listing failure of existing credentials does.
func (r *Runner) RunRotation(ctx context.Context, job RotationJob) (*BatchSummary, error) {
	if err := r.clear(ctx); err != nil {
		return nil, err
	}
	revoke, err := r.Run(ctx, Job{
		Name:   job.Name + "/revoke",
		Source: job.Existing,
		Filter: Always("existing credential"),
		Action: job.Revoke,
		DryRun: job.DryRun,
	})
	if err != nil {
		return Merge(job.Name, revoke), err
	}
	issue, err := r.Run(ctx, Job{
		Name:   job.Name + "/issue",
		Source: Static(job.Principal),
		Filter: Always("replacement credential"),
		Action: job.Issue,
		DryRun: job.DryRun,
	})
	if err != nil {
		return Merge(job.Name, revoke, issue), err
	}
	return Merge(job.Name, revoke, issue), nil
}

// clear runs the preflight the first time a job reaches the runner.
func (r *Runner) clear(ctx context.Context) error {
	if r.preflight == nil || r.cleared {
		return nil
	}
	r.cleared = true
	return r.preflight(ctx)
}
