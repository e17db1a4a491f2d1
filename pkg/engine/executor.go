package engine

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tombstoner persists the state of a resource before it is destroyed.
type Tombstoner interface {
	Bury(ctx context.Context, rec ResourceRecord, kind ActionKind) error
}

// Auditor records applied mutations.
type Auditor interface {
	Record(ctx context.Context, o ActionOutcome) error
}

// Executor applies one action to one candidate.
type Executor struct {
	Logger     *slog.Logger
	Tracer     trace.Tracer
	Tombstones Tombstoner
	Audit      Auditor
}

func (x *Executor) logger() *slog.Logger {
	if x.Logger == nil {
		return slog.Default()
	}
	return x.Logger
}

func (x *Executor) tracer() trace.Tracer {
	if x.Tracer == nil {
		return otel.Tracer(tracerName)
	}
	return x.Tracer
}

// Execute runs action against the candidate. In dry-run the capability is
// never called and the outcome is Simulated. Otherwise the capability is
// called exactly once.
func (x *Executor) Execute(ctx context.Context, c Candidate, action Action, dryRun bool) ActionOutcome {
	rec := c.Record
	out := ActionOutcome{
		ID:     rec.ID,
		Kind:   rec.Kind,
		Action: action.Kind(),
		Reason: c.Reason,
	}

	if dryRun {
		out.Status = Simulated
		out.Message = "would " + action.Describe(rec)
		return out
	}

	ctx, span := x.tracer().Start(ctx, "Executor.Execute", trace.WithAttributes(
		attribute.String("resource.id", rec.ID),
		attribute.String("resource.kind", rec.Kind),
		attribute.String("action", action.Kind().String()),
	))
	defer span.End()

	if action.Kind().Destructive() && x.Tombstones != nil {
		if err := x.Tombstones.Bury(ctx, rec, action.Kind()); err != nil {
			return x.fail(span, out, fmt.Errorf("tombstone not written, resource left intact: %w", err))
		}
	}

	res, err := action.apply(ctx, rec)
	if err != nil {
		return x.fail(span, out, err)
	}

	out.Status = Applied
	out.Ref = res.Ref
	out.Details = res.Details
	out.Message = action.Describe(rec)
	if res.Ref != "" && res.Ref != rec.ID {
		out.Message = fmt.Sprintf("%s: %s", out.Message, res.Ref)
	}

	if x.Audit != nil {
		if err := x.Audit.Record(ctx, out); err != nil {
			x.logger().Warn("Audit entry not written", "id", rec.ID, "action", out.Action.String(), "error", err)
		}
	}
	return out
}

func (x *Executor) fail(span trace.Span, out ActionOutcome, err error) ActionOutcome {
	ie := newItemError(out.ID, out.Action, err)
	span.RecordError(ie)
	span.SetStatus(codes.Error, ie.Error())
	x.logger().Error("Action failed", "id", out.ID, "action", out.Action.String(), "code", ie.Code, "error", err)
	out.Status = Failed
	out.Err = ie
	out.Message = ie.Error()
	return out
}
