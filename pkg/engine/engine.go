package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Option defines a functional configuration override.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.Logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) {
		if t != nil {
			r.Tracer = t
		}
	}
}

// WithObserver streams outcomes to fn while the run progresses.
func WithObserver(fn Observer) Option {
	return func(r *Runner) {
		r.observer = fn
	}
}

// WithTombstones saves each resource before a destructive action.
func WithTombstones(t Tombstoner) Option {
	return func(r *Runner) {
		r.Executor.Tombstones = t
	}
}

// WithAuditor records every applied mutation.
func WithAuditor(a Auditor) Option {
	return func(r *Runner) {
		r.Executor.Audit = a
	}
}

// Preflight runs once per runner, after a job's arguments are validated and
// before its first listing call. A non-nil error aborts the job.
type Preflight func(ctx context.Context) error

// WithPreflight installs the identity check and confirmation gate.
func WithPreflight(fn Preflight) Option {
	return func(r *Runner) {
		r.preflight = fn
	}
}

// NewLogger builds the process logger. Sensitive attributes are redacted in
// both formats.
func NewLogger(w io.Writer, jsonLogs bool, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: redactSensitiveData,
	}
	if jsonLogs {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Recover logs a panic with its stack and records it on a span. Use it
// deferred at the top of main.
func Recover(ctx context.Context, logger *slog.Logger) {
	if r := recover(); r != nil {
		_, span := otel.Tracer(tracerName).Start(ctx, "CriticalPanic")
		stack := debug.Stack()

		span.RecordError(fmt.Errorf("%v", r), trace.WithStackTrace(true))
		span.SetStatus(codes.Error, "CRITICAL FAILURE")
		span.SetAttributes(attribute.String("crash.reason", fmt.Sprintf("%v", r)))
		span.End()

		logger.Error("CRITICAL FAILURE", "error", r, "stack", string(stack))
		panic(r)
	}
}

// redactSensitiveData scrubs sensitive keys from logs.
func redactSensitiveData(groups []string, a slog.Attr) slog.Attr {
	sensitiveKeys := map[string]bool{
		"account": true, "password": true, "access_key": true, "token": true,
		"secret": true, "api_key": true, "private_key": true, "auth_token": true,
		"refresh_token": true, "certificate": true, "signature": true,
		"credential": true, "ssh_key": true, "connection_string": true,
		"secret_access_key": true, "webhook": true,
	}

	if sensitiveKeys[a.Key] {
		return slog.Attr{
			Key:   a.Key,
			Value: slog.StringValue("[REDACTED]"),
		}
	}
	return a
}
