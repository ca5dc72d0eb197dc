package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrVersion = "version"
	attrBranch  = "branch"
)

type runKey struct{}

// Run identifies the repository and branch a log record belongs to.
type Run struct {
	Repo   string
	Branch string
}

// WithRun returns a context whose log records carry run's repo and branch.
func WithRun(ctx context.Context, run Run) context.Context {
	return context.WithValue(ctx, runKey{}, run)
}

// RunFromContext returns the run stored by WithRun.
func RunFromContext(ctx context.Context) (Run, bool) {
	run, ok := ctx.Value(runKey{}).(Run)

	return run, ok
}

// RunHandler is an [slog.Handler] that adds the OpenTelemetry span ids and
// the run's repo and branch to every record logged with a context.
// service and version are attached once, at the top level.
type RunHandler struct {
	inner slog.Handler
}

// NewRunHandler wraps inner. An empty version is omitted.
func NewRunHandler(inner slog.Handler, service, version string) *RunHandler {
	attrs := []slog.Attr{slog.String(attrService, service)}
	if version != "" {
		attrs = append(attrs, slog.String(attrVersion, version))
	}

	return &RunHandler{inner: inner.WithAttrs(attrs)}
}

// Enabled delegates to the inner handler.
func (h *RunHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds span and run attributes found in ctx, then delegates.
func (h *RunHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if run, ok := RunFromContext(ctx); ok {
		record.AddAttrs(slog.String(attrRepo, run.Repo))

		if run.Branch != "" {
			record.AddAttrs(slog.String(attrBranch, run.Branch))
		}
	}

	err := h.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("log record: %w", err)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (h *RunHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RunHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (h *RunHandler) WithGroup(name string) slog.Handler {
	return &RunHandler{inner: h.inner.WithGroup(name)}
}
