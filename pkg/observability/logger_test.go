package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/littlematchboy/gitstats/pkg/observability"
)

func logOne(t *testing.T, ctx context.Context, version string) map[string]any {
	t.Helper()

	var buf bytes.Buffer

	logger := slog.New(observability.NewRunHandler(slog.NewJSONHandler(&buf, nil), "gitstats", version))
	logger.InfoContext(ctx, "pass done", slog.String("pass", "revisions"))

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func TestRunHandler_AddsRunAndSpan(t *testing.T) {
	t.Parallel()

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = observability.WithRun(ctx, observability.Run{Repo: "/src/demo", Branch: "main"})

	record := logOne(t, ctx, "v1.2.3")

	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "/src/demo", record["repo"])
	assert.Equal(t, "main", record["branch"])
	assert.Equal(t, "gitstats", record["service"])
	assert.Equal(t, "v1.2.3", record["version"])
	assert.Equal(t, "revisions", record["pass"])
}

func TestRunHandler_PlainContext(t *testing.T) {
	t.Parallel()

	record := logOne(t, context.Background(), "")

	for _, key := range []string{"trace_id", "span_id", "repo", "branch", "version"} {
		assert.NotContains(t, record, key)
	}

	assert.Equal(t, "gitstats", record["service"])
}

func TestRunHandler_RunWithoutBranch(t *testing.T) {
	t.Parallel()

	record := logOne(t, observability.WithRun(context.Background(), observability.Run{Repo: "demo"}), "")

	assert.Equal(t, "demo", record["repo"])
	assert.NotContains(t, record, "branch")
}

func TestRunFromContext(t *testing.T) {
	t.Parallel()

	_, ok := observability.RunFromContext(context.Background())
	assert.False(t, ok)

	run, ok := observability.RunFromContext(observability.WithRun(context.Background(), observability.Run{Repo: "r", Branch: "b"}))
	require.True(t, ok)
	assert.Equal(t, observability.Run{Repo: "r", Branch: "b"}, run)
}
