package observability_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"

	"github.com/littlematchboy/gitstats/pkg/observability"
)

func sampleStats() observability.CollectorStats {
	return observability.CollectorStats{
		Repo:         "demo",
		Duration:     2 * time.Second,
		Commits:      3,
		ExecCalls:    12,
		ExecDuration: 1500 * time.Millisecond,
		Cache: []observability.NamespaceCounts{
			{Namespace: "files-in-tree", Hits: 1, Misses: 2},
			{Namespace: "lines-in-blob", Hits: 4, Misses: 0},
		},
		ResolveFailures: 1,
		MalformedLines:  2,
	}
}

func TestCollectorMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var metrics *observability.CollectorMetrics

	assert.NotPanics(t, func() {
		metrics.RecordRun(context.Background(), sampleStats())
	})
}

func TestCollectorMetrics_Noop(t *testing.T) {
	t.Parallel()

	metrics, err := observability.NewCollectorMetrics(noopmetric.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		metrics.RecordRun(context.Background(), sampleStats())
	})
}

func TestWriteMetrics_TextExposition(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.MetricsDump = true

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = providers.Shutdown(context.Background())
	})

	metrics, err := observability.NewCollectorMetrics(providers.Meter)
	require.NoError(t, err)

	metrics.RecordRun(context.Background(), sampleStats())

	var buf bytes.Buffer

	require.NoError(t, observability.WriteMetrics(&buf, providers.Registry))

	out := buf.String()
	assert.Contains(t, out, "gitstats")
	assert.Contains(t, out, "files-in-tree")
	assert.Contains(t, out, "lines-in-blob")

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, observability.WriteMetricsFile(path, providers.Registry))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "files-in-tree")
}

func TestWriteMetrics_NoRegistry(t *testing.T) {
	t.Parallel()

	err := observability.WriteMetrics(&bytes.Buffer{}, nil)
	require.ErrorIs(t, err, observability.ErrNoRegistry)
}
