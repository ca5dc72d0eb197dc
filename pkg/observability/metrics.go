package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal        = "gitstats.collect.runs.total"
	metricRunDuration      = "gitstats.collect.duration.seconds"
	metricCommitsTotal     = "gitstats.collect.commits.total"
	metricExecCallsTotal   = "gitstats.exec.calls.total"
	metricExecDuration     = "gitstats.exec.duration.seconds"
	metricCacheHitsTotal   = "gitstats.cache.hits.total"
	metricCacheMissesTotal = "gitstats.cache.misses.total"
	metricResolveFailures  = "gitstats.resolver.failures.total"
	metricMalformedLines   = "gitstats.parse.malformed.total"
	metricEmptyPassesTotal = "gitstats.collect.empty_passes.total"
	attrNamespace          = "namespace"
	attrRepo               = "repo"
)

// durationBucketBoundaries covers 10ms to 600s, from tiny repositories to
// multi-minute cold-cache histories.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// metricBuilder accumulates OTel instrument creation errors,
// enabling batch construction with a single error check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	b.setErr(name, err)

	return h
}

// setErr records the first instrument creation error.
func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}

// CollectorMetrics holds OTel instruments for collection runs.
type CollectorMetrics struct {
	runs            metric.Int64Counter
	runDuration     metric.Float64Histogram
	commits         metric.Int64Counter
	execCalls       metric.Int64Counter
	execDuration    metric.Float64Histogram
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
	resolveFailures metric.Int64Counter
	malformedLines  metric.Int64Counter
	emptyPasses     metric.Int64Counter
}

// NamespaceCounts is the hit/miss tally of one cache namespace.
type NamespaceCounts struct {
	Namespace string
	Hits      int64
	Misses    int64
}

// CollectorStats holds the statistics of a single collection run,
// decoupled from collector types.
type CollectorStats struct {
	Repo            string
	Duration        time.Duration
	Commits         int64
	ExecCalls       int64
	ExecDuration    time.Duration
	Cache           []NamespaceCounts
	ResolveFailures int64
	MalformedLines  int64
	EmptyPasses     int64
}

// NewCollectorMetrics creates collector metric instruments from the given meter.
func NewCollectorMetrics(mt metric.Meter) (*CollectorMetrics, error) {
	b := &metricBuilder{meter: mt}

	m := &CollectorMetrics{
		runs:            b.counter(metricRunsTotal, "Completed collection runs", "{run}"),
		runDuration:     b.histogram(metricRunDuration, "Wall time of a collection run", "s"),
		commits:         b.counter(metricCommitsTotal, "Commits folded into statistics", "{commit}"),
		execCalls:       b.counter(metricExecCallsTotal, "External command invocations", "{call}"),
		execDuration:    b.histogram(metricExecDuration, "Time spent in external commands per run", "s"),
		cacheHits:       b.counter(metricCacheHitsTotal, "Cache hits by namespace", "{hit}"),
		cacheMisses:     b.counter(metricCacheMissesTotal, "Cache misses by namespace", "{miss}"),
		resolveFailures: b.counter(metricResolveFailures, "Cache misses left unresolved", "{key}"),
		malformedLines:  b.counter(metricMalformedLines, "Unexpected lines skipped", "{line}"),
		emptyPasses:     b.counter(metricEmptyPassesTotal, "Sub-passes that got no data", "{pass}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return m, nil
}

// RecordRun records statistics for a completed collection run.
// Safe to call on a nil receiver (no-op).
func (cm *CollectorMetrics) RecordRun(ctx context.Context, stats CollectorStats) {
	if cm == nil {
		return
	}

	repo := metric.WithAttributes(attribute.String(attrRepo, stats.Repo))

	cm.runs.Add(ctx, 1, repo)
	cm.runDuration.Record(ctx, stats.Duration.Seconds(), repo)
	cm.commits.Add(ctx, stats.Commits, repo)
	cm.execCalls.Add(ctx, stats.ExecCalls, repo)
	cm.execDuration.Record(ctx, stats.ExecDuration.Seconds(), repo)
	cm.resolveFailures.Add(ctx, stats.ResolveFailures, repo)
	cm.malformedLines.Add(ctx, stats.MalformedLines, repo)
	cm.emptyPasses.Add(ctx, stats.EmptyPasses, repo)

	for _, ns := range stats.Cache {
		attrs := metric.WithAttributes(
			attribute.String(attrRepo, stats.Repo),
			attribute.String(attrNamespace, ns.Namespace),
		)

		cm.cacheHits.Add(ctx, ns.Hits, attrs)
		cm.cacheMisses.Add(ctx, ns.Misses, attrs)
	}
}
