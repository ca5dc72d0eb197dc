// Package collector runs git against a repository and folds its output into
// a stats.Statistics model. Expensive per-tree and per-blob counts go through
// a persistent cache first; only misses are resolved, in parallel.
package collector

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/littlematchboy/gitstats/pkg/identity"
	"github.com/littlematchboy/gitstats/pkg/resolver"
	"github.com/littlematchboy/gitstats/pkg/runner"
	"github.com/littlematchboy/gitstats/pkg/statcache"
	"github.com/littlematchboy/gitstats/pkg/stats"
)

const tracerName = "gitstats/collector"

// Runner executes a shell pipeline inside the repository.
type Runner interface {
	Run(ctx context.Context, stages ...string) (string, error)
}

// RunnerFactory creates the Runner for a repository directory.
type RunnerFactory func(dir string) Runner

// Config is the part of the configuration the collector consumes.
type Config struct {
	Range Range
	// ProjectName overrides the repository directory name.
	ProjectName string
	// LinearLinestats follows first parents only for the line-count series.
	LinearLinestats bool
	MaxExtLength    int
	// Processes caps concurrent git invocations while resolving cache misses.
	Processes int
	// ExecTimeout bounds every resolver call. Zero means unbounded.
	ExecTimeout time.Duration
	// Location buckets timestamps. Nil means the local time zone.
	Location *time.Location
}

// Options wires a Collector.
type Options struct {
	Config  Config
	Aliases *identity.Aliases
	// Cache is read before and extended during collection. Nil means an
	// empty, private cache.
	Cache *statcache.Store
	// NewRunner defaults to a runner.Runner with LC_ALL=C.
	NewRunner RunnerFactory
	Timer     *runner.ExecTimer
	Logger    *slog.Logger
	Tracer    trace.Tracer
}

// RunStats describes one collection run.
type RunStats struct {
	Revisions       int
	Tags            int
	FilesInTree     statcache.NamespaceStats
	LinesInBlob     statcache.NamespaceStats
	Resolved        int
	ResolveFailures int
	MalformedLines  int
	EmptyPasses     int
}

// Collector gathers statistics from one repository at a time. It is not safe
// for concurrent use.
type Collector struct {
	cfg       Config
	aliases   *identity.Aliases
	cache     *statcache.Store
	newRunner RunnerFactory
	logger    *slog.Logger
	tracer    trace.Tracer
	stats     RunStats
}

// New creates a Collector.
func New(opts Options) *Collector {
	c := &Collector{
		cfg:       opts.Config,
		aliases:   opts.Aliases,
		cache:     opts.Cache,
		newRunner: opts.NewRunner,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
	}

	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer(tracerName)
	}

	if c.cache == nil {
		c.cache = statcache.New()
	}

	if c.newRunner == nil {
		timer := opts.Timer
		logger := c.logger
		timeout := c.cfg.ExecTimeout

		c.newRunner = func(dir string) Runner {
			return runner.New(runner.Options{Dir: dir, Timeout: timeout}, timer, logger)
		}
	}

	return c
}

// Cache returns the cache the collector reads and extends.
func (c *Collector) Cache() *statcache.Store {
	return c.cache
}

// Stats returns the counters of the last Collect call.
func (c *Collector) Stats() RunStats {
	return c.stats
}

// collection is the state of one Collect call.
type collection struct {
	*Collector

	run Runner
	st  *stats.Statistics
}

type subPass struct {
	name string
	fn   func(context.Context) error
}

// Collect runs every sub-pass against the repository at repoPath and returns
// the refined statistics. Failing git commands and malformed lines only
// reduce the data; the returned error is non-nil when ctx is done.
func (c *Collector) Collect(ctx context.Context, repoPath string) (*stats.Statistics, error) {
	ctx, span := c.tracer.Start(ctx, "gitstats.collect", trace.WithAttributes(attribute.String("repo", repoPath)))
	defer span.End()

	c.stats = RunStats{}
	before := map[statcache.Namespace]statcache.NamespaceStats{
		statcache.FilesInTree: c.cache.Stats(statcache.FilesInTree),
		statcache.LinesInBlob: c.cache.Stats(statcache.LinesInBlob),
	}

	col := &collection{
		Collector: c,
		run:       c.newRunner(repoPath),
		st:        stats.New(c.cfg.Location),
	}

	col.st.ProjectDir = projectDir(repoPath)

	col.st.ProjectName = c.cfg.ProjectName
	if col.st.ProjectName == "" {
		col.st.ProjectName = col.st.ProjectDir
	}

	passes := []subPass{
		{"authors", col.collectAuthorCount},
		{"tags", col.collectTags},
		{"revisions", col.collectRevisions},
		{"files", col.collectFileCounts},
		{"extensions", col.collectExtensions},
		{"linestats", col.collectLinearLineStats},
		{"author-linestats", col.collectAuthorLineStats},
	}

	for _, p := range passes {
		err := col.runPass(ctx, p)
		if err != nil {
			span.RecordError(err)

			return nil, err
		}
	}

	c.stats.FilesInTree = delta(c.cache.Stats(statcache.FilesInTree), before[statcache.FilesInTree])
	c.stats.LinesInBlob = delta(c.cache.Stats(statcache.LinesInBlob), before[statcache.LinesInBlob])

	col.st.Refine()

	span.SetAttributes(
		attribute.Int("commits", col.st.TotalCommits),
		attribute.Int("authors", len(col.st.Authors)),
	)

	return col.st, nil
}

func (col *collection) runPass(ctx context.Context, p subPass) error {
	ctx, span := col.tracer.Start(ctx, "gitstats.collect."+p.name)
	defer span.End()

	start := time.Now()

	err := p.fn(ctx)
	if err == nil {
		err = ctx.Err()
	}

	if err != nil {
		span.RecordError(err)

		return err
	}

	col.logger.DebugContext(ctx, "sub-pass done", "pass", p.name, "duration", time.Since(start))

	return nil
}

func delta(after, before statcache.NamespaceStats) statcache.NamespaceStats {
	return statcache.NamespaceStats{
		Hits:   after.Hits - before.Hits,
		Misses: after.Misses - before.Misses,
	}
}

func projectDir(repoPath string) string {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		abs = repoPath
	}

	return filepath.Base(abs)
}

// output runs a pipeline and splits its output into lines. A failed command
// or empty output is "no data" for the pass.
func (col *collection) output(ctx context.Context, pass string, stages ...string) []string {
	out, err := col.run.Run(ctx, stages...)
	if err != nil || strings.TrimSpace(out) == "" {
		col.stats.EmptyPasses++

		if err != nil {
			col.logger.WarnContext(ctx, "external command failed, no data", "pass", pass, "error", err)
		} else {
			col.logger.DebugContext(ctx, "external command returned no data", "pass", pass)
		}

		return nil
	}

	return strings.Split(out, "\n")
}

func (col *collection) malformed(ctx context.Context, pass, line string, err error) {
	col.stats.MalformedLines++
	col.logger.WarnContext(ctx, "unexpected line", "pass", pass, "line", line, "error", err)
}

func (col *collection) resolveOptions() resolver.Options {
	return resolver.Options{Workers: col.cfg.Processes, Timeout: col.cfg.ExecTimeout}
}

func (col *collection) resolveFailed(ctx context.Context, pass, key string, err error) {
	col.stats.ResolveFailures++
	col.logger.WarnContext(ctx, "lookup failed, key left unresolved", "pass", pass, "key", key, "error", err)
}
