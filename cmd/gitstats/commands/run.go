// Package commands implements the gitstats CLI.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/littlematchboy/gitstats/pkg/collector"
	"github.com/littlematchboy/gitstats/pkg/config"
	"github.com/littlematchboy/gitstats/pkg/identity"
	"github.com/littlematchboy/gitstats/pkg/observability"
	"github.com/littlematchboy/gitstats/pkg/persist"
	"github.com/littlematchboy/gitstats/pkg/report"
	"github.com/littlematchboy/gitstats/pkg/runner"
	"github.com/littlematchboy/gitstats/pkg/statcache"
	"github.com/littlematchboy/gitstats/pkg/stats"
	"github.com/littlematchboy/gitstats/pkg/version"
)

// Output formats of the run summary on stdout.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const (
	outputPerm = 0o755
	percent    = 100
)

var (
	// ErrUnknownFormat indicates an unsupported --format value.
	ErrUnknownFormat = errors.New("unknown output format")
	// ErrOutputPath indicates the output path cannot be created or is not a directory.
	ErrOutputPath = errors.New("output path is not usable")
)

// collectFunc runs one collection and returns the refined model together
// with the run counters.
type collectFunc func(ctx context.Context, opts collector.Options, repoPath string) (*stats.Statistics, collector.RunStats, error)

func runCollector(ctx context.Context, opts collector.Options, repoPath string) (*stats.Statistics, collector.RunStats, error) {
	c := collector.New(opts)

	st, err := c.Collect(ctx, repoPath)

	return st, c.Stats(), err
}

// branchesFunc lists the branches reported on with all_branches.
type branchesFunc func(ctx context.Context, opts collector.Options, repoPath string) ([]string, error)

func listBranches(ctx context.Context, opts collector.Options, repoPath string) ([]string, error) {
	return collector.New(opts).Branches(ctx, repoPath)
}

// RunCommand holds flags and dependencies of the root command.
type RunCommand struct {
	configPath   string
	overrides    []string
	format       string
	noColor      bool
	verbose      bool
	quiet        bool
	metricsFile  string
	otlpEndpoint string
	allBranches  bool

	collect    collectFunc
	branches   branchesFunc
	now        func() time.Time
	isTerminal func() bool
}

// NewRootCommand creates the gitstats root command.
func NewRootCommand() *cobra.Command {
	return newRootCommandWithDeps(runCollector, listBranches, time.Now, stdinIsTerminal)
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newRootCommandWithDeps(
	collect collectFunc,
	branches branchesFunc,
	now func() time.Time,
	isTerminal func() bool,
) *cobra.Command {
	rc := &RunCommand{
		format:     FormatText,
		collect:    collect,
		branches:   branches,
		now:        now,
		isTerminal: isTerminal,
	}

	cmd := &cobra.Command{
		Use:   "gitstats [flags] <gitpath> [outputpath]",
		Short: "Git history statistics generator",
		Long: `gitstats collects statistics from the history of a git repository and
writes chart data, an HTML page and a JSON/YAML dump into the output path.

When outputpath is omitted the "output" configuration value is used.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          rc.run,
	}

	cmd.Flags().StringArrayVarP(&rc.overrides, "config-override", "c", nil,
		"Override a configuration value, key=value (repeatable; merge_authors=alias,canonical)")
	cmd.Flags().StringVar(&rc.configPath, "config", "", "Config file (default: .gitstats.yaml in . or $HOME)")
	cmd.Flags().StringVar(&rc.format, "format", FormatText, "Summary format on stdout: text, json, yaml")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVarP(&rc.verbose, "verbose", "v", false, "Debug logging")
	cmd.Flags().BoolVarP(&rc.quiet, "quiet", "q", false, "Only print errors")
	cmd.Flags().StringVar(&rc.metricsFile, "metrics-file", "", "Write the run's metrics in Prometheus text format")
	cmd.Flags().StringVar(&rc.otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint for traces and metrics")
	cmd.Flags().BoolVar(&rc.allBranches, "all-branches", false,
		"Also report every local and origin branch (same as -c all_branches=1)")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	started := rc.now()

	switch rc.format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, rc.format)
	}

	if rc.noColor {
		color.NoColor = true //nolint:reassign // global switch of the color package.
	}

	cfg, err := rc.loadConfig()
	if err != nil {
		return err
	}

	providers, err := rc.initObservability(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() {
		_ = providers.Shutdown(context.Background())
	}()

	logger := providers.Logger

	outputPath := cfg.Output
	if len(args) > 1 {
		outputPath = args[1]
	}

	err = prepareOutput(outputPath)
	if err != nil {
		return err
	}

	opts, err := buildCollectorOptions(cfg)
	if err != nil {
		return err
	}

	cachePath := cfg.CacheFile(outputPath)
	opts.Cache = statcache.Load(cachePath, logger)
	opts.Timer = runner.NewExecTimer()
	opts.Logger = logger
	opts.Tracer = providers.Tracer

	ctx = observability.WithRun(ctx, observability.Run{Repo: args[0]})
	logger.InfoContext(ctx, "collecting", "output", outputPath)

	st, runStats, err := rc.collect(ctx, opts, args[0])
	if err != nil {
		return fmt.Errorf("collect %s: %w", args[0], err)
	}

	reportDir := cfg.ReportDir(outputPath, st.ProjectName, rc.now())

	if cfg.AllBranches {
		err = rc.reportBranches(ctx, cfg, opts, args[0], reportDir)
		if err != nil {
			return err
		}
	}

	saveErr := opts.Cache.Save(cachePath)
	if saveErr != nil {
		logger.WarnContext(ctx, "cache not saved", "path", cachePath, "error", saveErr)
	}

	err = rc.writeReport(cmd.OutOrStdout(), cfg, reportDir, st)
	if err != nil {
		return err
	}

	elapsed := rc.now().Sub(started)

	err = rc.recordMetrics(ctx, providers, args[0], st, runStats, opts.Timer, elapsed)
	if err != nil {
		return err
	}

	if !rc.quiet {
		printExecSummary(cmd.ErrOrStderr(), elapsed, opts.Timer.Total())

		if rc.isTerminal() {
			fmt.Fprintln(cmd.ErrOrStderr(), "Finished!")
		}
	}

	return nil
}

func (rc *RunCommand) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return nil, err
	}

	err = cfg.ApplyOverrides(rc.overrides)
	if err != nil {
		return nil, err
	}

	if rc.otlpEndpoint != "" {
		cfg.OTLPEndpoint = rc.otlpEndpoint
	}

	if rc.allBranches {
		cfg.AllBranches = true
	}

	return cfg, nil
}

func (rc *RunCommand) initObservability(cfg *config.Config, logOutput io.Writer) (observability.Providers, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return observability.Providers{}, err
	}

	switch {
	case rc.verbose:
		level = slog.LevelDebug
	case rc.quiet:
		level = slog.LevelError
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
	obsCfg.MetricsDump = rc.metricsFile != ""
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.LogJSON
	obsCfg.LogOutput = logOutput

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}

func prepareOutput(outputPath string) error {
	err := os.MkdirAll(outputPath, outputPerm)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutputPath, err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutputPath, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrOutputPath, outputPath)
	}

	return nil
}

func buildCollectorOptions(cfg *config.Config) (collector.Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return collector.Options{}, err
	}

	aliases := identity.NewAliases(cfg.MergeAuthors)

	if cfg.PeopleFile != "" {
		err = aliases.LoadPeopleFile(cfg.PeopleFile)
		if err != nil {
			return collector.Options{}, fmt.Errorf("load people file: %w", err)
		}
	}

	return collector.Options{
		Config: collector.Config{
			Range: collector.Range{
				CommitBegin: cfg.CommitBegin,
				CommitEnd:   cfg.CommitEnd,
				TimeBegin:   cfg.TimeBegin,
				TimeEnd:     cfg.TimeEnd,
			},
			ProjectName:     cfg.ProjectName,
			LinearLinestats: cfg.LinearLinestats,
			MaxExtLength:    cfg.MaxExtLength,
			Processes:       cfg.Processes,
			ExecTimeout:     cfg.ExecTimeout,
			Location:        loc,
		},
		Aliases: aliases,
	}, nil
}

// reportBranches collects every branch without checking it out and writes
// its report into <reportDir>/<branch>. The cache is shared across branches.
func (rc *RunCommand) reportBranches(
	ctx context.Context,
	cfg *config.Config,
	opts collector.Options,
	repo, reportDir string,
) error {
	branches, err := rc.branches(ctx, opts, repo)
	if err != nil {
		return fmt.Errorf("collect %s: %w", repo, err)
	}

	for _, branch := range branches {
		branchOpts := opts
		branchOpts.Config.Range = opts.Config.Range.ForBranch(branch)
		branchCtx := observability.WithRun(ctx, observability.Run{Repo: repo, Branch: branch})

		opts.Logger.InfoContext(branchCtx, "collecting branch")

		st, _, err := rc.collect(branchCtx, branchOpts, repo)
		if err != nil {
			return fmt.Errorf("collect %s branch %s: %w", repo, branch, err)
		}

		err = report.Generate(filepath.Join(reportDir, filepath.FromSlash(branch)), st, rc.reportOptions(cfg))
		if err != nil {
			return fmt.Errorf("generate report for branch %s: %w", branch, err)
		}
	}

	return nil
}

func (rc *RunCommand) reportOptions(cfg *config.Config) report.Options {
	return report.Options{
		MaxAuthors: cfg.MaxAuthors,
		MaxDomains: cfg.MaxDomains,
		AuthorsTop: cfg.AuthorsTop,
		Style:      cfg.Style,
		Version:    version.Version,
		Generated:  rc.now(),
	}
}

func (rc *RunCommand) writeReport(stdout io.Writer, cfg *config.Config, reportDir string, st *stats.Statistics) error {
	ro := rc.reportOptions(cfg)

	err := report.Generate(reportDir, st, ro)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	switch rc.format {
	case FormatJSON:
		return persist.NewJSONCodec().Encode(stdout, st)
	case FormatYAML:
		return persist.NewYAMLCodec().Encode(stdout, st)
	}

	if rc.quiet {
		return nil
	}

	return report.WriteSummary(stdout, st, ro)
}

func (rc *RunCommand) recordMetrics(
	ctx context.Context,
	providers observability.Providers,
	repo string,
	st *stats.Statistics,
	runStats collector.RunStats,
	timer *runner.ExecTimer,
	elapsed time.Duration,
) error {
	cm, err := observability.NewCollectorMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	cm.RecordRun(ctx, observability.CollectorStats{
		Repo:         repo,
		Duration:     elapsed,
		Commits:      int64(st.TotalCommits),
		ExecCalls:    int64(timer.Calls()),
		ExecDuration: timer.Total(),
		Cache: []observability.NamespaceCounts{
			{Namespace: string(statcache.FilesInTree), Hits: runStats.FilesInTree.Hits, Misses: runStats.FilesInTree.Misses},
			{Namespace: string(statcache.LinesInBlob), Hits: runStats.LinesInBlob.Hits, Misses: runStats.LinesInBlob.Misses},
		},
		ResolveFailures: int64(runStats.ResolveFailures),
		MalformedLines:  int64(runStats.MalformedLines),
		EmptyPasses:     int64(runStats.EmptyPasses),
	})

	if rc.metricsFile == "" {
		return nil
	}

	err = observability.WriteMetricsFile(rc.metricsFile, providers.Registry)
	if err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	return nil
}

func printExecSummary(w io.Writer, total, external time.Duration) {
	share := 0.0
	if total > 0 {
		share = external.Seconds() * percent / total.Seconds()
	}

	fmt.Fprintf(w, "Execution time %.5f secs, %.5f secs (%.2f %%) in external commands\n",
		total.Seconds(), external.Seconds(), share)
}
