// Package runner executes external command pipelines and accounts for the
// wall time spent in them.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Sentinel errors returned by Run.
var (
	// ErrNoStages is returned when Run is called without any command.
	ErrNoStages = errors.New("pipeline has no stages")
	// ErrStageStart is returned when a pipeline stage cannot be started.
	ErrStageStart = errors.New("pipeline stage failed to start")
	// ErrTimeout is returned when the pipeline exceeds its time budget.
	ErrTimeout = errors.New("pipeline timed out")
)

const (
	shellPath = "/bin/sh"
	// waitDelay bounds how long a killed stage may keep its output pipes open.
	waitDelay = time.Second
)

// Options configures a Runner.
type Options struct {
	// Dir is the working directory of every stage. Empty means the current directory.
	Dir string
	// Timeout bounds a single Run call. Zero disables the bound.
	Timeout time.Duration
	// Env is appended to the inherited environment.
	Env []string
}

// Runner runs shell pipelines (`a | b | c`) with stages connected by pipes.
type Runner struct {
	logger *slog.Logger
	timer  *ExecTimer
	opts   Options
}

// New creates a Runner. A nil timer disables time accounting, a nil logger
// discards pipeline traces.
func New(opts Options, timer *ExecTimer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Runner{
		logger: logger,
		timer:  timer,
		opts:   opts,
	}
}

// Run executes the stages as a pipeline and returns the final stage's
// standard output with trailing newlines removed. On failure the output is
// empty and callers are expected to treat it as "no data".
func (r *Runner) Run(ctx context.Context, stages ...string) (string, error) {
	if len(stages) == 0 {
		return "", ErrNoStages
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := r.runPipeline(ctx, stages)
	elapsed := time.Since(start)

	r.timer.Add(elapsed)
	r.logger.DebugContext(ctx, fmt.Sprintf("[%.5f] >> %s", elapsed.Seconds(), strings.Join(stages, " | ")))

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %s", ErrTimeout, elapsed.Round(time.Millisecond), strings.Join(stages, " | "))
		}

		return "", err
	}

	return strings.TrimRight(out, "\n"), nil
}

func (r *Runner) runPipeline(ctx context.Context, stages []string) (string, error) {
	cmds := make([]*exec.Cmd, len(stages))

	for i, stage := range stages {
		cmd := exec.CommandContext(ctx, shellPath, "-c", stage)
		cmd.Dir = r.opts.Dir
		cmd.WaitDelay = waitDelay
		cmd.Env = append(append(os.Environ(), "LC_ALL=C"), r.opts.Env...)
		cmds[i] = cmd
	}

	pipes := make([]*os.File, 0, 2*(len(cmds)-1))

	for i := 1; i < len(cmds); i++ {
		reader, writer, err := os.Pipe()
		if err != nil {
			closeFiles(pipes)

			return "", fmt.Errorf("%w: %q: %w", ErrStageStart, stages[i-1], err)
		}

		cmds[i-1].Stdout = writer
		cmds[i].Stdin = reader
		pipes = append(pipes, reader, writer)
	}

	var stdout bytes.Buffer

	cmds[len(cmds)-1].Stdout = &stdout

	started := make([]*exec.Cmd, 0, len(cmds))

	for i, cmd := range cmds {
		startErr := cmd.Start()
		if startErr != nil {
			closeFiles(pipes)
			waitAll(started)

			return "", fmt.Errorf("%w: %q: %w", ErrStageStart, stages[i], startErr)
		}

		started = append(started, cmd)
	}

	// Children hold their own descriptors; the parent's copies must go so
	// that readers see EOF and writers see a broken pipe.
	closeFiles(pipes)

	var lastErr error

	for i := len(cmds) - 1; i >= 0; i-- {
		waitErr := cmds[i].Wait()
		if i == len(cmds)-1 {
			lastErr = waitErr
		}
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if lastErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(lastErr, &exitErr) {
			return "", fmt.Errorf("wait %q: %w", stages[len(stages)-1], lastErr)
		}
		// A non-zero exit of the last stage still yields its output, the same
		// way `grep -v` exits 1 when every line is filtered.
	}

	return stdout.String(), nil
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func waitAll(cmds []*exec.Cmd) {
	for _, cmd := range cmds {
		_ = cmd.Wait()
	}
}

// ExecTimer accumulates wall time spent in external commands. It is safe for
// concurrent use; a nil *ExecTimer ignores all updates.
type ExecTimer struct {
	mu    sync.Mutex
	total time.Duration
	calls int
}

// NewExecTimer creates an empty timer.
func NewExecTimer() *ExecTimer {
	return &ExecTimer{}
}

// Add records one external invocation.
func (t *ExecTimer) Add(d time.Duration) {
	if t == nil {
		return
	}

	t.mu.Lock()
	t.total += d
	t.calls++
	t.mu.Unlock()
}

// Total returns the accumulated wall time.
func (t *ExecTimer) Total() time.Duration {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.total
}

// Calls returns the number of recorded invocations.
func (t *ExecTimer) Calls() int {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.calls
}
