package guardrail

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/yarlson/ralph-loop/internal/config"
	"github.com/yarlson/ralph-loop/internal/shell"
	"github.com/yarlson/ralph-loop/internal/state"
)

// ExecFunc runs a single command. shell.Run is the default.
type ExecFunc func(ctx context.Context, c shell.Command) (shell.Result, error)

// CommandRunner implements Runner by executing each guardrail through the
// platform shell and persisting its output under the .ralph directory.
type CommandRunner struct {
	layout   state.Layout
	workDir  string
	exec     ExecFunc
	observer Observer
	warnOut  io.Writer
	logger   *slog.Logger
}

// NewCommandRunner creates a CommandRunner writing logs into layout.
// Commands run in layout.Root, or the current directory if it is empty.
func NewCommandRunner(layout state.Layout) *CommandRunner {
	return &CommandRunner{
		layout:  layout,
		workDir: layout.Root,
		exec:    shell.Run,
		warnOut: io.Discard,
		logger:  slog.New(slog.DiscardHandler),
	}
}

// SetExec replaces the command executor.
func (r *CommandRunner) SetExec(fn ExecFunc) {
	r.exec = fn
}

// SetObserver sets the observer notified around each guardrail.
func (r *CommandRunner) SetObserver(o Observer) {
	r.observer = o
}

// SetWarningOutput sets where log write warnings are printed.
func (r *CommandRunner) SetWarningOutput(w io.Writer) {
	r.warnOut = w
}

// SetLogger sets the diagnostics logger.
func (r *CommandRunner) SetLogger(l *slog.Logger) {
	r.logger = l
}

// Check runs the guardrails sequentially. Every guardrail runs regardless of
// earlier failures; start failures are recorded as exit code -1.
func (r *CommandRunner) Check(ctx context.Context, specs []config.Guardrail, iteration int) []Result {
	results := make([]Result, 0, len(specs))
	slugs := newSlugSet()

	for i, spec := range specs {
		if r.observer != nil {
			r.observer.GuardrailStarted(i+1, len(specs), spec.Command)
		}

		result := r.runOne(ctx, spec, iteration, slugs.unique(Slug(spec.Command)))
		results = append(results, result)

		if r.observer != nil {
			r.observer.GuardrailFinished(i+1, len(specs), result)
		}
	}

	return results
}

func (r *CommandRunner) runOne(ctx context.Context, spec config.Guardrail, iteration int, slug string) Result {
	start := time.Now()

	cmd := shell.Script(spec.Command)
	cmd.Dir = r.workDir

	res, err := r.exec(ctx, cmd)
	if err != nil {
		r.logger.Debug("guardrail did not run", "command", spec.Command, "error", err)
		res.ExitCode = -1
		if res.Output == "" {
			res.Output = err.Error()
		}
	}

	logPath := r.layout.GuardrailLogPath(iteration, slug)
	if werr := os.WriteFile(logPath, []byte(res.Output), 0644); werr != nil {
		_, _ = fmt.Fprintf(r.warnOut, "Warning: failed to write guardrail log %s: %v\n", logPath, werr)
		r.logger.Warn("guardrail log write failed", "path", logPath, "error", werr)
	}

	r.logger.Debug("guardrail finished",
		"iteration", iteration,
		"command", spec.Command,
		"exitCode", res.ExitCode,
		"logPath", logPath)

	return Result{
		Guardrail: spec,
		ExitCode:  res.ExitCode,
		Output:    res.Output,
		LogPath:   logPath,
		Duration:  time.Since(start),
	}
}

// Ensure CommandRunner implements Runner interface.
var _ Runner = (*CommandRunner)(nil)
