// Package scm runs the source-control tasks that follow a successful run.
package scm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/yarlson/ralph-loop/internal/agent"
	"github.com/yarlson/ralph-loop/internal/config"
	"github.com/yarlson/ralph-loop/internal/shell"
)

// CommitTask is the task name that asks the agent for a commit message.
const CommitTask = "commit"

// CommitMessagePrompt is sent to the agent to obtain a commit message.
const CommitMessagePrompt = "Write a concise, imperative commit message for the current changes. Reply with only the message."

// ExecFunc runs a single command. shell.Run is the default.
type ExecFunc func(ctx context.Context, c shell.Command) (shell.Result, error)

// TaskResult records what happened to one configured task.
type TaskResult struct {
	Task     string   `json:"task"`
	Argv     []string `json:"argv,omitempty"`
	ExitCode int      `json:"exitCode"`
	Skipped  bool     `json:"skipped,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Runner executes the configured SCM tasks in order.
type Runner struct {
	cfg     *config.SCMConfig
	agent   agent.Invoker
	workDir string
	exec    ExecFunc
	out     io.Writer
	logger  *slog.Logger
}

// NewRunner creates a Runner. cfg may be nil, in which case Run does nothing.
func NewRunner(cfg *config.SCMConfig, invoker agent.Invoker, workDir string) *Runner {
	return &Runner{
		cfg:     cfg,
		agent:   invoker,
		workDir: workDir,
		exec:    shell.Run,
		out:     io.Discard,
		logger:  slog.New(slog.DiscardHandler),
	}
}

// SetOutput sets where progress lines are printed.
func (r *Runner) SetOutput(w io.Writer) {
	r.out = w
}

// SetExec replaces the command executor.
func (r *Runner) SetExec(fn ExecFunc) {
	r.exec = fn
}

// SetLogger sets the diagnostics logger.
func (r *Runner) SetLogger(l *slog.Logger) {
	r.logger = l
}

// Run executes every task in order. Task failures are reported and never
// stop later tasks. A commit task without a usable message is skipped.
func (r *Runner) Run(ctx context.Context, iteration int) []TaskResult {
	if !r.cfg.Enabled() {
		return nil
	}

	var message string
	if slices.Contains(r.cfg.Tasks, CommitTask) {
		message = r.commitMessage(ctx, iteration)
		if message == "" {
			_, _ = fmt.Fprintln(r.out, "SCM: skipping commit (no commit message returned)")
		}
	}

	results := make([]TaskResult, 0, len(r.cfg.Tasks))
	for _, task := range r.cfg.Tasks {
		if strings.TrimSpace(task) == "" {
			continue
		}
		if task == CommitTask && message == "" {
			results = append(results, TaskResult{Task: task, ExitCode: -1, Skipped: true})
			continue
		}

		args, err := TaskArgs(task, message)
		if err != nil {
			_, _ = fmt.Fprintf(r.out, "SCM: skipping %q: %v\n", task, err)
			results = append(results, TaskResult{Task: task, ExitCode: -1, Skipped: true, Error: err.Error()})
			continue
		}

		results = append(results, r.runTask(ctx, task, args))
	}
	return results
}

func (r *Runner) runTask(ctx context.Context, task string, args []string) TaskResult {
	cmd := shell.Command{Name: r.cfg.Command, Args: args, Dir: r.workDir}
	_, _ = fmt.Fprintf(r.out, "SCM: running %s\n", cmd.String())

	result := TaskResult{Task: task, Argv: cmd.Argv()}
	res, err := r.exec(ctx, cmd)
	result.ExitCode = res.ExitCode
	if err != nil {
		result.Error = err.Error()
		_, _ = fmt.Fprintf(r.out, "SCM: %s did not run: %v\n", task, err)
		return result
	}
	if res.ExitCode != 0 {
		_, _ = fmt.Fprintf(r.out, "SCM: %s exited with code %d\n", task, res.ExitCode)
	}
	r.logger.Debug("scm task finished", "task", task, "exitCode", res.ExitCode, "output", strings.TrimSpace(res.Output))
	return result
}

func (r *Runner) commitMessage(ctx context.Context, iteration int) string {
	if r.agent == nil {
		return ""
	}
	resp, err := r.agent.Invoke(ctx, CommitMessagePrompt, iteration)
	if err != nil {
		r.logger.Warn("commit message request failed", "error", err)
		return ""
	}
	message, _ := CommitMessage(resp.Output)
	return message
}

// CommitMessage returns the first non-blank line of output, trimmed.
func CommitMessage(output string) (string, bool) {
	for line := range strings.Lines(output) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}

// TaskArgs returns the arguments passed to the SCM command for task. The
// commit task becomes "commit -am <message>"; any other task is split into
// shell words.
func TaskArgs(task, message string) ([]string, error) {
	if task == CommitTask {
		return []string{"commit", "-am", message}, nil
	}
	return shell.Split(task)
}
