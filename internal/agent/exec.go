package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/yarlson/ralph-loop/internal/config"
	"github.com/yarlson/ralph-loop/internal/shell"
	"github.com/yarlson/ralph-loop/internal/state"
)

// ExecFunc runs a single command. shell.Run is the default.
type ExecFunc func(ctx context.Context, c shell.Command) (shell.Result, error)

// SubprocessInvoker executes the agent CLI as a child process.
type SubprocessInvoker struct {
	spec   config.AgentConfig
	layout state.Layout
	stream io.Writer
	exec   ExecFunc
	logger *slog.Logger
}

// NewSubprocessInvoker creates an invoker for the given agent configuration.
// Prompt artifacts are written under layout and the agent runs in layout.Root.
func NewSubprocessInvoker(spec config.AgentConfig, layout state.Layout) *SubprocessInvoker {
	return &SubprocessInvoker{
		spec:   spec,
		layout: layout,
		exec:   shell.Run,
		logger: slog.New(slog.DiscardHandler),
	}
}

// SetStreamOutput echoes agent output to w while it runs. nil disables it.
func (i *SubprocessInvoker) SetStreamOutput(w io.Writer) {
	i.stream = w
}

// SetExec replaces the command executor.
func (i *SubprocessInvoker) SetExec(fn ExecFunc) {
	i.exec = fn
}

// SetLogger sets the diagnostics logger.
func (i *SubprocessInvoker) SetLogger(l *slog.Logger) {
	i.logger = l
}

// Invoke runs the agent once with prompt.
func (i *SubprocessInvoker) Invoke(ctx context.Context, prompt string, iteration int) (Response, error) {
	args, err := BuildArgs(i.spec)
	if err != nil {
		return Response{ExitCode: -1}, err
	}

	cmd := shell.Command{
		Name:   i.spec.Command,
		Args:   args,
		Dir:    i.layout.Root,
		Stream: i.stream,
	}

	var resp Response
	switch i.spec.Delivery {
	case config.DeliveryFile:
		path := i.layout.PromptFilePath(iteration)
		if err := os.WriteFile(path, []byte(prompt), 0644); err != nil {
			return Response{ExitCode: -1, PromptPath: path}, &ArtifactError{Path: path, Err: err}
		}
		cmd.Args = append(cmd.Args, path)
		resp.PromptPath = path
	default:
		cmd.Stdin = strings.NewReader(prompt)
	}

	i.logger.Debug("invoking agent", "iteration", iteration, "argv", cmd.String(), "delivery", i.spec.Delivery)

	res, err := i.exec(ctx, cmd)
	resp.Output = res.Output
	resp.ExitCode = res.ExitCode
	if err != nil {
		return resp, fmt.Errorf("agent %s: %w", i.spec.Command, err)
	}

	i.logger.Debug("agent exited", "iteration", iteration, "exitCode", res.ExitCode, "outputBytes", len(res.Output))
	return resp, nil
}

// BuildArgs returns the agent arguments: the non-interactive arguments for
// the agent followed by every configured flag split into shell words.
func BuildArgs(spec config.AgentConfig) ([]string, error) {
	args := make([]string, 0, len(spec.NonReplArgs)+len(spec.Flags))
	args = append(args, spec.NonReplArgs...)

	for _, flag := range spec.Flags {
		words, err := shell.Split(flag)
		if err != nil {
			return nil, fmt.Errorf("invalid agent flag: %w", err)
		}
		args = append(args, words...)
	}

	return args, nil
}

// Ensure SubprocessInvoker implements Invoker interface.
var _ Invoker = (*SubprocessInvoker)(nil)
