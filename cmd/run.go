package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yarlson/ralph-loop/cmd/internal"
	"github.com/yarlson/ralph-loop/internal/agent"
	"github.com/yarlson/ralph-loop/internal/config"
	"github.com/yarlson/ralph-loop/internal/events"
	"github.com/yarlson/ralph-loop/internal/guardrail"
	"github.com/yarlson/ralph-loop/internal/loop"
	"github.com/yarlson/ralph-loop/internal/reporter"
	"github.com/yarlson/ralph-loop/internal/review"
	"github.com/yarlson/ralph-loop/internal/scm"
	"github.com/yarlson/ralph-loop/internal/state"
)

// runFlags holds the loop flags of one command.
type runFlags struct {
	prompt     string
	promptFile string
	overrides  overrideFlags
}

// overrideFlags are the settings overrides shared by run and config.
type overrideFlags struct {
	maximumIterations  int
	completionResponse string
	stream             bool
	noStream           bool
}

func newRunCmd(a *app) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the iteration loop",
		Long:  "Invoke the agent until it returns the completion response or the iteration limit is reached.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(cmd, a, flags)
		},
	}

	addRunFlags(cmd, flags)

	return cmd
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVarP(&f.prompt, "prompt", "p", "", "prompt text")
	cmd.Flags().StringVarP(&f.promptFile, "prompt-file", "f", "", "file containing the prompt")
	addOverrideFlags(cmd, &f.overrides)
}

func addOverrideFlags(cmd *cobra.Command, f *overrideFlags) {
	cmd.Flags().IntVarP(&f.maximumIterations, "maximum-iterations", "m", 0, "maximum iterations (overrides settings)")
	cmd.Flags().StringVarP(&f.completionResponse, "completion-response", "c", "", "completion response (overrides settings)")
	cmd.Flags().BoolVar(&f.stream, "stream-agent-output", false, "stream agent output to the console")
	cmd.Flags().BoolVar(&f.noStream, "no-stream-agent-output", false, "do not stream agent output")
	cmd.MarkFlagsMutuallyExclusive("stream-agent-output", "no-stream-agent-output")
}

// configOptions builds the resolver options. Only flags set on the command
// line override the settings files.
func (a *app) configOptions(cmd *cobra.Command, prompt, promptFile string, f *overrideFlags) config.Options {
	opts := config.Options{
		SettingsPath: a.settingsPath,
		Prompt:       prompt,
		PromptFile:   promptFile,
	}

	flags := cmd.Flags()
	if flags.Changed("maximum-iterations") {
		n := f.maximumIterations
		opts.MaximumIterations = &n
	}
	if flags.Changed("completion-response") {
		s := f.completionResponse
		opts.CompletionResponse = &s
	}
	if flags.Changed("stream-agent-output") {
		b := f.stream
		opts.StreamAgentOutput = &b
	}
	if flags.Changed("no-stream-agent-output") {
		b := !f.noStream
		opts.StreamAgentOutput = &b
	}

	return opts
}

func runLoop(cmd *cobra.Command, a *app, f *runFlags) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	settings, err := config.Resolve(a.configOptions(cmd, f.prompt, f.promptFile, &f.overrides))
	if err != nil {
		return err
	}

	logger := internal.NewLogger(errOut, a.verbose)

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	layout := state.NewLayout(workDir)
	if err := layout.Ensure(); err != nil {
		return fmt.Errorf("failed to create .ralph directory: %w", err)
	}

	publisher, err := events.New(settings.Events)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Warning: events disabled: %v\n", err)
		publisher = events.Nop{}
	}
	defer func() { _ = publisher.Close() }()

	console := reporter.NewConsole(out)

	invoker := agent.NewSubprocessInvoker(settings.Agent, layout)
	invoker.SetLogger(logger)
	if settings.StreamAgentOutput {
		invoker.SetStreamOutput(out)
	}

	guardrails := guardrail.NewCommandRunner(layout)
	guardrails.SetObserver(console)
	guardrails.SetWarningOutput(errOut)
	guardrails.SetLogger(logger)

	var scmRunner loop.SCMRunner
	if settings.SCM.Enabled() {
		r := scm.NewRunner(settings.SCM, invoker, workDir)
		r.SetOutput(out)
		r.SetLogger(logger)
		scmRunner = r
	}

	var reviewer loop.Reviewer
	if settings.Reviews.Enabled() {
		r := review.NewRunner(settings.Reviews, invoker, guardrails, settings.Guardrails, settings.OutputTruncateChars)
		r.SetOutput(out)
		r.SetLogger(logger)
		reviewer = r
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// The loop only observes the signal between iterations.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			_, _ = fmt.Fprintln(out, "\nReceived interrupt signal, stopping after current iteration...")
			cancel()
		case <-ctx.Done():
		}
	}()

	controller := loop.NewController(loop.ControllerDeps{
		Settings:   settings,
		Agent:      invoker,
		Guardrails: guardrails,
		SCM:        scmRunner,
		Reviews:    reviewer,
		Publisher:  publisher,
		Progress:   console,
		Layout:     layout,
		Logger:     logger,
	})

	result := controller.Run(ctx)

	reporter.WriteSummary(out, result, internal.IsTerminal(out), internal.TerminalWidth(out))

	if result.Outcome == loop.RunOutcomeError {
		if result.Err != nil {
			return result.Err
		}
		return errors.New(result.Message)
	}

	a.exitCode = result.ExitCode()
	return nil
}
