// Package cmd implements the ralph command line.
package cmd

import (
	"context"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/yarlson/ralph-loop/internal/loop"
)

// Version is set at build time.
var Version = "dev"

// app holds the state shared by all subcommands of one invocation.
type app struct {
	settingsPath string
	verbose      bool

	// exitCode is the process exit code for a command that finished
	// without error.
	exitCode int
}

// NewRootCmd creates the root command for ralph CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	flags := &runFlags{}

	rootCmd := &cobra.Command{
		Use:   "ralph",
		Short: "Iterative agent loop harness",
		Long: `Ralph repeatedly invokes a coding agent with a prompt until the agent answers
with the completion response or the iteration limit is reached.

After every agent run the configured guardrail commands are executed. Failures
are folded into the next prompt. On success the optional SCM tasks run.

Exit codes: 0 success, 1 iterations exhausted, 2 configuration error, 130 interrupted.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(cmd, a, flags)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.settingsPath, "settings", "", "settings file (default: .ralph/settings.json)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "V", false, "write diagnostic logs to stderr")
	addRunFlags(rootCmd, flags)

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newInitCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	a := &app{}
	if err := fang.Execute(ctx, newRootCmd(a), fang.WithVersion(Version)); err != nil {
		return loop.ExitError
	}
	return a.exitCode
}
