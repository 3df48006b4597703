package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yarlson/ralph-loop/cmd/internal"
	"github.com/yarlson/ralph-loop/internal/config"
	"github.com/yarlson/ralph-loop/internal/loop"
	"github.com/yarlson/ralph-loop/internal/state"
)

// starterAgent is written by non-interactive init.
const starterAgent = config.AgentClaude

func newInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter settings file",
		Long: `Write .ralph/settings.json. When stdin is a terminal the settings are built
interactively; otherwise a starter file using the claude agent is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing settings file")

	return cmd
}

func runInit(cmd *cobra.Command, a *app, force bool) error {
	out := cmd.OutOrStdout()
	settingsPath := a.settingsPath
	if settingsPath == "" {
		settingsPath = state.Layout{}.SettingsPath()
	}

	interactive := internal.IsTerminal(cmd.InOrStdin())
	p := internal.NewPrompter(cmd.InOrStdin(), out)

	settings, err := buildInitSettings(p, out, settingsPath, interactive, force)
	if errors.Is(err, internal.ErrAborted) {
		_, _ = fmt.Fprintln(out, "Aborted.")
		a.exitCode = loop.ExitInterrupted
		return nil
	}
	if err != nil {
		return err
	}
	if settings == nil {
		_, _ = fmt.Fprintln(out, "Settings left unchanged.")
		return nil
	}

	if err := writeSettingsFile(settingsPath, settings); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Settings written to %s\n", settingsPath)
	return nil
}

// buildInitSettings returns nil settings when the user declines to
// overwrite an existing file.
func buildInitSettings(p *internal.Prompter, out io.Writer, settingsPath string, interactive, force bool) (*config.Settings, error) {
	if existing, err := os.ReadFile(settingsPath); err == nil && !force {
		if !interactive {
			return nil, fmt.Errorf("settings file already exists: %s (use --force to overwrite)", settingsPath)
		}
		_, _ = fmt.Fprintf(out, "Existing settings in %s:\n%s\n", settingsPath, strings.TrimSpace(string(existing)))
		overwrite, err := p.Confirm("Overwrite? (y/N): ", false)
		if err != nil {
			return nil, err
		}
		if !overwrite {
			return nil, nil
		}
	}

	if !interactive {
		return starterSettings(), nil
	}
	return askSettings(p)
}

func starterSettings() *config.Settings {
	settings := config.NewDefaults()
	settings.Agent = config.AgentConfig{Command: starterAgent, Flags: []string{}}
	settings.Guardrails = []config.Guardrail{}
	return &settings
}

// askSettings builds the settings from answers to the init questions.
func askSettings(p *internal.Prompter) (*config.Settings, error) {
	settings := config.NewDefaults()
	settings.Guardrails = []config.Guardrail{}

	command, err := p.AskRequired("Agent command (e.g., claude, codex, amp, or other LLM CLI): ")
	if err != nil {
		return nil, err
	}
	flags, err := p.Ask("Agent flags (comma-separated, optional): ", "")
	if err != nil {
		return nil, err
	}
	settings.Agent = config.AgentConfig{Command: command, Flags: internal.SplitList(flags)}

	settings.MaximumIterations, err = p.AskInt(fmt.Sprintf("Maximum iterations [%d]: ", config.DefaultMaximumIterations), config.DefaultMaximumIterations)
	if err != nil {
		return nil, err
	}
	settings.CompletionResponse, err = p.Ask(fmt.Sprintf("Completion response [%s]: ", config.DefaultCompletionResponse), config.DefaultCompletionResponse)
	if err != nil {
		return nil, err
	}
	settings.IncludeIterationCountInPrompt, err = p.Confirm("Include iteration count in prompt [false]: ", false)
	if err != nil {
		return nil, err
	}

	for {
		guardrailCommand, err := p.Ask("Add guardrail command (leave blank to finish): ", "")
		if err != nil {
			return nil, err
		}
		if guardrailCommand == "" {
			break
		}
		action, err := askFailAction(p)
		if err != nil {
			return nil, err
		}
		hint, err := p.Ask("  Hint (optional, guidance for agent on failure): ", "")
		if err != nil {
			return nil, err
		}
		settings.Guardrails = append(settings.Guardrails, config.Guardrail{
			Command:    guardrailCommand,
			FailAction: action,
			Hint:       hint,
		})
	}

	configureSCM, err := p.Confirm("Configure SCM? (y/N): ", false)
	if err != nil {
		return nil, err
	}
	if configureSCM {
		scmCommand, err := p.AskRequired("  SCM command (e.g., git): ")
		if err != nil {
			return nil, err
		}
		tasks, err := p.Ask("  SCM tasks (comma-separated, e.g., commit,push): ", "")
		if err != nil {
			return nil, err
		}
		settings.SCM = &config.SCMConfig{Command: scmCommand, Tasks: internal.SplitList(tasks)}
	}

	return &settings, nil
}

func askFailAction(p *internal.Prompter) (config.FailAction, error) {
	for {
		answer, err := p.AskRequired("  Fail action (APPEND|PREPEND|REPLACE): ")
		if err != nil {
			return "", err
		}
		action := config.FailAction(strings.ToUpper(answer))
		if action.IsValid() {
			return action, nil
		}
		_, _ = fmt.Fprintln(p.Output(), "Fail action must be APPEND, PREPEND, or REPLACE.")
	}
}

func writeSettingsFile(path string, settings *config.Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write settings file %s: %w", path, err)
	}
	return nil
}
