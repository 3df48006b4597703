package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarlson/ralph-loop/cmd/internal"
	"github.com/yarlson/ralph-loop/internal/config"
)

func TestInitCommand_HasForceFlag(t *testing.T) {
	cmd := newInitCmd(&app{})
	flag := cmd.Flags().Lookup("force")
	require.NotNil(t, flag, "expected --force flag to exist")
	assert.Equal(t, "false", flag.DefValue)
}

func TestInitCommand_WritesStarterSettings(t *testing.T) {
	dir := setupWorkspace(t)

	res := executeCmd(context.Background(), "init")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Settings written to .ralph/settings.json")

	settings, err := config.Inspect(config.Options{SettingsPath: filepath.Join(dir, ".ralph", "settings.json")})
	require.NoError(t, err)
	assert.Equal(t, "claude", settings.Agent.Command)
	assert.Equal(t, config.DefaultMaximumIterations, settings.MaximumIterations)
	assert.Equal(t, config.DefaultCompletionResponse, settings.CompletionResponse)
	assert.Empty(t, settings.Guardrails)
	assert.Nil(t, settings.SCM)
}

func TestInitCommand_ExistingFile(t *testing.T) {
	dir := setupWorkspace(t)
	writeSettings(t, dir, map[string]any{"agent": map[string]any{"command": "amp"}})
	path := filepath.Join(dir, ".ralph", "settings.json")

	t.Run("refuses without force", func(t *testing.T) {
		res := executeCmd(context.Background(), "init")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "already exists")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "amp")
	})

	t.Run("overwrites with force", func(t *testing.T) {
		res := executeCmd(context.Background(), "init", "--force")
		require.NoError(t, res.err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"command": "claude"`)
	})
}

func TestInitCommand_SettingsFlag(t *testing.T) {
	dir := setupWorkspace(t)

	res := executeCmd(context.Background(), "--settings", "conf/ralph.json", "init")
	require.NoError(t, res.err)
	assert.FileExists(t, filepath.Join(dir, "conf", "ralph.json"))
}

func TestAskSettings(t *testing.T) {
	input := strings.Join([]string{
		"",
		"codex",
		"--model o3, --full-auto",
		"5",
		"",
		"y",
		"make test",
		"append",
		"Fix the failing tests",
		"golangci-lint run",
		"SOMETIMES",
		"replace",
		"",
		"",
		"y",
		"git",
		"commit, push",
	}, "\n") + "\n"

	var out bytes.Buffer
	settings, err := askSettings(internal.NewPrompter(strings.NewReader(input), &out))
	require.NoError(t, err)

	assert.Equal(t, "codex", settings.Agent.Command)
	assert.Equal(t, []string{"--model o3", "--full-auto"}, settings.Agent.Flags)
	assert.Equal(t, 5, settings.MaximumIterations)
	assert.Equal(t, "DONE", settings.CompletionResponse)
	assert.True(t, settings.IncludeIterationCountInPrompt)
	assert.Equal(t, []config.Guardrail{
		{Command: "make test", FailAction: config.FailActionAppend, Hint: "Fix the failing tests"},
		{Command: "golangci-lint run", FailAction: config.FailActionReplace},
	}, settings.Guardrails)
	require.NotNil(t, settings.SCM)
	assert.Equal(t, "git", settings.SCM.Command)
	assert.Equal(t, []string{"commit", "push"}, settings.SCM.Tasks)

	assert.Contains(t, out.String(), "A value is required.")
	assert.Contains(t, out.String(), "Fail action must be APPEND, PREPEND, or REPLACE.")
}

func TestAskSettings_Minimal(t *testing.T) {
	input := "amp\n\n\n\n\n\n\n"

	settings, err := askSettings(internal.NewPrompter(strings.NewReader(input), &bytes.Buffer{}))
	require.NoError(t, err)

	assert.Equal(t, "amp", settings.Agent.Command)
	assert.Empty(t, settings.Agent.Flags)
	assert.Equal(t, config.DefaultMaximumIterations, settings.MaximumIterations)
	assert.False(t, settings.IncludeIterationCountInPrompt)
	assert.Empty(t, settings.Guardrails)
	assert.Nil(t, settings.SCM)
}

func TestAskSettings_EndOfInputAborts(t *testing.T) {
	_, err := askSettings(internal.NewPrompter(strings.NewReader("claude\n"), &bytes.Buffer{}))
	assert.ErrorIs(t, err, internal.ErrAborted)
}

func TestBuildInitSettings_DeclineOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"agent": {"command": "amp"}}`), 0644))

	var out bytes.Buffer
	p := internal.NewPrompter(strings.NewReader("n\n"), &out)

	settings, err := buildInitSettings(p, &out, path, true, false)
	require.NoError(t, err)
	assert.Nil(t, settings)
	assert.Contains(t, out.String(), `"command": "amp"`)
	assert.Contains(t, out.String(), "Overwrite? (y/N): ")
}

func TestBuildInitSettings_ForceSkipsConfirmation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0644))

	var out bytes.Buffer
	p := internal.NewPrompter(strings.NewReader("amp\n\n\n\n\n\n\n"), &out)

	settings, err := buildInitSettings(p, &out, path, true, true)
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, "amp", settings.Agent.Command)
	assert.NotContains(t, out.String(), "Overwrite?")
}

func TestWriteSettingsFile_RoundTripsThroughResolver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".ralph", "settings.json")

	settings := starterSettings()
	settings.Guardrails = []config.Guardrail{{Command: "go test ./...", FailAction: config.FailActionAppend, Hint: "keep tests green"}}
	settings.SCM = &config.SCMConfig{Command: "git", Tasks: []string{"commit"}}
	require.NoError(t, writeSettingsFile(path, settings))

	resolved, err := config.Resolve(config.Options{SettingsPath: path, Prompt: "work"})
	require.NoError(t, err)
	assert.Equal(t, settings.Guardrails, resolved.Guardrails)
	assert.Equal(t, settings.SCM, resolved.SCM)
	assert.Equal(t, []string{"-p"}, resolved.Agent.NonReplArgs)
}
