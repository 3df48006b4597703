package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigCommand_PrintsResolvedSettings(t *testing.T) {
	dir := setupWorkspace(t)
	writeSettings(t, dir, map[string]any{
		"agent": map[string]any{"command": "codex", "flags": []string{"--full-auto"}},
		"guardrails": []map[string]any{
			{"command": "make lint", "failAction": "REPLACE"},
		},
	})

	res := executeCmd(context.Background(), "config", "-m", "3", "--no-stream-agent-output")
	require.NoError(t, res.err)

	var printed map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &printed))

	assert.Equal(t, 3, printed["maximumIterations"])
	assert.Equal(t, false, printed["streamAgentOutput"])
	assert.Equal(t, "DONE", printed["completionResponse"])
	assert.NotContains(t, printed, "prompt")

	agent, ok := printed["agent"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "codex", agent["command"])
	assert.Equal(t, "file", agent["delivery"])
	assert.Equal(t, []any{"e"}, agent["nonReplArgs"])
}

func TestConfigCommand_ReportsValidationProblems(t *testing.T) {
	dir := setupWorkspace(t)
	writeSettings(t, dir, map[string]any{
		"maximumIterations": -1,
	})

	res := executeCmd(context.Background(), "config")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "agent is required")
	assert.Contains(t, res.err.Error(), "maximumIterations must be a positive integer")
}
