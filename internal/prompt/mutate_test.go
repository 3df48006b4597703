package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yarlson/ralph-loop/internal/config"
	"github.com/yarlson/ralph-loop/internal/guardrail"
)

func failure(command string, action config.FailAction, output string) guardrail.Failure {
	return guardrail.Failure{
		Guardrail: config.Guardrail{Command: command, FailAction: action},
		ExitCode:  1,
		Output:    output,
		LogPath:   ".ralph/guardrail_001_" + command + ".log",
	}
}

func TestMutate(t *testing.T) {
	const base = "Build the feature."

	t.Run("no failures returns base verbatim", func(t *testing.T) {
		assert.Equal(t, base, Mutate(base, nil, 100))
	})

	t.Run("append", func(t *testing.T) {
		f := failure("test", config.FailActionAppend, "boom")
		assert.Equal(t, base+"\n\n"+guardrail.Summary(f, 100), Mutate(base, []guardrail.Failure{f}, 100))
	})

	t.Run("prepend", func(t *testing.T) {
		f := failure("test", config.FailActionPrepend, "boom")
		assert.Equal(t, guardrail.Summary(f, 100)+"\n\n"+base, Mutate(base, []guardrail.Failure{f}, 100))
	})

	t.Run("replace", func(t *testing.T) {
		f := failure("test", config.FailActionReplace, "boom")
		assert.Equal(t, guardrail.Summary(f, 100), Mutate(base, []guardrail.Failure{f}, 100))
	})

	t.Run("append then replace keeps only the replacement", func(t *testing.T) {
		g1 := failure("g1", config.FailActionAppend, "one")
		g2 := failure("g2", config.FailActionReplace, "two")

		got := Mutate(base, []guardrail.Failure{g1, g2}, 100)
		assert.Equal(t, guardrail.Summary(g2, 100), got)
	})

	t.Run("replace then append builds on the replacement", func(t *testing.T) {
		g1 := failure("g1", config.FailActionReplace, "one")
		g2 := failure("g2", config.FailActionAppend, "two")

		got := Mutate(base, []guardrail.Failure{g1, g2}, 100)
		assert.Equal(t, guardrail.Summary(g1, 100)+"\n\n"+guardrail.Summary(g2, 100), got)
		assert.NotContains(t, got, base)
	})

	t.Run("mixed order", func(t *testing.T) {
		g1 := failure("g1", config.FailActionAppend, "one")
		g2 := failure("g2", config.FailActionPrepend, "two")

		got := Mutate(base, []guardrail.Failure{g1, g2}, 100)
		want := guardrail.Summary(g2, 100) + "\n\n" + base + "\n\n" + guardrail.Summary(g1, 100)
		assert.Equal(t, want, got)
	})

	t.Run("summaries honour the truncation limit", func(t *testing.T) {
		f := failure("test", config.FailActionAppend, strings.Repeat("z", 40))

		got := Mutate(base, []guardrail.Failure{f}, 10)
		assert.Contains(t, got, "Output (truncated):\n"+strings.Repeat("z", 10))
		assert.NotContains(t, got, strings.Repeat("z", 11))
	})
}

func TestApplyFailAction(t *testing.T) {
	tests := []struct {
		name   string
		action config.FailAction
		want   string
	}{
		{"append", config.FailActionAppend, "P\n\nS"},
		{"prepend", config.FailActionPrepend, "S\n\nP"},
		{"replace", config.FailActionReplace, "S"},
		{"unknown", config.FailAction("IGNORE"), "P"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyFailAction("P", "S", tt.action))
		})
	}
}

func TestWithIterationCount(t *testing.T) {
	assert.Equal(t, "Iteration 1 of 5, 4 remaining.\n\ngo", WithIterationCount("go", 1, 5))
	assert.Equal(t, "Iteration 5 of 5, 0 remaining.\n\ngo", WithIterationCount("go", 5, 5))
}
