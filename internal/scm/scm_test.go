package scm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarlson/ralph-loop/internal/agent"
	"github.com/yarlson/ralph-loop/internal/config"
	"github.com/yarlson/ralph-loop/internal/shell"
)

type mockInvoker struct {
	output  string
	err     error
	prompts []string
	iters   []int
}

func (m *mockInvoker) Invoke(ctx context.Context, prompt string, iteration int) (agent.Response, error) {
	m.prompts = append(m.prompts, prompt)
	m.iters = append(m.iters, iteration)
	return agent.Response{Output: m.output}, m.err
}

type recordingExec struct {
	argvs [][]string
	codes map[string]int
}

func (r *recordingExec) run(ctx context.Context, c shell.Command) (shell.Result, error) {
	r.argvs = append(r.argvs, c.Argv())
	return shell.Result{ExitCode: r.codes[c.String()]}, nil
}

func TestRunner_Run(t *testing.T) {
	t.Run("commit then push", func(t *testing.T) {
		invoker := &mockInvoker{output: "\n  Add login form  \nmore detail\n"}
		exec := &recordingExec{}
		var out bytes.Buffer

		runner := NewRunner(&config.SCMConfig{Command: "git", Tasks: []string{"commit", "push origin main"}}, invoker, "")
		runner.SetExec(exec.run)
		runner.SetOutput(&out)

		results := runner.Run(context.Background(), 2)

		assert.Equal(t, []string{CommitMessagePrompt}, invoker.prompts)
		assert.Equal(t, []int{2}, invoker.iters)
		assert.Equal(t, [][]string{
			{"git", "commit", "-am", "Add login form"},
			{"git", "push", "origin", "main"},
		}, exec.argvs)

		require.Len(t, results, 2)
		assert.Equal(t, "commit", results[0].Task)
		assert.False(t, results[0].Skipped)
		assert.Contains(t, out.String(), "SCM: running git commit -am Add login form")
		assert.Contains(t, out.String(), "SCM: running git push origin main")
	})

	t.Run("no agent call without a commit task", func(t *testing.T) {
		invoker := &mockInvoker{output: "msg"}
		exec := &recordingExec{}

		runner := NewRunner(&config.SCMConfig{Command: "git", Tasks: []string{"push"}}, invoker, "")
		runner.SetExec(exec.run)
		runner.Run(context.Background(), 1)

		assert.Empty(t, invoker.prompts)
		assert.Equal(t, [][]string{{"git", "push"}}, exec.argvs)
	})

	t.Run("blank message skips only the commit", func(t *testing.T) {
		invoker := &mockInvoker{output: "  \n\t\n"}
		exec := &recordingExec{}
		var out bytes.Buffer

		runner := NewRunner(&config.SCMConfig{Command: "hg", Tasks: []string{"commit", "push"}}, invoker, "")
		runner.SetExec(exec.run)
		runner.SetOutput(&out)

		results := runner.Run(context.Background(), 1)

		assert.Contains(t, out.String(), "SCM: skipping commit (no commit message returned)")
		assert.Equal(t, [][]string{{"hg", "push"}}, exec.argvs)
		require.Len(t, results, 2)
		assert.True(t, results[0].Skipped)
	})

	t.Run("agent error skips the commit", func(t *testing.T) {
		invoker := &mockInvoker{err: errors.New("agent missing")}
		exec := &recordingExec{}
		var out bytes.Buffer

		runner := NewRunner(&config.SCMConfig{Command: "git", Tasks: []string{"commit"}}, invoker, "")
		runner.SetExec(exec.run)
		runner.SetOutput(&out)
		runner.Run(context.Background(), 1)

		assert.Empty(t, exec.argvs)
		assert.Contains(t, out.String(), "skipping commit")
	})

	t.Run("failing task does not stop later tasks", func(t *testing.T) {
		exec := &recordingExec{codes: map[string]int{"git fetch": 128}}
		var out bytes.Buffer

		runner := NewRunner(&config.SCMConfig{Command: "git", Tasks: []string{"fetch", "status"}}, nil, "")
		runner.SetExec(exec.run)
		runner.SetOutput(&out)

		results := runner.Run(context.Background(), 1)

		require.Len(t, results, 2)
		assert.Equal(t, 128, results[0].ExitCode)
		assert.Equal(t, 0, results[1].ExitCode)
		assert.Contains(t, out.String(), "SCM: fetch exited with code 128")
	})

	t.Run("start failure is reported", func(t *testing.T) {
		var out bytes.Buffer

		runner := NewRunner(&config.SCMConfig{Command: "git", Tasks: []string{"push"}}, nil, "")
		runner.SetExec(func(ctx context.Context, c shell.Command) (shell.Result, error) {
			return shell.Result{ExitCode: -1}, errors.New("not found")
		})
		runner.SetOutput(&out)

		results := runner.Run(context.Background(), 1)

		require.Len(t, results, 1)
		assert.Equal(t, -1, results[0].ExitCode)
		assert.Equal(t, "not found", results[0].Error)
	})

	t.Run("runs a real command", func(t *testing.T) {
		dir := t.TempDir()
		runner := NewRunner(&config.SCMConfig{Command: "sh", Tasks: []string{`-c "touch marker; exit 3"`}}, nil, dir)

		results := runner.Run(context.Background(), 1)

		require.Len(t, results, 1)
		assert.Equal(t, 3, results[0].ExitCode)
		assert.FileExists(t, dir+"/marker")
	})
}

func TestRunner_Disabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.SCMConfig
	}{
		{"nil config", nil},
		{"empty command", &config.SCMConfig{Tasks: []string{"commit"}}},
		{"no tasks", &config.SCMConfig{Command: "git"}},
		{"blank command", &config.SCMConfig{Command: "  ", Tasks: []string{"push"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoker := &mockInvoker{output: "msg"}
			exec := &recordingExec{}

			runner := NewRunner(tt.cfg, invoker, "")
			runner.SetExec(exec.run)

			assert.Nil(t, runner.Run(context.Background(), 1))
			assert.Empty(t, invoker.prompts)
			assert.Empty(t, exec.argvs)
		})
	}
}

func TestRunner_SkipsBlankTasks(t *testing.T) {
	exec := &recordingExec{}
	runner := NewRunner(&config.SCMConfig{Command: "git", Tasks: []string{"", "push", "   "}}, nil, "")
	runner.SetExec(exec.run)
	runner.SetOutput(io.Discard)

	results := runner.Run(context.Background(), 1)

	require.Len(t, results, 1)
	assert.Equal(t, "push", results[0].Task)
	assert.Equal(t, [][]string{{"git", "push"}}, exec.argvs)
}

func TestCommitMessage(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
		found  bool
	}{
		{"single line", "Fix parser", "Fix parser", true},
		{"leading blank lines", "\n\n  Fix parser  \nbody", "Fix parser", true},
		{"crlf", "Fix parser\r\nbody", "Fix parser", true},
		{"empty", "", "", false},
		{"whitespace only", " \n\t\n", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := CommitMessage(tt.output)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaskArgs(t *testing.T) {
	args, err := TaskArgs("commit", "Add feature")
	require.NoError(t, err)
	assert.Equal(t, []string{"commit", "-am", "Add feature"}, args)

	args, err = TaskArgs(`tag -a v1 -m "release one"`, "ignored")
	require.NoError(t, err)
	assert.Equal(t, []string{"tag", "-a", "v1", "-m", "release one"}, args)

	_, err = TaskArgs(`push "origin`, "")
	require.Error(t, err)
}
