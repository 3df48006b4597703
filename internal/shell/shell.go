// Package shell runs external commands for the harness. Commands are always
// composed as token lists; a string is only interpreted by a shell when the
// caller asks for it explicitly with Script.
package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"github.com/mattn/go-shellwords"
)

// Command describes a single child process.
type Command struct {
	// Name is the executable to run.
	Name string

	// Args are passed to the executable verbatim.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Stdin, when non-nil, is copied to the child's standard input which is
	// closed once the reader is exhausted.
	Stdin io.Reader

	// Stream, when non-nil, receives combined output line by line while the
	// child runs. Output is still accumulated in Result.Output.
	Stream io.Writer
}

// Result is the outcome of a command that was started.
type Result struct {
	// Output is the combined stdout/stderr of the child.
	Output string

	// ExitCode is the child's exit status, or -1 when it never started or
	// was terminated by a signal.
	ExitCode int
}

// Passed reports whether the command exited with status zero.
func (r Result) Passed() bool {
	return r.ExitCode == 0
}

// Argv returns the full argument vector including the executable.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String renders the command for log output.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Script wraps a shell command line so it is run by the platform shell.
func Script(line string) Command {
	if runtime.GOOS == "windows" {
		return Command{Name: "cmd", Args: []string{"/c", line}}
	}
	return Command{Name: "sh", Args: []string{"-c", line}}
}

// Split tokenizes s using POSIX shell word rules without expanding variables
// or command substitutions.
func Split(s string) ([]string, error) {
	words, err := shellwords.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", s, err)
	}
	return words, nil
}

// Run executes the command and blocks until it exits. A nonzero exit status is
// reported through Result.ExitCode and is not an error; an error is returned
// only when the process could not be started or its output could not be read.
//
// Cancellation of ctx is not propagated to the child and there is no timeout:
// a child that never exits blocks the caller.
func Run(ctx context.Context, c Command) (Result, error) {
	if c.Name == "" {
		return Result{ExitCode: -1}, errors.New("empty command")
	}

	cmd := exec.CommandContext(context.WithoutCancel(ctx), c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin

	if c.Stream == nil {
		var output bytes.Buffer
		cmd.Stdout = &output
		cmd.Stderr = &output

		code, err := exitCode(cmd.Run())
		if err != nil {
			return Result{Output: output.String(), ExitCode: code}, fmt.Errorf("failed to run %s: %w", c.Name, err)
		}
		return Result{Output: output.String(), ExitCode: code}, nil
	}

	return runStreaming(cmd, c)
}

// runStreaming drains combined output line by line, echoing each line to
// c.Stream as it arrives.
func runStreaming(cmd *exec.Cmd, c Command) (Result, error) {
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("failed to start command %s: %w", c.Name, err)
	}

	var output strings.Builder
	var readErr error
	reader := bufio.NewReader(pipe)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			output.WriteString(line)
			_, _ = io.WriteString(c.Stream, line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}
	}

	code, waitErr := exitCode(cmd.Wait())
	result := Result{Output: output.String(), ExitCode: code}

	if readErr != nil {
		return result, fmt.Errorf("error reading output: %w", readErr)
	}
	if waitErr != nil {
		return result, fmt.Errorf("failed to wait for %s: %w", c.Name, waitErr)
	}
	return result, nil
}

// exitCode converts a Run/Wait error into an exit status. Exit errors are
// folded into the status; anything else is returned.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
