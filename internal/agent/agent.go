// Package agent invokes the configured coding agent CLI for one iteration.
package agent

import (
	"context"
	"fmt"
)

// Response contains the results from a single agent invocation.
type Response struct {
	// Output is the combined stdout/stderr of the agent process.
	Output string `json:"-"`

	// ExitCode is the agent's exit status, or -1 if it never started.
	ExitCode int `json:"exitCode"`

	// PromptPath is the prompt artifact handed to file-delivery agents.
	PromptPath string `json:"promptPath,omitempty"`
}

// Invoker runs the agent with a prompt.
type Invoker interface {
	// Invoke runs the agent once and returns its output. A nonzero exit status
	// is not an error. An error is returned when the process could not be
	// started, or as an *ArtifactError when the prompt file could not be
	// written.
	Invoke(ctx context.Context, prompt string, iteration int) (Response, error)
}

// ArtifactError reports a prompt artifact that could not be written.
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("failed to write prompt file %s: %v", e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}
