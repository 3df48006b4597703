// Package guardrail runs the verification commands that gate every agent
// iteration and turns their failures into prompt feedback.
package guardrail

import (
	"context"
	"time"

	"github.com/yarlson/ralph-loop/internal/config"
)

// Result contains the outcome of running a single guardrail command.
type Result struct {
	// Guardrail is the configured guardrail that was run.
	Guardrail config.Guardrail `json:"guardrail"`

	// ExitCode is the shell exit code, or -1 if the shell could not start.
	ExitCode int `json:"exitCode"`

	// Output is the combined stdout/stderr output from the command.
	Output string `json:"-"`

	// LogPath is where the full output was written. It is set even when the
	// write failed.
	LogPath string `json:"logPath"`

	// Duration is how long the command took to execute.
	Duration time.Duration `json:"duration"`
}

// Passed reports whether the guardrail exited with code 0.
func (r Result) Passed() bool {
	return r.ExitCode == 0
}

// Failure is a Result that did not pass.
type Failure = Result

// Runner defines the interface for running guardrails.
type Runner interface {
	// Check runs every guardrail in order and returns one result per spec.
	// A failing guardrail never stops the ones after it.
	Check(ctx context.Context, specs []config.Guardrail, iteration int) []Result
}

// Observer is notified as guardrails start and finish.
type Observer interface {
	GuardrailStarted(index, total int, command string)
	GuardrailFinished(index, total int, result Result)
}

// Failures returns the results that did not pass, in order.
func Failures(results []Result) []Failure {
	var failures []Failure
	for _, r := range results {
		if !r.Passed() {
			failures = append(failures, r)
		}
	}
	return failures
}

// RunAll runs the guardrails and returns only the failures.
func RunAll(ctx context.Context, r Runner, specs []config.Guardrail, iteration int) []Failure {
	return Failures(r.Check(ctx, specs, iteration))
}
