// Package loop provides iteration orchestration for the Ralph harness.
package loop

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/yarlson/ralph-loop/internal/guardrail"
	"github.com/yarlson/ralph-loop/internal/state"
)

// IterationOutcome represents the result of an iteration.
type IterationOutcome string

const (
	// OutcomeCompleted indicates the agent returned the completion response
	// and every guardrail passed.
	OutcomeCompleted IterationOutcome = "completed"
	// OutcomeGuardrailsFailed indicates at least one guardrail failed.
	OutcomeGuardrailsFailed IterationOutcome = "guardrails_failed"
	// OutcomeIncomplete indicates guardrails passed but the completion
	// response was not returned.
	OutcomeIncomplete IterationOutcome = "incomplete"
	// OutcomeAborted indicates a fatal error ended the iteration.
	OutcomeAborted IterationOutcome = "aborted"
)

// validOutcomes is a set of valid iteration outcomes for validation.
var validOutcomes = map[IterationOutcome]bool{
	OutcomeCompleted:        true,
	OutcomeGuardrailsFailed: true,
	OutcomeIncomplete:       true,
	OutcomeAborted:          true,
}

// IsValid returns true if the outcome is a valid value.
func (o IterationOutcome) IsValid() bool {
	return validOutcomes[o]
}

// IterationRecord contains all information about a single iteration execution.
// Records are written once and never read back by the harness.
type IterationRecord struct {
	// RunID identifies the run this iteration belongs to.
	RunID string `json:"run_id"`

	// Iteration is the 1-based iteration index.
	Iteration int `json:"iteration"`

	// StartTime is when the iteration started.
	StartTime time.Time `json:"start_time"`

	// EndTime is when the iteration completed.
	EndTime time.Time `json:"end_time"`

	// PromptLength is the number of characters sent to the agent.
	PromptLength int `json:"prompt_length"`

	// Agent contains metadata about the agent invocation.
	Agent AgentInvocationMeta `json:"agent"`

	// Guardrails contains the results of the guardrail commands.
	Guardrails []guardrail.Result `json:"guardrails,omitempty"`

	// Response is the content of the agent's response block, if any.
	Response string `json:"response,omitempty"`

	// Outcome is the final result of the iteration.
	Outcome IterationOutcome `json:"outcome"`
}

// AgentInvocationMeta contains metadata about an agent invocation.
type AgentInvocationMeta struct {
	// ExitCode is the agent's exit status, or -1 if it never started.
	ExitCode int `json:"exit_code"`

	// OutputLength is the number of bytes the agent produced.
	OutputLength int `json:"output_length"`

	// PromptPath is the prompt file handed to file-delivery agents.
	PromptPath string `json:"prompt_path,omitempty"`

	// Error is set when the agent could not be started.
	Error string `json:"error,omitempty"`
}

// NewIterationRecord creates a new iteration record and sets the start time.
func NewIterationRecord(runID string, iteration int) *IterationRecord {
	return &IterationRecord{
		RunID:     runID,
		Iteration: iteration,
		StartTime: time.Now(),
	}
}

// Duration returns the duration of the iteration.
func (r *IterationRecord) Duration() time.Duration {
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Complete marks the iteration as complete with the given outcome.
func (r *IterationRecord) Complete(outcome IterationOutcome) {
	r.EndTime = time.Now()
	r.Outcome = outcome
}

// FailedGuardrails returns the number of guardrails that did not pass.
func (r *IterationRecord) FailedGuardrails() int {
	return len(guardrail.Failures(r.Guardrails))
}

// SaveRecord writes the record to its path under layout. An existing record
// is never overwritten. Returns the path to the saved file.
func SaveRecord(layout state.Layout, record *IterationRecord) (string, error) {
	if record == nil {
		return "", errors.New("record cannot be nil")
	}

	if err := os.MkdirAll(layout.RecordsDirPath(), 0755); err != nil {
		return "", fmt.Errorf("failed to create records directory: %w", err)
	}

	path := layout.RecordPath(record.RunID, record.Iteration)

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create record %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write record %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write record %s: %w", path, err)
	}

	return path, nil
}
