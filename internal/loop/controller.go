package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yarlson/ralph-loop/internal/agent"
	"github.com/yarlson/ralph-loop/internal/config"
	"github.com/yarlson/ralph-loop/internal/events"
	"github.com/yarlson/ralph-loop/internal/guardrail"
	"github.com/yarlson/ralph-loop/internal/prompt"
	"github.com/yarlson/ralph-loop/internal/response"
	"github.com/yarlson/ralph-loop/internal/review"
	"github.com/yarlson/ralph-loop/internal/scm"
	"github.com/yarlson/ralph-loop/internal/state"
)

// RunOutcome represents the final outcome of a loop run.
type RunOutcome string

const (
	// RunOutcomeSucceeded indicates the agent returned the completion response.
	RunOutcomeSucceeded RunOutcome = "succeeded"
	// RunOutcomeExhausted indicates the iteration limit was reached first.
	RunOutcomeExhausted RunOutcome = "exhausted"
	// RunOutcomeInterrupted indicates the operator stopped the run.
	RunOutcomeInterrupted RunOutcome = "interrupted"
	// RunOutcomeError indicates a fatal error occurred.
	RunOutcomeError RunOutcome = "error"
)

// Process exit codes
const (
	ExitSuccess     = 0
	ExitExhausted   = 1
	ExitError       = 2
	ExitInterrupted = 130
)

// validRunOutcomes is the set of valid run outcomes.
var validRunOutcomes = map[RunOutcome]bool{
	RunOutcomeSucceeded:   true,
	RunOutcomeExhausted:   true,
	RunOutcomeInterrupted: true,
	RunOutcomeError:       true,
}

// IsValid returns true if the outcome is a valid value.
func (o RunOutcome) IsValid() bool {
	return validRunOutcomes[o]
}

// ExitCode returns the process exit code for the outcome.
func (o RunOutcome) ExitCode() int {
	switch o {
	case RunOutcomeSucceeded:
		return ExitSuccess
	case RunOutcomeExhausted:
		return ExitExhausted
	case RunOutcomeInterrupted:
		return ExitInterrupted
	default:
		return ExitError
	}
}

// RunResult contains the results from a loop run.
type RunResult struct {
	// RunID identifies the run in records and events.
	RunID string

	// Outcome is the final outcome of the run.
	Outcome RunOutcome

	// Message is a human-readable description of the outcome.
	Message string

	// IterationsRun is the number of iterations started.
	IterationsRun int

	// MaximumIterations is the configured iteration limit.
	MaximumIterations int

	// Response is the matched completion response on success.
	Response string

	// Records contains the iteration records from the run.
	Records []*IterationRecord

	// SCMResults contains the SCM task results on success.
	SCMResults []scm.TaskResult

	// Err is the fatal error for RunOutcomeError.
	Err error

	// ElapsedTime is the total time for the run.
	ElapsedTime time.Duration
}

// ExitCode returns the process exit code for the run.
func (r RunResult) ExitCode() int {
	return r.Outcome.ExitCode()
}

// Progress receives console notifications as the loop advances.
type Progress interface {
	IterationStarted(iteration, maximum int)
	AgentFailed(iteration int, err error)
	CompletionMatched(response string)
	Exhausted(maximum int)
	Interrupted(completed int)
	ReviewStarted(iteration int)
	ReviewFinished(iteration int, stats review.Stats, err error)
}

// SCMRunner runs the post-success source-control tasks.
type SCMRunner interface {
	Run(ctx context.Context, iteration int) []scm.TaskResult
}

// Reviewer runs one review cycle.
type Reviewer interface {
	Run(ctx context.Context, iteration int) (review.Stats, error)
}

// ControllerDeps contains the dependencies for the Controller.
type ControllerDeps struct {
	Settings   *config.Settings
	Agent      agent.Invoker
	Guardrails guardrail.Runner
	SCM        SCMRunner
	Reviews    Reviewer
	Publisher  events.Publisher
	Progress   Progress
	Layout     state.Layout
	Logger     *slog.Logger
}

// Controller orchestrates the main iteration loop.
type Controller struct {
	settings   *config.Settings
	agent      agent.Invoker
	guardrails guardrail.Runner
	scm        SCMRunner
	reviews    Reviewer
	publisher  events.Publisher
	progress   Progress
	layout     state.Layout
	logger     *slog.Logger

	newRunID func() string
}

// NewController creates a new loop controller with the given dependencies.
func NewController(deps ControllerDeps) *Controller {
	c := &Controller{
		settings:   deps.Settings,
		agent:      deps.Agent,
		guardrails: deps.Guardrails,
		scm:        deps.SCM,
		reviews:    deps.Reviews,
		publisher:  deps.Publisher,
		progress:   deps.Progress,
		layout:     deps.Layout,
		logger:     deps.Logger,
		newRunID:   uuid.NewString,
	}
	if c.publisher == nil {
		c.publisher = events.Nop{}
	}
	if c.progress == nil {
		c.progress = nopProgress{}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Run executes iterations until the agent returns the completion response
// with all guardrails passing, or the iteration limit is reached.
//
// Cancellation of ctx is only observed between iterations; a running child
// process is never interrupted. Once the last iteration has run the outcome
// is exhausted even if ctx was cancelled during it.
func (c *Controller) Run(ctx context.Context) RunResult {
	startTime := time.Now()
	maximum := c.settings.MaximumIterations
	result := RunResult{
		RunID:             c.newRunID(),
		MaximumIterations: maximum,
	}

	base := c.settings.Prompt
	current := base
	// sinceReview counts iterations since the last review cycle.
	sinceReview := 0

	for i := 1; i <= maximum; i++ {
		if ctx.Err() != nil {
			return c.finish(ctx, result, startTime, c.interrupted(i-1))
		}

		result.IterationsRun = i
		record, err := c.runIteration(ctx, result.RunID, i, current)
		result.Records = append(result.Records, record)

		if err != nil {
			result.Err = err
			return c.finish(ctx, result, startTime, RunOutcomeError)
		}

		if record.Outcome == OutcomeGuardrailsFailed {
			current = prompt.Mutate(base, guardrail.Failures(record.Guardrails), c.settings.OutputTruncateChars)
			sinceReview++
			continue
		}

		if ctx.Err() == nil && c.reviewDue(sinceReview) {
			err := c.review(ctx, result.RunID, i)
			if err != nil && ctx.Err() != nil && record.Outcome != OutcomeCompleted {
				return c.finish(ctx, result, startTime, c.interrupted(i))
			}
			sinceReview = 0
		}

		switch record.Outcome {
		case OutcomeCompleted:
			result.Response = record.Response
			if c.scm != nil {
				result.SCMResults = c.scm.Run(ctx, i)
			}
			return c.finish(ctx, result, startTime, RunOutcomeSucceeded)
		default:
			current = base
			sinceReview++
		}
	}

	c.progress.Exhausted(maximum)
	return c.finish(ctx, result, startTime, RunOutcomeExhausted)
}

// runIteration runs the agent and the guardrails once. A non-nil error is
// fatal to the run.
func (c *Controller) runIteration(ctx context.Context, runID string, iteration int, current string) (*IterationRecord, error) {
	record := NewIterationRecord(runID, iteration)
	maximum := c.settings.MaximumIterations

	c.progress.IterationStarted(iteration, maximum)
	c.publish(ctx, events.Event{Type: events.IterationStarted, RunID: runID, Iteration: iteration})

	sent := current
	if c.settings.IncludeIterationCountInPrompt {
		sent = prompt.WithIterationCount(current, iteration, maximum)
	}
	record.PromptLength = len([]rune(sent))

	resp, err := c.agent.Invoke(ctx, sent, iteration)
	record.Agent = AgentInvocationMeta{
		ExitCode:     resp.ExitCode,
		OutputLength: len(resp.Output),
		PromptPath:   resp.PromptPath,
	}
	if err != nil {
		record.Agent.Error = err.Error()

		var artifactErr *agent.ArtifactError
		if errors.As(err, &artifactErr) {
			record.Complete(OutcomeAborted)
			c.save(record)
			return record, err
		}

		// A failed start is treated as an iteration without completion.
		c.progress.AgentFailed(iteration, err)
		c.logger.Warn("agent did not run", "iteration", iteration, "error", err)
	}

	record.Guardrails = c.guardrails.Check(ctx, c.settings.Guardrails, iteration)

	if failed := record.FailedGuardrails(); failed > 0 {
		record.Complete(OutcomeGuardrailsFailed)
		c.publish(ctx, events.Event{
			Type:      events.GuardrailsFailed,
			RunID:     runID,
			Iteration: iteration,
			Data:      map[string]any{"failed": failed},
		})
		c.save(record)
		c.publishFinished(ctx, record)
		return record, nil
	}

	got, found := response.Extract(resp.Output)
	if found {
		record.Response = got
	}
	if found && response.Matches(resp.Output, c.settings.CompletionResponse) {
		c.progress.CompletionMatched(got)
		record.Complete(OutcomeCompleted)
	} else {
		record.Complete(OutcomeIncomplete)
	}

	c.save(record)
	c.publishFinished(ctx, record)
	return record, nil
}

func (c *Controller) reviewDue(since int) bool {
	cfg := c.settings.Reviews
	return c.reviews != nil && cfg.Enabled() && since >= cfg.ReviewAfter
}

// review runs one review cycle after iteration. Only cancellation is
// returned; other review errors are reported and the loop continues.
func (c *Controller) review(ctx context.Context, runID string, iteration int) error {
	c.progress.ReviewStarted(iteration)
	stats, err := c.reviews.Run(ctx, iteration)
	c.progress.ReviewFinished(iteration, stats, err)

	data := map[string]any{
		"promptsRun":     stats.PromptsRun,
		"totalRetries":   stats.TotalRetries,
		"guardrailFails": stats.GuardrailFails,
	}
	if err != nil {
		data["error"] = err.Error()
		c.logger.Warn("review cycle failed", "iteration", iteration, "error", err)
	}
	c.publish(ctx, events.Event{Type: events.ReviewFinished, RunID: runID, Iteration: iteration, Data: data})
	return err
}

func (c *Controller) interrupted(completed int) RunOutcome {
	c.progress.Interrupted(completed)
	return RunOutcomeInterrupted
}

func (c *Controller) finish(ctx context.Context, result RunResult, startTime time.Time, outcome RunOutcome) RunResult {
	result.Outcome = outcome
	result.ElapsedTime = time.Since(startTime)

	switch outcome {
	case RunOutcomeSucceeded:
		result.Message = fmt.Sprintf("completion response matched on iteration %d", result.IterationsRun)
	case RunOutcomeExhausted:
		result.Message = fmt.Sprintf("maximum iterations (%d) reached without completion response", result.MaximumIterations)
	case RunOutcomeInterrupted:
		result.Message = "interrupted by signal"
	case RunOutcomeError:
		result.Message = fmt.Sprintf("fatal error: %v", result.Err)
	}

	c.publish(ctx, events.Event{
		Type:      events.RunFinished,
		RunID:     result.RunID,
		Iteration: result.IterationsRun,
		Data: map[string]any{
			"outcome":  string(outcome),
			"exitCode": outcome.ExitCode(),
		},
	})
	c.logger.Debug("run finished", "runID", result.RunID, "outcome", outcome, "iterations", result.IterationsRun, "elapsed", result.ElapsedTime)

	return result
}

func (c *Controller) publishFinished(ctx context.Context, record *IterationRecord) {
	c.publish(ctx, events.Event{
		Type:      events.IterationFinished,
		RunID:     record.RunID,
		Iteration: record.Iteration,
		Data: map[string]any{
			"outcome":       string(record.Outcome),
			"agentExitCode": record.Agent.ExitCode,
		},
	})
}

// publish sends an event. Failures are logged and never affect the run.
func (c *Controller) publish(ctx context.Context, event events.Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if err := c.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		c.logger.Warn("failed to publish event", "type", event.Type, "error", err)
	}
}

// save writes the iteration record. Failures are logged and never affect the run.
func (c *Controller) save(record *IterationRecord) {
	path, err := SaveRecord(c.layout, record)
	if err != nil {
		c.logger.Warn("failed to save iteration record", "iteration", record.Iteration, "error", err)
		return
	}
	c.logger.Debug("saved iteration record", "path", path)
}

type nopProgress struct{}

func (nopProgress) IterationStarted(int, int)               {}
func (nopProgress) AgentFailed(int, error)                  {}
func (nopProgress) CompletionMatched(string)                {}
func (nopProgress) Exhausted(int)                           {}
func (nopProgress) Interrupted(int)                         {}
func (nopProgress) ReviewStarted(int)                       {}
func (nopProgress) ReviewFinished(int, review.Stats, error) {}
