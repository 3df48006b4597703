// Package review runs the periodic review cycle: a fixed series of review
// prompts sent to the agent, each followed by the guardrails.
package review

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/yarlson/ralph-loop/internal/agent"
	"github.com/yarlson/ralph-loop/internal/config"
	"github.com/yarlson/ralph-loop/internal/guardrail"
	"github.com/yarlson/ralph-loop/internal/prompt"
)

// Stats summarizes one review cycle.
type Stats struct {
	PromptsRun     int `json:"promptsRun"`
	TotalRetries   int `json:"totalRetries"`
	GuardrailFails int `json:"guardrailFails"`
}

// Runner executes review cycles.
type Runner struct {
	cfg        *config.ReviewsConfig
	agent      agent.Invoker
	guardrails guardrail.Runner
	specs      []config.Guardrail
	truncate   int
	out        io.Writer
	logger     *slog.Logger
}

// NewRunner creates a Runner. cfg may be nil, in which case Run does nothing.
func NewRunner(cfg *config.ReviewsConfig, invoker agent.Invoker, guardrails guardrail.Runner, specs []config.Guardrail, truncate int) *Runner {
	return &Runner{
		cfg:        cfg,
		agent:      invoker,
		guardrails: guardrails,
		specs:      specs,
		truncate:   truncate,
		out:        io.Discard,
		logger:     slog.New(slog.DiscardHandler),
	}
}

// SetOutput sets where progress lines are printed.
func (r *Runner) SetOutput(w io.Writer) {
	r.out = w
}

// SetLogger sets the diagnostics logger.
func (r *Runner) SetLogger(l *slog.Logger) {
	r.logger = l
}

// Run sends every review prompt in order. After each agent call the
// guardrails run; on failure the prompt is retried with the failures folded
// in until they pass or the retry limit is reached. Agent failures are
// logged and never stop the cycle. Cancellation is checked between prompts.
func (r *Runner) Run(ctx context.Context, iteration int) (Stats, error) {
	var stats Stats
	if !r.cfg.Enabled() {
		return stats, nil
	}

	limit := r.cfg.GuardrailRetryLimit
	for _, review := range r.cfg.ReviewPrompts() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		stats.PromptsRun++
		r.printf("[Review: %s] Starting", review.Name)

		current := review.Prompt
		retries := 0
		for {
			if _, err := r.agent.Invoke(ctx, current, iteration); err != nil {
				r.logger.Warn("review agent call failed", "review", review.Name, "error", err)
			}

			if len(r.specs) == 0 {
				break
			}

			failures := guardrail.Failures(r.guardrails.Check(ctx, r.specs, iteration))
			if len(failures) == 0 {
				r.printf("[Review: %s] Guardrails passed", review.Name)
				break
			}

			stats.GuardrailFails++
			stats.TotalRetries++
			retries++
			if retries >= limit {
				r.printf("[Review: %s] Guardrail retry limit (%d) reached, moving to next review", review.Name, limit)
				break
			}

			current = prompt.Mutate(review.Prompt, failures, r.truncate)
			r.logger.Debug("review guardrails failed", "review", review.Name, "retry", retries, "limit", limit)
		}

		r.printf("[Review: %s] Complete", review.Name)
	}

	return stats, nil
}

func (r *Runner) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format+"\n", args...)
}
