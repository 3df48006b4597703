// Package prompt derives the prompt for the next iteration from the base
// prompt and the guardrail failures of the previous one.
package prompt

import (
	"fmt"

	"github.com/yarlson/ralph-loop/internal/config"
	"github.com/yarlson/ralph-loop/internal/guardrail"
)

const separator = "\n\n"

// Mutate returns the next prompt. With no failures it is base unchanged.
// Otherwise each failure summary is folded into the prompt in order, so a
// later REPLACE discards everything folded before it.
func Mutate(base string, failures []guardrail.Failure, truncate int) string {
	current := base
	for _, f := range failures {
		current = ApplyFailAction(current, guardrail.Summary(f, truncate), f.Guardrail.FailAction)
	}
	return current
}

// ApplyFailAction folds a failure summary into prompt. Unknown actions leave
// the prompt as is.
func ApplyFailAction(prompt, summary string, action config.FailAction) string {
	switch action {
	case config.FailActionAppend:
		return prompt + separator + summary
	case config.FailActionPrepend:
		return summary + separator + prompt
	case config.FailActionReplace:
		return summary
	default:
		return prompt
	}
}

// WithIterationCount prefixes prompt with the iteration position.
func WithIterationCount(prompt string, iteration, maximum int) string {
	remaining := maximum - iteration
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("Iteration %d of %d, %d remaining.", iteration, maximum, remaining) + separator + prompt
}
