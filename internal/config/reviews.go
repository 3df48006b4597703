package config

import (
	"fmt"
	"math"
)

// ReviewsConfig schedules review cycles between passing iterations.
type ReviewsConfig struct {
	// ReviewAfter is the number of iterations between review cycles. Zero
	// disables reviews.
	ReviewAfter int `mapstructure:"reviewAfter" json:"reviewAfter" yaml:"reviewAfter"`

	// GuardrailRetryLimit is how many failed guardrail rounds a single review
	// prompt gets before the cycle moves on.
	GuardrailRetryLimit int            `mapstructure:"guardrailRetryLimit" json:"guardrailRetryLimit" yaml:"guardrailRetryLimit"`
	Prompts             []ReviewPrompt `mapstructure:"prompts" json:"prompts,omitempty" yaml:"prompts,omitempty"`

	// PromptsOmitted is set when the settings files carry no prompts key at
	// all, in which case the default prompts apply. An explicit empty list
	// disables reviews.
	PromptsOmitted bool `mapstructure:"-" json:"-" yaml:"-"`
}

// ReviewPrompt is one named review pass.
type ReviewPrompt struct {
	Name   string `mapstructure:"name" json:"name" yaml:"name"`
	Prompt string `mapstructure:"prompt" json:"prompt" yaml:"prompt"`
}

// Enabled reports whether review cycles should run.
func (c *ReviewsConfig) Enabled() bool {
	if c == nil || c.ReviewAfter <= 0 {
		return false
	}
	return c.PromptsOmitted || len(c.Prompts) > 0
}

// ReviewPrompts returns the prompts to run, falling back to the defaults when
// none were configured.
func (c *ReviewsConfig) ReviewPrompts() []ReviewPrompt {
	if c == nil {
		return nil
	}
	if c.PromptsOmitted {
		return DefaultReviewPrompts()
	}
	return c.Prompts
}

// DefaultReviewPrompts returns the built-in review passes.
func DefaultReviewPrompts() []ReviewPrompt {
	return []ReviewPrompt{
		{
			Name:   "detailed",
			Prompt: "Review the changes made so far for correctness. Look for logic errors, unhandled edge cases and missing tests, and fix what you find.",
		},
		{
			Name:   "architecture",
			Prompt: "Review the structure of the code you changed. Remove duplication, keep responsibilities in the right packages and simplify anything that grew too complex.",
		},
		{
			Name:   "security",
			Prompt: "Review the changes for security problems such as unvalidated input, injection, leaked secrets and unsafe file or network access. Fix every issue you find.",
		},
		{
			Name:   "codeHealth",
			Prompt: "Review the changes for code health. Clean up dead code, unclear names, stale comments and leftover debugging output.",
		},
	}
}

func validateReviews(value any) []string {
	if value == nil {
		return nil
	}
	reviews, ok := value.(map[string]any)
	if !ok {
		return []string{"reviews must be an object"}
	}

	var problems []string
	for _, key := range []string{"reviewAfter", "guardrailRetryLimit"} {
		if n := lookup(reviews, key); n != nil && !isNonNegativeInt(n) {
			problems = append(problems, fmt.Sprintf("reviews.%s must be a non-negative integer", key))
		}
	}

	prompts := lookup(reviews, "prompts")
	if prompts == nil {
		return problems
	}
	list, ok := prompts.([]any)
	if !ok {
		return append(problems, "reviews.prompts must be a list of objects")
	}
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("reviews.prompts[%d] must be an object", i))
			continue
		}
		if !isNonEmptyString(lookup(entry, "name")) {
			problems = append(problems, fmt.Sprintf("reviews.prompts[%d].name must be a non-empty string", i))
		}
		if !isNonEmptyString(lookup(entry, "prompt")) {
			problems = append(problems, fmt.Sprintf("reviews.prompts[%d].prompt must be a non-empty string", i))
		}
	}
	return problems
}

func isNonNegativeInt(v any) bool {
	switch n := v.(type) {
	case int:
		return n >= 0
	case int64:
		return n >= 0
	case float64:
		return n >= 0 && n == math.Trunc(n) && n <= math.MaxInt32
	default:
		return false
	}
}
