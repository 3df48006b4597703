package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/yarlson/ralph-loop/internal/shell"
)

// Supported event backends
const (
	EventsBackendNATS  = "nats"
	EventsBackendRedis = "redis"
)

// ValidationError lists every problem found in the resolved settings.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid settings:")
	for _, p := range e.Problems {
		b.WriteString("\n  - ")
		b.WriteString(p)
	}
	return b.String()
}

// validate checks the merged raw settings and returns every problem found.
// Keys are looked up case-insensitively since viper lowercases map keys.
func validate(raw map[string]any, requirePrompt bool) []string {
	var problems []string

	if requirePrompt && !isNonEmptyString(lookup(raw, "prompt")) {
		problems = append(problems, "prompt must be a non-empty string")
	}
	if !isNonEmptyString(lookup(raw, "completionResponse")) {
		problems = append(problems, "completionResponse must be a non-empty string")
	}
	if !isPositiveInt(lookup(raw, "maximumIterations")) {
		problems = append(problems, "maximumIterations must be a positive integer")
	}
	if !isPositiveInt(lookup(raw, "outputTruncateChars")) {
		problems = append(problems, "outputTruncateChars must be a positive integer")
	}
	if _, ok := lookup(raw, "streamAgentOutput").(bool); !ok {
		problems = append(problems, "streamAgentOutput must be a boolean")
	}
	if _, ok := lookup(raw, "includeIterationCountInPrompt").(bool); !ok {
		problems = append(problems, "includeIterationCountInPrompt must be a boolean")
	}

	problems = append(problems, validateAgent(lookup(raw, "agent"))...)
	problems = append(problems, validateGuardrails(lookup(raw, "guardrails"))...)
	problems = append(problems, validateSCM(lookup(raw, "scm"))...)
	problems = append(problems, validateReviews(lookup(raw, "reviews"))...)
	problems = append(problems, validateEvents(lookup(raw, "events"))...)

	return problems
}

func validateAgent(value any) []string {
	if value == nil {
		return []string{"agent is required"}
	}
	agent, ok := value.(map[string]any)
	if !ok {
		return []string{"agent must be an object"}
	}

	var problems []string
	if !isNonEmptyString(lookup(agent, "command")) {
		problems = append(problems, "agent.command must be a non-empty string")
	}

	flags := lookup(agent, "flags")
	if flags == nil {
		return problems
	}
	list, ok := asStringList(flags)
	if !ok {
		return append(problems, "agent.flags must be a list of strings")
	}
	for i, flag := range list {
		if _, err := shell.Split(flag); err != nil {
			problems = append(problems, fmt.Sprintf("agent.flags[%d] cannot be tokenized: %v", i, err))
		}
	}
	return problems
}

func validateGuardrails(value any) []string {
	if value == nil {
		return nil
	}
	items, ok := value.([]any)
	if !ok {
		return []string{"guardrails must be a list"}
	}

	var problems []string
	for i, item := range items {
		guardrail, ok := item.(map[string]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("guardrails[%d] must be an object", i))
			continue
		}
		if !isNonEmptyString(lookup(guardrail, "command")) {
			problems = append(problems, fmt.Sprintf("guardrails[%d].command must be a non-empty string", i))
		}
		action, ok := lookup(guardrail, "failAction").(string)
		if !ok || !FailAction(action).IsValid() {
			problems = append(problems, fmt.Sprintf("guardrails[%d].failAction must be APPEND, PREPEND, or REPLACE", i))
		}
		if hint := lookup(guardrail, "hint"); hint != nil {
			if _, ok := hint.(string); !ok {
				problems = append(problems, fmt.Sprintf("guardrails[%d].hint must be a string", i))
			}
		}
	}
	return problems
}

func validateSCM(value any) []string {
	if value == nil {
		return nil
	}
	scm, ok := value.(map[string]any)
	if !ok {
		return []string{"scm must be an object"}
	}

	// A blank command or an empty task list leaves SCM disabled; see
	// SCMConfig.Enabled.
	var problems []string
	if command := lookup(scm, "command"); command != nil {
		if _, ok := command.(string); !ok {
			problems = append(problems, "scm.command must be a string")
		}
	}

	tasks := lookup(scm, "tasks")
	if tasks == nil {
		return problems
	}
	list, ok := asStringList(tasks)
	if !ok {
		return append(problems, "scm.tasks must be a list of strings")
	}
	for i, task := range list {
		if strings.TrimSpace(task) == "" {
			continue
		}
		if _, err := shell.Split(task); err != nil {
			problems = append(problems, fmt.Sprintf("scm.tasks[%d] cannot be tokenized: %v", i, err))
		}
	}
	return problems
}

func validateEvents(value any) []string {
	if value == nil {
		return nil
	}
	events, ok := value.(map[string]any)
	if !ok {
		return []string{"events must be an object"}
	}

	var problems []string
	backend, _ := lookup(events, "backend").(string)
	switch strings.ToLower(backend) {
	case EventsBackendNATS, EventsBackendRedis:
	default:
		problems = append(problems, "events.backend must be nats or redis")
	}
	if url := lookup(events, "url"); url != nil {
		if _, ok := url.(string); !ok {
			problems = append(problems, "events.url must be a string")
		}
	}
	if subject := lookup(events, "subject"); subject != nil {
		if _, ok := subject.(string); !ok {
			problems = append(problems, "events.subject must be a string")
		}
	}
	return problems
}

// lookup returns the value for key, ignoring case.
func lookup(m map[string]any, key string) any {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func isNonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

func isPositiveInt(v any) bool {
	switch n := v.(type) {
	case int:
		return n > 0
	case int64:
		return n > 0
	case float64:
		return n > 0 && n == math.Trunc(n) && n <= math.MaxInt32
	default:
		return false
	}
}

func asStringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
