// Package reporter renders loop progress and the final run summary.
package reporter

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/yarlson/ralph-loop/internal/guardrail"
	"github.com/yarlson/ralph-loop/internal/loop"
	"github.com/yarlson/ralph-loop/internal/review"
)

// Console prints progress lines as the loop advances. Styling is only
// applied when out is a color-capable terminal.
type Console struct {
	out io.Writer

	banner lipgloss.Style
	pass   lipgloss.Style
	fail   lipgloss.Style
	notice lipgloss.Style
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:    out,
		banner: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		pass:   r.NewStyle().Foreground(lipgloss.Color("10")),
		fail:   r.NewStyle().Foreground(lipgloss.Color("9")),
		notice: r.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// IterationStarted prints the iteration banner.
func (c *Console) IterationStarted(iteration, maximum int) {
	c.printf("\n%s\n", c.banner.Render(fmt.Sprintf("=== Ralph iteration %d/%d ===", iteration, maximum)))
}

// AgentFailed reports an agent that could not be started.
func (c *Console) AgentFailed(iteration int, err error) {
	c.printf("%s\n", c.fail.Render(fmt.Sprintf("Agent failed to start: %v", err)))
}

// CompletionMatched reports the matched completion response.
func (c *Console) CompletionMatched(response string) {
	c.printf("%s\n", c.pass.Render("Completion response matched: "+response))
}

// Exhausted reports that the iteration limit was reached.
func (c *Console) Exhausted(maximum int) {
	c.printf("%s\n", c.notice.Render("Maximum iterations reached without completion response."))
}

// Interrupted reports that the operator stopped the run.
func (c *Console) Interrupted(completed int) {
	c.printf("%s\n", c.notice.Render(fmt.Sprintf("Interrupted after %d iteration(s).", completed)))
}

// ReviewStarted prints the review cycle banner.
func (c *Console) ReviewStarted(iteration int) {
	c.printf("\n%s\n", c.banner.Render("--- Starting review cycle ---"))
}

// ReviewFinished closes the review cycle.
func (c *Console) ReviewFinished(iteration int, stats review.Stats, err error) {
	if err != nil {
		c.printf("%s\n", c.fail.Render(fmt.Sprintf("Review cycle stopped: %v", err)))
	}
	c.printf("%s\n", c.banner.Render(fmt.Sprintf("--- Review cycle complete: %d prompt(s), %d retries ---",
		stats.PromptsRun, stats.TotalRetries)))
}

// GuardrailStarted prints the guardrail start line.
func (c *Console) GuardrailStarted(index, total int, command string) {
	c.printf("Guardrail start: %s\n", command)
}

// GuardrailFinished prints the guardrail end line with its exit code.
func (c *Console) GuardrailFinished(index, total int, result guardrail.Result) {
	command := result.Guardrail.Command
	if result.Passed() {
		c.printf("Guardrail end: %s (exit %d)\n", command, result.ExitCode)
		c.printf("%s\n", c.pass.Render("Guardrail passed"))
		return
	}
	c.printf("%s\n", c.fail.Render(fmt.Sprintf("Guardrail end: %s (exit %d, action=%s)",
		command, result.ExitCode, result.Guardrail.FailAction)))
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

var (
	_ loop.Progress      = (*Console)(nil)
	_ guardrail.Observer = (*Console)(nil)
)
