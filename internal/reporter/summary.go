package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/yarlson/ralph-loop/internal/loop"
)

// maxRenderWidth caps the word wrap width of rendered summaries.
const maxRenderWidth = 120

// FormatRunResult renders the run result as Markdown.
func FormatRunResult(result loop.RunResult) string {
	var sb strings.Builder

	sb.WriteString("# Ralph Run Summary\n\n")
	fmt.Fprintf(&sb, "- **Run:** `%s`\n", result.RunID)
	fmt.Fprintf(&sb, "- **Outcome:** %s\n", result.Outcome)
	fmt.Fprintf(&sb, "- **Iterations:** %d of %d\n", result.IterationsRun, result.MaximumIterations)
	if result.Response != "" {
		fmt.Fprintf(&sb, "- **Response:** %s\n", result.Response)
	}
	fmt.Fprintf(&sb, "- **Elapsed:** %s\n", result.ElapsedTime.Round(time.Millisecond))
	if result.Message != "" {
		fmt.Fprintf(&sb, "\n%s\n", capitalize(result.Message))
	}

	if len(result.Records) > 0 {
		sb.WriteString("\n## Iterations\n\n")
		sb.WriteString("| # | Outcome | Agent exit | Failed guardrails | Duration |\n")
		sb.WriteString("|---|---------|------------|-------------------|----------|\n")
		for _, r := range result.Records {
			fmt.Fprintf(&sb, "| %d | %s | %d | %d | %s |\n",
				r.Iteration, r.Outcome, r.Agent.ExitCode, r.FailedGuardrails(), r.Duration().Round(time.Millisecond))
		}
	}

	if len(result.SCMResults) > 0 {
		sb.WriteString("\n## SCM\n\n")
		for _, t := range result.SCMResults {
			switch {
			case t.Skipped:
				fmt.Fprintf(&sb, "- `%s`: skipped\n", t.Task)
			case t.Error != "":
				fmt.Fprintf(&sb, "- `%s`: %s\n", t.Task, t.Error)
			default:
				fmt.Fprintf(&sb, "- `%s`: exit %d\n", strings.Join(t.Argv, " "), t.ExitCode)
			}
		}
	}

	return sb.String()
}

// RenderMarkdown renders Markdown for a terminal of the given width. It falls
// back to the raw Markdown if rendering fails.
func RenderMarkdown(content string, width int) string {
	if width <= 0 || width > maxRenderWidth {
		width = maxRenderWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSuffix(rendered, "\n")
}

// WriteSummary writes the run summary to out, rendered when out is a
// terminal and as plain Markdown otherwise.
func WriteSummary(out io.Writer, result loop.RunResult, terminal bool, width int) {
	content := FormatRunResult(result)
	if terminal {
		content = RenderMarkdown(content, width) + "\n"
	}
	_, _ = fmt.Fprintf(out, "\n%s", content)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
