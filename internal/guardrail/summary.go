package guardrail

import (
	"fmt"
	"strings"
)

// Summary renders the feedback text for a failed guardrail. Output is cut to
// the first truncate characters; the full text stays in the log file.
func Summary(f Failure, truncate int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Guardrail \"%s\" failed with exit code %d.\n", f.Guardrail.Command, f.ExitCode)
	if hint := strings.TrimSpace(f.Guardrail.Hint); hint != "" {
		fmt.Fprintf(&b, "Hint: %s\n", hint)
	}
	fmt.Fprintf(&b, "Output file: %s\n", f.LogPath)
	b.WriteString("Output (truncated):\n")
	b.WriteString(Truncate(f.Output, truncate))

	return strings.TrimSpace(b.String())
}

// Truncate returns at most n characters of s. A non-positive n keeps nothing.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
