// Package response extracts the completion token from agent output.
package response

import (
	"regexp"
	"strings"
)

var responseTag = regexp.MustCompile(`(?is)<response>(.*?)</response>`)

// Extract returns the trimmed content of the first <response>...</response>
// block in output. The tag match ignores case and may span lines.
// ok is false when no block is present.
func Extract(output string) (string, bool) {
	m := responseTag.FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Matches reports whether output carries a response block equal to expected,
// ignoring case and surrounding whitespace.
func Matches(output, expected string) bool {
	got, ok := Extract(output)
	if !ok {
		return false
	}
	return strings.EqualFold(got, strings.TrimSpace(expected))
}
