package guardrail

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
)

const (
	maxSlugLength = 60
	fallbackSlug  = "command"
)

// separatorRun matches every run of characters that is not ASCII alphanumeric.
var separatorRun = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Slug turns a guardrail command into a file-name-safe fragment. Each run of
// non-alphanumeric characters becomes a single "-"; symbols are never spelled
// out as words.
func Slug(command string) string {
	s := slug.Make(separatorRun.ReplaceAllString(command, "-"))
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	if s == "" {
		return fallbackSlug
	}
	return s
}

// slugSet hands out unique slugs within one iteration.
type slugSet map[string]int

func newSlugSet() slugSet {
	return make(slugSet)
}

// unique returns base for its first use and base_1, base_2, ... after that.
func (s slugSet) unique(base string) string {
	n := s[base]
	s[base]++
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, n)
}
