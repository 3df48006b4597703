package guardrail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    string
	}{
		{"simple", "make test", "make-test"},
		{"punctuation collapses", "go test ./...", "go-test"},
		{"empty", "", "command"},
		{"only symbols", "!!! ;; ...", "command"},
		{"ampersands collapse", "go build && go test", "go-build-go-test"},
		{"at sign collapses", "npm run lint@latest", "npm-run-lint-latest"},
		{"mixed symbol run", "a &@| b", "a-b"},
		{"non-ascii is a separator", "echo café", "echo-caf"},
		{"leading and trailing symbols", "  ./run.sh --fast  ", "run-sh-fast"},
		{"uppercase is lowered", "Make TEST", "make-test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.command))
		})
	}
}

func TestSlug_Truncates(t *testing.T) {
	got := Slug(strings.Repeat("abc ", 40))

	assert.LessOrEqual(t, len(got), 60)
	assert.False(t, strings.HasSuffix(got, "-"))
	assert.True(t, strings.HasPrefix(got, "abc-abc"))
}

func TestSlugSet_Unique(t *testing.T) {
	set := newSlugSet()

	assert.Equal(t, "lint", set.unique("lint"))
	assert.Equal(t, "test", set.unique("test"))
	assert.Equal(t, "lint_1", set.unique("lint"))
	assert.Equal(t, "lint_2", set.unique("lint"))
	assert.Equal(t, "test_1", set.unique("test"))
}
