package internal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrAborted is returned when input ends before a question is answered.
var ErrAborted = errors.New("aborted")

// Prompter asks line-oriented questions on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter reading answers from in and writing
// questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints the question and returns the trimmed answer. A blank answer
// yields def.
func (p *Prompter) Ask(question, def string) (string, error) {
	_, _ = fmt.Fprint(p.out, question)

	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	answer := strings.TrimSpace(line)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// AskRequired repeats the question until a non-blank answer is given.
func (p *Prompter) AskRequired(question string) (string, error) {
	for {
		answer, err := p.Ask(question, "")
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		_, _ = fmt.Fprintln(p.out, "A value is required.")
	}
}

// AskInt repeats the question until a positive integer is given.
func (p *Prompter) AskInt(question string, def int) (int, error) {
	for {
		answer, err := p.Ask(question, strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n > 0 {
			return n, nil
		}
		_, _ = fmt.Fprintln(p.out, "Please enter a positive integer.")
	}
}

// Confirm asks a yes/no question. Blank answers yield def.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	for {
		answer, err := p.Ask(question, "")
		if err != nil {
			return false, err
		}
		if answer == "" {
			return def, nil
		}
		if b, ok := parseYesNo(answer); ok {
			return b, nil
		}
		_, _ = fmt.Fprintln(p.out, "Please answer y or n.")
	}
}

func parseYesNo(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return b, true
}

// SplitList splits a comma-separated answer, dropping blank items.
func SplitList(s string) []string {
	items := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Output returns the writer questions are printed to.
func (p *Prompter) Output() io.Writer {
	return p.out
}
