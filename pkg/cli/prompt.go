// Package cli provides line-oriented terminal prompts for non-interactive
// terminals and piped input.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// ErrInputClosed is returned once the input reaches EOF.
var ErrInputClosed = errors.New("input closed")

// Prompter handles terminal prompts.
type Prompter struct {
	In      io.Reader
	Out     io.Writer
	scanner *bufio.Scanner
}

// DefaultPrompter returns a Prompter connected to stdin/stdout.
func DefaultPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stdout}
}

func (p *Prompter) scan() *bufio.Scanner {
	if p.scanner == nil {
		p.scanner = bufio.NewScanner(p.In)
	}
	return p.scanner
}

// readLine reads a single trimmed line from the scanner.
func (p *Prompter) readLine() (string, error) {
	if p.scan().Scan() {
		return strings.TrimSpace(p.scan().Text()), nil
	}
	if err := p.scan().Err(); err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return "", ErrInputClosed
}

// Ask prints a question with a default value and reads one line.
// Returns the default if the user presses Enter without typing.
func (p *Prompter) Ask(question, defaultVal string) (string, error) {
	if defaultVal != "" {
		_, _ = fmt.Fprintf(p.Out, "%s [%s]: ", question, defaultVal)
	} else {
		_, _ = fmt.Fprintf(p.Out, "%s: ", question)
	}
	line, err := p.readLine()
	if err != nil {
		return "", err
	}
	if line != "" {
		return line, nil
	}
	return defaultVal, nil
}

// AskSecret reads a line without echoing. Falls back to plain read if
// stdin is not a terminal (e.g. during tests or piped input).
func (p *Prompter) AskSecret(question string) (string, error) {
	_, _ = fmt.Fprintf(p.Out, "%s: ", question)

	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(p.Out) // newline after hidden input
		if err == nil {
			return strings.TrimSpace(string(b)), nil
		}
	}

	return p.readLine()
}

// ChooseIndex presents a numbered list of options and returns the index of
// the chosen one. Invalid answers are asked again.
func (p *Prompter) ChooseIndex(question string, options []string, defaultIdx int) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("no options to choose from")
	}
	if defaultIdx < 0 || defaultIdx >= len(options) {
		defaultIdx = 0
	}

	_, _ = fmt.Fprintf(p.Out, "%s\n", question)
	for i, opt := range options {
		marker := "  "
		if i == defaultIdx {
			marker = "> "
		}
		_, _ = fmt.Fprintf(p.Out, "%s%d) %s\n", marker, i+1, opt)
	}

	for {
		ans, err := p.Ask("Choice", strconv.Itoa(defaultIdx+1))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(ans)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		_, _ = fmt.Fprintf(p.Out, "  Please enter a number between 1 and %d.\n", len(options))
	}
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(question string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}
	ans, err := p.Ask(fmt.Sprintf("%s [%s]", question, hint), "")
	if err != nil {
		return false, err
	}
	if ans == "" {
		return defaultYes, nil
	}
	return strings.HasPrefix(strings.ToLower(ans), "y"), nil
}
