package picker

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// IsTTY reports whether stdin is a terminal the picker can take over.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Run launches the full-screen picker and blocks until it exits.
func Run(ctx context.Context, deps Deps) (Result, error) {
	m := NewModel(ctx, deps)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return Result{}, fmt.Errorf("TUI error: %w", err)
	}
	return finalModel.(Model).Result(), nil
}
