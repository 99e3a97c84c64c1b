package picker

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cinemax-app/subscribe/client/internal/tui"
)

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, key.NewBinding(key.WithKeys("y", "enter"))):
		return m.confirm()
	case key.Matches(msg, key.NewBinding(key.WithKeys("n", "esc"))):
		return m.cardsRequested(m.state.CancelConfirmation())
	}
	return m, nil
}

func (m Model) viewConfirm() string {
	s := tui.Subtitle.Render("Confirm payment") + "\n\n"
	s += "  " + m.state.ConfirmMessage() + "\n\n"
	s += "  " + lipgloss.JoinHorizontal(lipgloss.Top,
		tui.ButtonStyle(true).Render("Yes, continue"),
		"  ",
		tui.ButtonStyle(false).Render("No, change"),
	) + "\n"
	s += "\n" + tui.Help.Render("  y/enter confirm • n/esc change payment method")
	return s
}
