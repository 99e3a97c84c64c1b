package picker

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cinemax-app/subscribe/client/internal/tui"
)

func (m Model) updatePlans(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.state.Catalog().Len()
	switch {
	case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k", "left", "h"))):
		if m.planCursor > 0 {
			m.planCursor--
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j", "right", "l"))):
		if m.planCursor < n-1 {
			m.planCursor++
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("enter", " "))):
		plan, ok := m.state.Catalog().At(m.planCursor)
		if !ok {
			return m, nil
		}
		return m.selectPlan(plan)
	case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
		m.state.ClosePlanPicker()
	}
	return m, nil
}

func (m Model) viewPlans() string {
	s := tui.Subtitle.Render("Choose your plan") + "\n\n"

	plans := m.state.Catalog().Plans()
	switch {
	case len(plans) == 0 && m.pendingPlans != 0:
		s += "  " + m.spinner.View() + " Loading plans...\n"
	case len(plans) == 0:
		s += "  " + tui.Dimmed.Render("No plans available") + "\n"
	default:
		cards := make([]string, len(plans))
		for i, p := range plans {
			var b strings.Builder
			b.WriteString(tui.Subtitle.Render(p.Name) + "\n")
			b.WriteString(tui.Selected.Render(p.PriceLabel()) + tui.Dimmed.Render(" /month") + "\n\n")
			for _, benefit := range p.Benefits {
				b.WriteString("✓ " + benefit + "\n")
			}
			style := tui.PlanCard
			if i == m.planCursor {
				style = tui.PlanCardFocused
			}
			cards[i] = style.Render(strings.TrimRight(b.String(), "\n"))
		}
		s += lipgloss.JoinVertical(lipgloss.Left, cards...) + "\n"
	}

	s += "\n" + tui.Help.Render("  ↑/↓ navigate • enter select • esc close")
	return s
}
