package picker

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cinemax-app/subscribe/client/internal/tui"
	"github.com/cinemax-app/subscribe/pkg/api"
)

type addCardField int

const (
	fieldNumber addCardField = iota
	fieldHolder
	fieldExpiry
	fieldCVV
)

// addCardSubmitMsg carries the filled-in form to the root model.
type addCardSubmitMsg struct {
	req api.RegisterCardRequest
}

// addCardClosedMsg returns to the payment form without saving.
type addCardClosedMsg struct{}

type addCardModel struct {
	inputs     []textinput.Model
	focused    addCardField
	submitting bool
}

func newAddCardForm() addCardModel {
	number := textinput.New()
	number.Placeholder = "4111 1111 1111 1111"
	number.CharLimit = 23
	number.Width = 24

	holder := textinput.New()
	holder.Placeholder = "Name on card"
	holder.CharLimit = 80
	holder.Width = 30

	expiry := textinput.New()
	expiry.Placeholder = "MM/YY"
	expiry.CharLimit = 5
	expiry.Width = 6

	cvv := textinput.New()
	cvv.Placeholder = "123"
	cvv.CharLimit = 4
	cvv.Width = 5
	cvv.EchoMode = textinput.EchoPassword
	cvv.EchoCharacter = '•'

	return addCardModel{inputs: []textinput.Model{number, holder, expiry, cvv}}
}

func (m addCardModel) Init() tea.Cmd {
	m.inputs[fieldNumber].Focus()
	return textinput.Blink
}

func (m addCardModel) Update(msg tea.Msg) (addCardModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.submitting {
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			return m.focus(m.focused + 1)
		case "shift+tab", "up":
			return m.focus(m.focused - 1)
		case "enter":
			if m.focused == fieldCVV {
				return m, m.submit()
			}
			return m.focus(m.focused + 1)
		case "esc":
			return m, func() tea.Msg { return addCardClosedMsg{} }
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

func (m addCardModel) focus(f addCardField) (addCardModel, tea.Cmd) {
	if f < fieldNumber {
		f = fieldNumber
	}
	if f > fieldCVV {
		f = fieldCVV
	}
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.focused = f
	m.inputs[f].Focus()
	return m, textinput.Blink
}

func (m addCardModel) submit() tea.Cmd {
	req := api.RegisterCardRequest{
		CardNumber: strings.ReplaceAll(strings.TrimSpace(m.inputs[fieldNumber].Value()), " ", ""),
		HolderName: strings.TrimSpace(m.inputs[fieldHolder].Value()),
		Expiry:     strings.TrimSpace(m.inputs[fieldExpiry].Value()),
		CVV:        strings.TrimSpace(m.inputs[fieldCVV].Value()),
	}
	return func() tea.Msg { return addCardSubmitMsg{req: req} }
}

func (m addCardModel) View() string {
	s := tui.Subtitle.Render("Add card") + "\n\n"

	labels := []string{"Card number:", "Name on card:", "Expiry (MM/YY):", "CVV:"}
	for i, label := range labels {
		prefix := "  "
		if addCardField(i) == m.focused {
			prefix = tui.Selected.Render("> ")
		}
		s += prefix + label + "\n  " + m.inputs[i].View() + "\n"
	}

	if m.submitting {
		s += "\n  " + tui.Dimmed.Render("Saving card...") + "\n"
	}
	s += "\n" + tui.Help.Render("  tab/↓ next • shift+tab/↑ prev • enter submit • esc back")
	return s
}
