package picker

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cinemax-app/subscribe/client/internal/tui"
	"github.com/cinemax-app/subscribe/client/internal/workflow"
)

type paymentItemKind int

const (
	itemStoredCard paymentItemKind = iota
	itemOneTimeCode
	itemCard
	itemAddCard
)

type paymentItem struct {
	kind   paymentItemKind
	cardID string
}

// paymentItems lists the focusable rows of the payment form in display order.
func (m Model) paymentItems() []paymentItem {
	items := []paymentItem{{kind: itemStoredCard}, {kind: itemOneTimeCode}}
	sel := m.state.Selection()
	if !sel.ShowingCards() {
		return items
	}
	for _, c := range sel.Cards() {
		items = append(items, paymentItem{kind: itemCard, cardID: c.ID})
	}
	return append(items, paymentItem{kind: itemAddCard})
}

func (m Model) updatePayment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.paymentItems()
	switch {
	case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
		if m.payCursor > 0 {
			m.payCursor--
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
		if m.payCursor < len(items)-1 {
			m.payCursor++
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("1"))):
		return m.chooseChannel(workflow.ChannelStoredCard)
	case key.Matches(msg, key.NewBinding(key.WithKeys("2"))):
		return m.chooseChannel(workflow.ChannelOneTimeCode)
	case key.Matches(msg, key.NewBinding(key.WithKeys("a"))):
		if m.state.Selection().ShowingCards() {
			return m.openAddCard()
		}
	case key.Matches(msg, key.NewBinding(key.WithKeys("enter", " "))):
		if m.payCursor >= len(items) {
			return m, nil
		}
		return m.activateItem(items[m.payCursor])
	case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
		m.state.ClosePaymentForm()
		m.pendingCode = 0
	}
	return m, nil
}

func (m Model) activateItem(it paymentItem) (tea.Model, tea.Cmd) {
	switch it.kind {
	case itemStoredCard:
		return m.chooseChannel(workflow.ChannelStoredCard)
	case itemOneTimeCode:
		return m.chooseChannel(workflow.ChannelOneTimeCode)
	case itemAddCard:
		return m.openAddCard()
	case itemCard:
		return m.selectCard(it.cardID)
	}
	return m, nil
}

func (m Model) chooseChannel(c workflow.Channel) (tea.Model, tea.Cmd) {
	e := m.state.ChooseChannel(c)
	switch c {
	case workflow.ChannelStoredCard:
		m.pendingCode = 0
		return m.cardsRequested(e)
	case workflow.ChannelOneTimeCode:
		m.pendingCode = e
		m.payCursor = 1
		return m, tea.Batch(m.spinner.Tick, m.generateCode(e))
	}
	return m, nil
}

func (m Model) selectCard(id string) (tea.Model, tea.Cmd) {
	plan := m.state.SelectCard(id)
	m.pendingCode = 0
	if c := m.state.ChosenCard(); c != nil {
		m.logger.Debug("card chosen", "card_id", c.ID)
	}
	if plan == nil {
		return m, nil
	}
	return m.selectPlan(*plan)
}

func (m Model) openAddCard() (tea.Model, tea.Cmd) {
	m.state.OpenAddCardForm()
	m.addCard = newAddCardForm()
	return m, m.addCard.Init()
}

func (m Model) viewPayment() string {
	s := tui.Subtitle.Render("Payment method") + "\n"
	if p := m.state.ChosenPlan(); p != nil {
		s += tui.Description.Render(p.Name+" · "+p.PriceLabel()) + "\n"
	}
	s += "\n"

	sel := m.state.Selection()
	items := m.paymentItems()
	row := func(i int, text string) string {
		if i == m.payCursor {
			return tui.Selected.Render("> ") + text + "\n"
		}
		return "  " + text + "\n"
	}
	radio := func(c workflow.Channel) string {
		if sel.Channel() == c {
			return tui.Selected.Render("(•)")
		}
		return "( )"
	}

	s += row(0, radio(workflow.ChannelStoredCard)+" Stored card")
	s += row(1, radio(workflow.ChannelOneTimeCode)+" One-time payment code")
	s += "\n"

	switch {
	case sel.ShowingCards():
		s += m.viewCards(items, row)
	case sel.Channel() == workflow.ChannelOneTimeCode:
		s += m.viewCode()
	}

	help := "  ↑/↓ navigate • enter select • 1 card • 2 code"
	if sel.ShowingCards() {
		help += " • a add card"
	}
	s += "\n" + tui.Help.Render(help+" • esc close")
	return s
}

func (m Model) viewCards(items []paymentItem, row func(int, string) string) string {
	cards := m.state.Selection().Cards()
	var s string
	if len(cards) == 0 {
		if m.pendingCards != 0 {
			s += "  " + m.spinner.View() + " Loading cards...\n"
		} else {
			s += "  " + tui.Dimmed.Render("No cards yet") + "\n"
		}
	}
	for i, it := range items {
		switch it.kind {
		case itemCard:
			c := cards[i-2]
			text := c.Masked()
			if c.Selected {
				text = tui.Highlight.Render(" " + text + " ")
			}
			s += row(i, "    "+text)
		case itemAddCard:
			s += row(i, "    "+tui.ButtonStyle(i == m.payCursor).Render("+ Add card"))
		}
	}
	return s
}

func (m Model) viewCode() string {
	code := m.state.Selection().Code()
	switch {
	case code != nil:
		return tui.CodeBox.Render(code.Terminal) + "\n" +
			"  " + tui.Description.Render("Scan to pay") + "\n"
	case m.pendingCode != 0:
		return "  " + m.spinner.View() + " Generating code...\n"
	default:
		return "  " + tui.ErrorStyle.Render("Code unavailable. Press 2 to try again.") + "\n"
	}
}
