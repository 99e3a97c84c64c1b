package picker

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cinemax-app/subscribe/client/internal/workflow"
	"github.com/cinemax-app/subscribe/pkg/api"
)

func (m Model) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, m.deps.Timeout)
}

func (m Model) fetchPlans(e workflow.Epoch) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()
		plans, err := m.deps.Plans.ListPlans(ctx)
		return plansLoadedMsg{epoch: e, plans: plans, err: err}
	}
}

func (m Model) fetchCards(e workflow.Epoch) tea.Cmd {
	userID := m.deps.Session.UserID()
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()
		cards, err := m.deps.Cards.ListCards(ctx, userID)
		return cardsLoadedMsg{epoch: e, cards: cards, err: err}
	}
}

func (m Model) generateCode(e workflow.Epoch) tea.Cmd {
	opts := m.deps.Code
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()
		img, err := m.deps.Codes.Generate(ctx, opts.Target, opts.Width, opts.Margin)
		return codeGeneratedMsg{epoch: e, img: img, err: err}
	}
}

func (m Model) activate(a workflow.Activation) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()
		token, err := m.deps.Activator.SelectSubscription(ctx, a.UserID, a.PlanType)
		return activationDoneMsg{activation: a, token: token, err: err}
	}
}

func (m Model) registerCard(req api.RegisterCardRequest) tea.Cmd {
	userID := m.deps.Session.UserID()
	return func() tea.Msg {
		ctx, cancel := m.callContext()
		defer cancel()
		card, err := m.deps.Registrar.RegisterCard(ctx, userID, req)
		return cardRegisteredMsg{card: card, err: err}
	}
}
