package picker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemax-app/subscribe/client/internal/onetimecode"
	"github.com/cinemax-app/subscribe/client/internal/workflow"
	"github.com/cinemax-app/subscribe/pkg/api"
)

type fakeAPI struct {
	mu sync.Mutex

	plans    []api.Plan
	plansErr error
	cards    []api.StoredCard
	cardsErr error

	token       string
	activateErr error
	activations []workflow.Activation

	registerErr error
	registered  []api.RegisterCardRequest

	planCalls int
	cardCalls int
}

func (f *fakeAPI) ListPlans(context.Context) ([]api.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.planCalls++
	return f.plans, f.plansErr
}

func (f *fakeAPI) ListCards(_ context.Context, _ string) ([]api.StoredCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cardCalls++
	return append([]api.StoredCard(nil), f.cards...), f.cardsErr
}

func (f *fakeAPI) RegisterCard(_ context.Context, _ string, req api.RegisterCardRequest) (api.StoredCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, req)
	if f.registerErr != nil {
		return api.StoredCard{}, f.registerErr
	}
	card := api.StoredCard{ID: "new", CardNumber: req.CardNumber}
	f.cards = append(f.cards, card)
	return card, nil
}

func (f *fakeAPI) SelectSubscription(_ context.Context, userID, planType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activations = append(f.activations, workflow.Activation{UserID: userID, PlanType: planType})
	return f.token, f.activateErr
}

type fakeSession struct {
	userID   string
	replaced []string
}

func (s *fakeSession) UserID() string { return s.userID }

func (s *fakeSession) ReplaceCredential(token string) error {
	s.replaced = append(s.replaced, token)
	return nil
}

type fakeCodes struct {
	img *onetimecode.Image
	err error
}

func (c *fakeCodes) Generate(context.Context, string, int, int) (*onetimecode.Image, error) {
	return c.img, c.err
}

func testPlans() []api.Plan {
	return []api.Plan{
		{ID: "p0", Type: "basic", Name: "Basic", Price: decimal.RequireFromString("19.9"), Benefits: []string{"HD"}},
		{ID: "p1", Type: "premium", Name: "Premium", Price: decimal.RequireFromString("39.9"), Benefits: []string{"4K", "4 screens"}},
	}
}

func newTestModel(t *testing.T, f *fakeAPI, codes *fakeCodes) (Model, *fakeSession) {
	t.Helper()
	if codes == nil {
		codes = &fakeCodes{}
	}
	sess := &fakeSession{userID: "u1"}
	m := NewModel(context.Background(), Deps{
		Plans:     f,
		Cards:     f,
		Registrar: f,
		Activator: f,
		Codes:     codes,
		Session:   sess,
		NoticeTTL: time.Millisecond,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})),
	})
	return drain(t, m, m.Init()), sess
}

// drain runs cmd and every command it leads to, feeding the picker's own
// messages back into Update. Spinner, cursor and notice-expiry ticks are
// dropped so assertions see a settled model.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case plansLoadedMsg, cardsLoadedMsg, codeGeneratedMsg, activationDoneMsg,
			cardRegisteredMsg, viewRefreshMsg, addCardSubmitMsg, addCardClosedMsg:
			next, nc := m.Update(msg)
			m = next.(Model)
			queue = append(queue, nc)
		}
	}
	return m
}

func keyPress(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(keyPress(k))
		m = drain(t, next.(Model), cmd)
	}
	return m
}

func TestInit_OpensPlanPicker(t *testing.T) {
	f := &fakeAPI{plans: testPlans()}
	m, _ := newTestModel(t, f, nil)

	assert.Equal(t, workflow.ModalPlanPicker, m.State().Modal())
	assert.Equal(t, 2, m.State().Catalog().Len())
	view := m.View()
	assert.Contains(t, view, "Premium")
	assert.Contains(t, view, "R$ 39.90")
}

func TestPlanPicker_CatalogFailure(t *testing.T) {
	f := &fakeAPI{plansErr: errors.New("connection refused")}
	m, _ := newTestModel(t, f, nil)

	assert.Zero(t, m.State().Catalog().Len())
	assert.Contains(t, m.View(), "No plans available")

	m = press(t, m, "enter")
	assert.Equal(t, workflow.ModalPlanPicker, m.State().Modal(), "nothing selectable")
}

func TestPlanPicker_ReopenRefetches(t *testing.T) {
	f := &fakeAPI{plans: testPlans()}
	m, _ := newTestModel(t, f, nil)

	m = press(t, m, "esc")
	assert.Equal(t, workflow.ModalClosed, m.State().Modal())

	m = press(t, m, "p")
	assert.Equal(t, workflow.ModalPlanPicker, m.State().Modal())
	assert.Equal(t, 2, f.planCalls)
}

func TestStalePlansIgnored(t *testing.T) {
	f := &fakeAPI{plans: testPlans()}
	m, _ := newTestModel(t, f, nil)

	next, _ := m.Update(plansLoadedMsg{epoch: 0, plans: nil})
	m = next.(Model)
	assert.Equal(t, 2, m.State().Catalog().Len())
}

// A user without cards picks premium: the payment form opens and the stored
// card channel offers registration.
func TestScenario_NoCardsOffersAddCard(t *testing.T) {
	f := &fakeAPI{plans: testPlans()}
	m, _ := newTestModel(t, f, nil)

	m = press(t, m, "down", "enter")
	require.Equal(t, workflow.ModalPaymentForm, m.State().Modal())
	require.NotNil(t, m.State().ChosenPlan())
	assert.Equal(t, "premium", m.State().ChosenPlan().Type)

	m = press(t, m, "1")
	assert.Equal(t, workflow.ChannelStoredCard, m.State().Selection().Channel())
	assert.True(t, m.State().Selection().ShowingCards())
	assert.Empty(t, m.State().Selection().Cards())

	view := m.View()
	assert.Contains(t, view, "No cards yet")
	assert.Contains(t, view, "Add card")
}

// A user picks card c1 and then confirms: premium is activated for them.
func TestScenario_ConfirmActivates(t *testing.T) {
	f := &fakeAPI{
		plans: testPlans(),
		cards: []api.StoredCard{{ID: "c1", CardNumber: "4111111111111111"}},
		token: "renewed",
	}
	m, sess := newTestModel(t, f, nil)

	m = press(t, m, "down", "enter", "1")
	require.Len(t, m.State().Selection().Cards(), 1)

	// Rows: stored card, one-time code, c1, add card.
	m = press(t, m, "down", "down", "enter")
	require.Equal(t, workflow.ModalConfirmation, m.State().Modal())
	assert.Contains(t, m.View(), "Continue paying for the premium subscription with card **** **** **** 1111?")

	m = press(t, m, "y")

	require.Len(t, f.activations, 1)
	assert.Equal(t, workflow.Activation{UserID: "u1", PlanType: "premium"}, f.activations[0])
	assert.Equal(t, []string{"renewed"}, sess.replaced)

	assert.Equal(t, Result{Activated: true, PlanType: "premium"}, m.Result())
	assert.Nil(t, m.State().ChosenPlan(), "view refreshed")
	assert.Contains(t, m.View(), "premium subscription is active")
}

// The backend rejects the activation: the error is shown and the choices
// survive for a retry.
func TestScenario_ActivationFailureKeepsChoices(t *testing.T) {
	f := &fakeAPI{
		plans:       testPlans(),
		cards:       []api.StoredCard{{ID: "c1", CardNumber: "4111111111111111"}},
		activateErr: errors.New("payment declined"),
	}
	m, sess := newTestModel(t, f, nil)

	m = press(t, m, "down", "enter", "1", "down", "down", "enter", "y")

	require.Len(t, f.activations, 1)
	assert.Empty(t, sess.replaced)
	assert.False(t, m.Result().Activated)
	assert.False(t, m.State().Activating())
	assert.Contains(t, m.View(), "Activation failed: payment declined")

	require.NotNil(t, m.State().ChosenPlan())
	require.NotNil(t, m.State().ChosenCard())
	assert.Equal(t, "premium", m.State().ChosenPlan().Type)
	assert.Equal(t, "c1", m.State().ChosenCard().ID)

	// The confirmation comes straight back so a retry is one key press.
	require.Equal(t, workflow.ModalConfirmation, m.State().Modal())
	assert.Contains(t, m.View(), "Continue paying for the premium subscription")

	f.mu.Lock()
	f.activateErr = nil
	f.mu.Unlock()
	m = press(t, m, "y")
	require.Len(t, f.activations, 2)
	assert.Equal(t, Result{Activated: true, PlanType: "premium"}, m.Result())
}

// While an activation is still in flight a second confirmation is turned
// away with a notice and never reaches the backend.
func TestConfirm_RejectedWhileActivationInFlight(t *testing.T) {
	f := &fakeAPI{
		plans: testPlans(),
		cards: []api.StoredCard{{ID: "c1", CardNumber: "4111111111111111"}},
	}
	m, _ := newTestModel(t, f, nil)
	m = press(t, m, "down", "enter", "1", "down", "down", "enter")
	require.Equal(t, workflow.ModalConfirmation, m.State().Modal())

	// Hold the first activation's command instead of running it.
	next, pending := m.Update(keyPress("y"))
	m = next.(Model)
	require.True(t, m.State().Activating())
	assert.Contains(t, m.View(), "Activating subscription")

	m = press(t, m, "p", "down", "enter")
	require.Equal(t, workflow.ModalConfirmation, m.State().Modal())
	next, _ = m.Update(keyPress("y"))
	m = next.(Model)

	assert.Contains(t, m.View(), "An activation is already in progress")
	assert.Empty(t, f.activations)

	m = drain(t, m, pending)
	require.Len(t, f.activations, 1)
	assert.Equal(t, Result{Activated: true, PlanType: "premium"}, m.Result())
}

func TestConfirmation_CancelReturnsToPaymentForm(t *testing.T) {
	f := &fakeAPI{
		plans: testPlans(),
		cards: []api.StoredCard{{ID: "c1", CardNumber: "4111111111111111"}},
	}
	m, _ := newTestModel(t, f, nil)
	m = press(t, m, "down", "enter", "1", "down", "down", "enter")
	require.Equal(t, workflow.ModalConfirmation, m.State().Modal())
	calls := f.cardCalls

	m = press(t, m, "n")

	assert.Equal(t, workflow.ModalPaymentForm, m.State().Modal())
	assert.Equal(t, calls+1, f.cardCalls)
	assert.Equal(t, "c1", m.State().ChosenCard().ID)
	assert.Empty(t, f.activations)
}

func TestOneTimeCode(t *testing.T) {
	f := &fakeAPI{plans: testPlans()}
	codes := &fakeCodes{img: &onetimecode.Image{Terminal: "▀▄▀", Width: 200}}
	m, _ := newTestModel(t, f, codes)
	m = press(t, m, "enter")
	require.Equal(t, workflow.ModalPaymentForm, m.State().Modal())

	m = press(t, m, "2")
	assert.Equal(t, workflow.ChannelOneTimeCode, m.State().Selection().Channel())
	assert.False(t, m.State().Selection().ShowingCards())
	require.NotNil(t, m.State().Selection().Code())
	assert.Contains(t, m.View(), "Scan to pay")

	m = press(t, m, "1")
	assert.Nil(t, m.State().Selection().Code())
}

func TestOneTimeCode_Failure(t *testing.T) {
	f := &fakeAPI{plans: testPlans()}
	m, _ := newTestModel(t, f, &fakeCodes{err: errors.New("encode failed")})
	m = press(t, m, "enter", "2")

	assert.Nil(t, m.State().Selection().Code())
	assert.Contains(t, m.View(), "Code unavailable")
}

func TestAddCard(t *testing.T) {
	f := &fakeAPI{plans: testPlans()}
	m, _ := newTestModel(t, f, nil)
	m = press(t, m, "enter", "1", "a")
	require.Equal(t, workflow.ModalAddCard, m.State().Modal())

	m = press(t, m,
		"4111 1111 1111 1111", "enter",
		"Ana Souza", "enter",
		"12/30", "enter",
		"123", "enter",
	)

	require.Len(t, f.registered, 1)
	assert.Equal(t, api.RegisterCardRequest{
		CardNumber: "4111111111111111",
		HolderName: "Ana Souza",
		Expiry:     "12/30",
		CVV:        "123",
	}, f.registered[0])
	assert.Equal(t, workflow.ModalPaymentForm, m.State().Modal())
	require.Len(t, m.State().Selection().Cards(), 1)
	assert.Contains(t, m.View(), "**** **** **** 1111")
}

func TestAddCard_FailureKeepsFormOpen(t *testing.T) {
	f := &fakeAPI{plans: testPlans(), registerErr: errors.New("invalid card number")}
	m, _ := newTestModel(t, f, nil)
	m = press(t, m, "enter", "1", "a", "1234", "enter", "x", "enter", "01/30", "enter", "999", "enter")

	assert.Equal(t, workflow.ModalAddCard, m.State().Modal())
	assert.True(t, strings.Contains(m.View(), "Could not add card: invalid card number"))

	m = press(t, m, "esc")
	assert.Equal(t, workflow.ModalPaymentForm, m.State().Modal())
}

func TestClosePaymentFormKeepsCard(t *testing.T) {
	f := &fakeAPI{
		plans: testPlans(),
		cards: []api.StoredCard{{ID: "c1", CardNumber: "5555444433332222"}},
	}
	m, _ := newTestModel(t, f, nil)
	m = press(t, m, "enter", "1", "down", "down", "enter", "n", "esc")

	assert.Equal(t, workflow.ModalClosed, m.State().Modal())
	assert.Equal(t, workflow.ChannelNone, m.State().Selection().Channel())
	require.NotNil(t, m.State().ChosenCard())
	assert.Contains(t, m.View(), "**** **** **** 2222")
}

func TestNoticeExpires(t *testing.T) {
	f := &fakeAPI{plans: testPlans()}
	m, _ := newTestModel(t, f, nil)

	next, _ := m.showNotice("hello", false)
	m = next.(Model)
	assert.Contains(t, m.View(), "hello")

	next, _ = m.Update(noticeExpiredMsg{seq: m.notice.seq - 1})
	m = next.(Model)
	assert.Contains(t, m.View(), "hello", "older expiry is ignored")

	next, _ = m.Update(noticeExpiredMsg{seq: m.notice.seq})
	m = next.(Model)
	assert.NotContains(t, m.View(), "hello")
}

func TestQuit(t *testing.T) {
	f := &fakeAPI{plans: testPlans()}
	m, _ := newTestModel(t, f, nil)
	m = press(t, m, "esc")

	next, cmd := m.Update(keyPress("q"))
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Result().Cancelled)
}
