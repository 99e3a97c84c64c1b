// Package picker is the interactive subscription flow: plan picker, payment
// method form, card registration and confirmation, driven by bubbletea.
package picker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cinemax-app/subscribe/client/internal/onetimecode"
	"github.com/cinemax-app/subscribe/client/internal/tui"
	"github.com/cinemax-app/subscribe/client/internal/workflow"
	"github.com/cinemax-app/subscribe/pkg/api"
)

// PlanSource lists the plans on offer.
type PlanSource interface {
	ListPlans(ctx context.Context) ([]api.Plan, error)
}

// CardSource lists a user's stored cards.
type CardSource interface {
	ListCards(ctx context.Context, userID string) ([]api.StoredCard, error)
}

// CardRegistrar stores a new card for a user.
type CardRegistrar interface {
	RegisterCard(ctx context.Context, userID string, req api.RegisterCardRequest) (api.StoredCard, error)
}

// Activator activates a plan for a user. It may return a renewed credential.
type Activator interface {
	SelectSubscription(ctx context.Context, userID, planType string) (string, error)
}

// CodeGenerator renders the one-time payment code.
type CodeGenerator interface {
	Generate(ctx context.Context, target string, width, margin int) (*onetimecode.Image, error)
}

// Session is the signed-in user.
type Session interface {
	UserID() string
	ReplaceCredential(token string) error
}

// CodeOptions configures the one-time code.
type CodeOptions struct {
	Target string
	Width  int
	Margin int
}

// Deps are the collaborators the picker talks to.
type Deps struct {
	Plans     PlanSource
	Cards     CardSource
	Registrar CardRegistrar
	Activator Activator
	Codes     CodeGenerator
	Session   Session

	Code      CodeOptions
	Timeout   time.Duration // per collaborator call
	NoticeTTL time.Duration
	Logger    *slog.Logger
}

// WithDefaults fills in unset options.
func (d Deps) WithDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Second
	}
	if d.NoticeTTL <= 0 {
		d.NoticeTTL = defaultNoticeTTL
	}
	if d.Code.Target == "" {
		d.Code.Target = onetimecode.DefaultTarget
	}
	if d.Code.Width <= 0 {
		d.Code.Width = onetimecode.DefaultWidth
	}
	return d
}

// Result is returned when the picker exits.
type Result struct {
	Activated bool
	PlanType  string
	Cancelled bool
}

const defaultNoticeTTL = 5 * time.Second

type notice struct {
	text    string
	isError bool
	seq     int
}

// Model is the root picker model.
type Model struct {
	ctx    context.Context
	deps   Deps
	logger *slog.Logger

	state   *workflow.State
	spinner spinner.Model
	width   int
	height  int

	planCursor int
	payCursor  int
	addCard    addCardModel

	// Epochs of fetches still outstanding; zero when settled.
	pendingPlans workflow.Epoch
	pendingCards workflow.Epoch
	pendingCode  workflow.Epoch

	notice    notice
	activated string

	result Result
}

// NewModel creates the picker with the plan picker already open.
func NewModel(ctx context.Context, deps Deps) Model {
	deps = deps.WithDefaults()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = tui.Selected

	m := Model{
		ctx:     ctx,
		deps:    deps,
		logger:  deps.Logger.With("component", "picker"),
		state:   workflow.New(),
		spinner: sp,
		addCard: newAddCardForm(),
	}
	m.pendingPlans = m.state.OpenPlanPicker()
	return m
}

// Result returns the outcome once the program has exited.
func (m Model) Result() Result { return m.result }

// State exposes the workflow for inspection.
func (m Model) State() *workflow.State { return m.state }

// Messages

type plansLoadedMsg struct {
	epoch workflow.Epoch
	plans []api.Plan
	err   error
}

type cardsLoadedMsg struct {
	epoch workflow.Epoch
	cards []api.StoredCard
	err   error
}

type codeGeneratedMsg struct {
	epoch workflow.Epoch
	img   *onetimecode.Image
	err   error
}

type activationDoneMsg struct {
	activation workflow.Activation
	token      string
	err        error
}

type cardRegisteredMsg struct {
	card api.StoredCard
	err  error
}

// viewRefreshMsg tells the view to drop all workflow state and re-read the
// session after the credential changed.
type viewRefreshMsg struct {
	planType string
}

type noticeExpiredMsg struct {
	seq int
}

// Init starts the catalog fetch for the initially open plan picker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchPlans(m.pendingPlans))
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+c"))) {
			m.result.Cancelled = m.activated == ""
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case plansLoadedMsg:
		if msg.err != nil {
			m.logger.Error("list plans failed", "error", msg.err)
		}
		if m.state.ApplyCatalog(msg.epoch, msg.plans, msg.err) {
			m.pendingPlans = 0
			m.planCursor = clamp(m.planCursor, m.state.Catalog().Len())
		}
		return m, nil

	case cardsLoadedMsg:
		if msg.err != nil {
			m.logger.Error("list cards failed", "error", msg.err)
		}
		if m.state.ApplyCards(msg.epoch, msg.cards, msg.err) {
			m.pendingCards = 0
			m.payCursor = clamp(m.payCursor, len(m.paymentItems()))
		}
		return m, nil

	case codeGeneratedMsg:
		if msg.err != nil {
			m.logger.Error("generate one-time code failed", "error", msg.err)
		}
		if m.state.ApplyCode(msg.epoch, msg.img, msg.err) {
			m.pendingCode = 0
		}
		return m, nil

	case activationDoneMsg:
		return m.activationDone(msg)

	case viewRefreshMsg:
		m.state = workflow.New()
		m.activated = msg.planType
		m.result = Result{Activated: true, PlanType: msg.planType}
		m.planCursor, m.payCursor = 0, 0
		m.pendingPlans, m.pendingCards, m.pendingCode = 0, 0, 0
		return m.showNotice(fmt.Sprintf("Subscription active: %s", msg.planType), false)

	case noticeExpiredMsg:
		if msg.seq == m.notice.seq {
			m.notice.text = ""
		}
		return m, nil

	case addCardSubmitMsg:
		m.addCard.submitting = true
		return m, m.registerCard(msg.req)

	case addCardClosedMsg:
		m.state.CloseAddCardForm()
		m.addCard = newAddCardForm()
		return m, nil

	case cardRegisteredMsg:
		return m.cardRegistered(msg)
	}

	if m.state.Modal() == workflow.ModalAddCard {
		var cmd tea.Cmd
		m.addCard, cmd = m.addCard.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state.Modal() {
	case workflow.ModalPlanPicker:
		return m.updatePlans(msg)
	case workflow.ModalPaymentForm:
		return m.updatePayment(msg)
	case workflow.ModalAddCard:
		var cmd tea.Cmd
		m.addCard, cmd = m.addCard.Update(msg)
		return m, cmd
	case workflow.ModalConfirmation:
		return m.updateConfirm(msg)
	}

	switch {
	case key.Matches(msg, key.NewBinding(key.WithKeys("p", "enter"))):
		return m.openPlanPicker()
	case key.Matches(msg, key.NewBinding(key.WithKeys("q", "esc"))):
		m.result.Cancelled = m.activated == ""
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) openPlanPicker() (tea.Model, tea.Cmd) {
	e := m.state.OpenPlanPicker()
	m.pendingPlans = e
	return m, tea.Batch(m.spinner.Tick, m.fetchPlans(e))
}

// selectPlan runs the confirmation gate for plan and issues the card fetch
// when it routes to the payment form.
func (m Model) selectPlan(plan api.Plan) (tea.Model, tea.Cmd) {
	d, e := m.state.SelectPlan(plan)
	m.logger.Debug("plan selected", "plan", plan.Type, "decision", d.String())
	if d == workflow.DecisionConfirm {
		return m, nil
	}
	return m.cardsRequested(e)
}

func (m Model) cardsRequested(e workflow.Epoch) (tea.Model, tea.Cmd) {
	m.pendingCards = e
	m.payCursor = 0
	return m, tea.Batch(m.spinner.Tick, m.fetchCards(e))
}

func (m Model) confirm() (tea.Model, tea.Cmd) {
	a, err := m.state.BeginActivation(m.deps.Session.UserID())
	switch {
	case errors.Is(err, workflow.ErrActivationInFlight):
		m.logger.Warn("activation already in flight")
		return m.showNotice("An activation is already in progress", true)
	case err != nil:
		m.logger.Error("activation not started", "error", err)
		return m.showNotice(fmt.Sprintf("Activation failed: %v", err), true)
	}
	m.logger.Info("activating subscription", "user_id", a.UserID, "plan", a.PlanType)
	return m, tea.Batch(m.spinner.Tick, m.activate(a))
}

func (m Model) activationDone(msg activationDoneMsg) (tea.Model, tea.Cmd) {
	m.state.FinishActivation(msg.activation)
	if msg.err != nil {
		m.logger.Error("activation failed", "plan", msg.activation.PlanType, "error", msg.err)
		m.state.ReopenConfirmation()
		return m.showNotice(fmt.Sprintf("Activation failed: %v", msg.err), true)
	}

	if msg.token != "" {
		if err := m.deps.Session.ReplaceCredential(msg.token); err != nil {
			m.logger.Warn("store renewed credential", "error", err)
		}
	}
	planType := msg.activation.PlanType
	return m, func() tea.Msg { return viewRefreshMsg{planType: planType} }
}

func (m Model) cardRegistered(msg cardRegisteredMsg) (tea.Model, tea.Cmd) {
	m.addCard.submitting = false
	if msg.err != nil {
		m.logger.Error("register card failed", "error", msg.err)
		return m.showNotice(fmt.Sprintf("Could not add card: %v", msg.err), true)
	}
	m.logger.Info("card registered", "card_id", msg.card.ID)
	m.state.CloseAddCardForm()
	m.addCard = newAddCardForm()

	model, cmd := m.cardsRequested(m.state.OpenPaymentForm())
	next, noticeCmd := model.(Model).showNotice("Card added "+msg.card.Masked(), false)
	return next, tea.Batch(cmd, noticeCmd)
}

func (m Model) showNotice(text string, isError bool) (tea.Model, tea.Cmd) {
	m.notice = notice{text: text, isError: isError, seq: m.notice.seq + 1}
	seq := m.notice.seq
	return m, tea.Tick(m.deps.NoticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg{seq: seq} })
}

// View renders the current screen with the open dialog on top.
func (m Model) View() string {
	var body string
	switch m.state.Modal() {
	case workflow.ModalPlanPicker:
		body = m.viewPlans()
	case workflow.ModalPaymentForm:
		body = m.viewPayment()
	case workflow.ModalAddCard:
		body = m.addCard.View()
	case workflow.ModalConfirmation:
		body = m.viewConfirm()
	default:
		body = m.viewLanding()
	}

	s := tui.Title.Render("Subscription") + "\n"
	if m.notice.text != "" {
		s += tui.NoticeStyle(m.notice.isError).Render(m.notice.text) + "\n\n"
	}
	if m.state.Modal() != workflow.ModalClosed {
		body = tui.Modal.Render(body)
	}
	s += body

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
	}
	return s
}

func (m Model) viewLanding() string {
	var s string
	switch {
	case m.state.Activating():
		s = "  " + m.spinner.View() + " Activating subscription...\n"
	case m.activated != "":
		s = "  " + tui.Success.Render("✓ Your "+m.activated+" subscription is active.") + "\n"
	default:
		s = "  " + tui.Description.Render("Your subscription needs attention. Choose a plan to keep watching.") + "\n"
		if p := m.state.ChosenPlan(); p != nil {
			s += "  " + tui.Dimmed.Render("Chosen plan: "+p.Name) + "\n"
		}
		if c := m.state.ChosenCard(); c != nil {
			s += "  " + tui.Dimmed.Render("Card: "+c.Masked()) + "\n"
		}
	}
	return s + "\n" + tui.Help.Render("  p choose plan • q quit")
}

func clamp(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}
