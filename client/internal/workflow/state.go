package workflow

import (
	"errors"
	"fmt"

	"github.com/cinemax-app/subscribe/client/internal/onetimecode"
	"github.com/cinemax-app/subscribe/pkg/api"
)

var (
	ErrNoPlanChosen       = errors.New("no plan chosen")
	ErrNoUser             = errors.New("no user id")
	ErrActivationInFlight = errors.New("activation already in progress")
)

// Epoch identifies one fetch. A result carrying an older epoch than the
// latest issued one for the same resource is stale and ignored.
type Epoch uint64

// Activation is an activation request the caller has to send.
type Activation struct {
	UserID   string
	PlanType string
}

// State is the whole workflow: which dialog is open, what the user has
// chosen, and the lists backing the dialogs.
type State struct {
	modal Modal
	plan  *api.Plan
	card  *api.StoredCard

	catalog   Catalog
	selection Selection
	guard     *ActivationGuard

	catalogEpoch Epoch
	cardsEpoch   Epoch
	codeEpoch    Epoch
}

// New returns a workflow with every dialog closed and nothing chosen.
func New() *State {
	return &State{guard: NewActivationGuard()}
}

// Modal returns the dialog currently shown.
func (s *State) Modal() Modal { return s.modal }

// PaymentFormOpen reports whether the payment form is visible, including
// underneath the add-card form.
func (s *State) PaymentFormOpen() bool {
	return s.modal == ModalPaymentForm || s.modal == ModalAddCard
}

// ChosenPlan returns the plan the user picked, or nil.
func (s *State) ChosenPlan() *api.Plan {
	if s.plan == nil {
		return nil
	}
	p := *s.plan
	return &p
}

// ChosenCard returns the stored card the user picked, or nil.
func (s *State) ChosenCard() *api.StoredCard {
	if s.card == nil {
		return nil
	}
	c := *s.card
	return &c
}

// Catalog exposes the plan list for rendering.
func (s *State) Catalog() *Catalog { return &s.catalog }

// Selection exposes the payment method state for rendering.
func (s *State) Selection() *Selection { return &s.selection }

// Activating reports whether an activation request is in flight.
func (s *State) Activating() bool { return s.guard.InFlight() }

// OpenPlanPicker shows the plan picker. The caller must fetch the catalog
// and report it with ApplyCatalog under the returned epoch.
func (s *State) OpenPlanPicker() Epoch {
	s.modal = ModalPlanPicker
	s.catalogEpoch++
	return s.catalogEpoch
}

// ClosePlanPicker hides the plan picker if it is shown.
func (s *State) ClosePlanPicker() {
	if s.modal == ModalPlanPicker {
		s.modal = ModalClosed
	}
}

// ApplyCatalog installs a catalog fetch result. A failed fetch leaves the
// catalog empty. It returns false when the result is stale.
func (s *State) ApplyCatalog(e Epoch, plans []api.Plan, err error) bool {
	if e != s.catalogEpoch {
		return false
	}
	if err != nil {
		s.catalog.clear()
		return true
	}
	s.catalog.replace(plans)
	return true
}

// OpenPaymentForm shows the payment form. The caller must fetch the user's
// cards and report them with ApplyCards under the returned epoch.
func (s *State) OpenPaymentForm() Epoch {
	s.modal = ModalPaymentForm
	return s.nextCardsEpoch()
}

// ClosePaymentForm hides the payment form and anything stacked on it, and
// resets the channel. The chosen card is kept.
func (s *State) ClosePaymentForm() {
	if s.PaymentFormOpen() {
		s.modal = ModalClosed
	}
	s.selection.reset()
	s.codeEpoch++
}

// ApplyCards installs a card list fetch result. A failed fetch is treated
// as an empty list. It returns false when the result is stale.
func (s *State) ApplyCards(e Epoch, cards []api.StoredCard, err error) bool {
	if e != s.cardsEpoch {
		return false
	}
	if err != nil {
		cards = nil
	}
	chosen := ""
	if s.card != nil {
		chosen = s.card.ID
	}
	s.selection.replaceCards(cards, chosen)
	return true
}

// SelectPlan records plan as chosen and routes to confirmation when a card
// is already chosen, or to the payment form otherwise. When the payment form
// is opened, the returned epoch names the card fetch the caller must issue.
func (s *State) SelectPlan(plan api.Plan) (Decision, Epoch) {
	p := plan
	s.plan = &p

	d := Evaluate(plan, s.card)
	if d == DecisionConfirm {
		s.modal = ModalConfirmation
		return d, 0
	}
	return d, s.OpenPaymentForm()
}

// ChooseChannel switches the payment channel. For ChannelStoredCard the
// returned epoch names a card fetch; for ChannelOneTimeCode it names a code
// generation (report it with ApplyCode).
func (s *State) ChooseChannel(c Channel) Epoch {
	s.selection.choose(c)
	switch c {
	case ChannelStoredCard:
		s.codeEpoch++
		return s.nextCardsEpoch()
	case ChannelOneTimeCode:
		s.codeEpoch++
		return s.codeEpoch
	default:
		s.codeEpoch++
		return 0
	}
}

// ApplyCode installs a generated one-time code. A failed generation leaves
// the image slot empty. It returns false when the result is stale.
func (s *State) ApplyCode(e Epoch, img *onetimecode.Image, err error) bool {
	if e != s.codeEpoch || s.selection.channel != ChannelOneTimeCode {
		return false
	}
	if err != nil {
		s.selection.setCode(nil)
		return true
	}
	s.selection.setCode(img)
	return true
}

// SelectCard highlights the card with the given id and makes it the chosen
// card, then closes the payment form. When a plan is already chosen and a
// card is now chosen, that plan is returned so the caller can run
// SelectPlan again.
func (s *State) SelectCard(id string) *api.Plan {
	if card, ok := s.selection.mark(id); ok {
		s.card = &card
	}
	s.ClosePaymentForm()
	if s.plan != nil && s.card != nil {
		return s.ChosenPlan()
	}
	return nil
}

// OpenAddCardForm stacks the card registration form on the payment form.
func (s *State) OpenAddCardForm() {
	if s.modal == ModalPaymentForm {
		s.modal = ModalAddCard
	}
}

// CloseAddCardForm returns to the payment form.
func (s *State) CloseAddCardForm() {
	if s.modal == ModalAddCard {
		s.modal = ModalPaymentForm
	}
}

// ConfirmMessage is the question shown in the confirmation dialog.
func (s *State) ConfirmMessage() string {
	planType, last4 := "", ""
	if s.plan != nil {
		planType = s.plan.Type
	}
	if s.card != nil {
		last4 = s.card.Last4()
	}
	return fmt.Sprintf("Continue paying for the %s subscription with card **** **** **** %s?", planType, last4)
}

// BeginActivation closes the confirmation dialog and returns the activation
// the caller must send. Call FinishActivation when it completes, whatever
// the outcome.
func (s *State) BeginActivation(userID string) (Activation, error) {
	if s.modal == ModalConfirmation {
		s.modal = ModalClosed
	}
	if s.plan == nil {
		return Activation{}, ErrNoPlanChosen
	}
	if userID == "" {
		return Activation{}, ErrNoUser
	}
	if !s.guard.TryAcquire(userID, s.plan.Type) {
		return Activation{}, ErrActivationInFlight
	}
	return Activation{UserID: userID, PlanType: s.plan.Type}, nil
}

// FinishActivation releases the in-flight mark for a. Chosen plan and card
// are left untouched so a failed attempt can be retried.
func (s *State) FinishActivation(a Activation) {
	s.guard.Release(a.UserID, a.PlanType)
}

// ReopenConfirmation shows the confirmation dialog again after a failed
// activation so the user can retry in one step. It does nothing unless a plan
// and a card are chosen and no dialog is open.
func (s *State) ReopenConfirmation() bool {
	if s.modal != ModalClosed || s.plan == nil || s.card == nil {
		return false
	}
	s.modal = ModalConfirmation
	return true
}

// CancelConfirmation closes the confirmation dialog and reopens the payment
// form, keeping the chosen plan and card.
func (s *State) CancelConfirmation() Epoch {
	return s.OpenPaymentForm()
}

func (s *State) nextCardsEpoch() Epoch {
	s.cardsEpoch++
	return s.cardsEpoch
}
