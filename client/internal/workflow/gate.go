package workflow

import "github.com/cinemax-app/subscribe/pkg/api"

// Decision is the outcome of evaluating a plan choice.
type Decision int

const (
	// DecisionNeedPaymentMethod means no card is chosen yet.
	DecisionNeedPaymentMethod Decision = iota
	// DecisionConfirm means a card is chosen and the user must confirm
	// before activation.
	DecisionConfirm
)

func (d Decision) String() string {
	if d == DecisionConfirm {
		return "confirm"
	}
	return "need-payment-method"
}

// Evaluate decides whether a plan choice can go to confirmation directly or
// has to collect a payment method first.
func Evaluate(_ api.Plan, card *api.StoredCard) Decision {
	if card != nil {
		return DecisionConfirm
	}
	return DecisionNeedPaymentMethod
}
