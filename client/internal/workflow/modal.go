// Package workflow holds the plan selection and payment confirmation state
// machine. It performs no I/O: callers run the fetches and activation it asks
// for and hand the results back.
package workflow

// Modal identifies the single dialog currently shown. Only one is visible at
// a time; ModalAddCard is stacked on top of the payment form.
type Modal int

const (
	ModalClosed Modal = iota
	ModalPlanPicker
	ModalPaymentForm
	ModalAddCard
	ModalConfirmation
)

func (m Modal) String() string {
	switch m {
	case ModalClosed:
		return "closed"
	case ModalPlanPicker:
		return "plan-picker"
	case ModalPaymentForm:
		return "payment-form"
	case ModalAddCard:
		return "add-card"
	case ModalConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// Channel is the payment method family the user is engaging with.
type Channel int

const (
	ChannelNone Channel = iota
	ChannelStoredCard
	ChannelOneTimeCode
)

func (c Channel) String() string {
	switch c {
	case ChannelStoredCard:
		return "stored-card"
	case ChannelOneTimeCode:
		return "one-time-code"
	default:
		return "none"
	}
}
