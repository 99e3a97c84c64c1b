// Package api defines the JSON shapes exchanged between the subscribe client
// and the subscription API.
package api

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Plan is a selectable subscription tier. Type is the key used to activate it.
type Plan struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Benefits []string        `json:"benefits"`
}

// PriceLabel formats the price the way the plan picker shows it.
func (p Plan) PriceLabel() string {
	return fmt.Sprintf("R$ %s", p.Price.StringFixed(2))
}

// StoredCard is a card already registered for the user.
// Selected is a UI highlight and is never persisted.
type StoredCard struct {
	ID         string `json:"id"`
	CardNumber string `json:"cardNumber"`
	Selected   bool   `json:"selected,omitempty"`
}

// Last4 returns the last four digits of the card number.
func (c StoredCard) Last4() string {
	if len(c.CardNumber) <= 4 {
		return c.CardNumber
	}
	return c.CardNumber[len(c.CardNumber)-4:]
}

// Masked renders the card the only way it is ever displayed.
func (c StoredCard) Masked() string {
	return "**** **** **** " + c.Last4()
}

// SubscriptionsResponse is the body of GET /subscriptions.
type SubscriptionsResponse struct {
	Subscriptions []Plan `json:"subscriptions"`
}

// SelectSubscriptionRequest is the body of
// POST /subscriptions/select-subscription/{planType}.
type SelectSubscriptionRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// SelectSubscriptionResponse carries a renewed session credential, if any.
type SelectSubscriptionResponse struct {
	Token string `json:"token,omitempty"`
}

// RegisterCardRequest is the body of POST /users/{userId}/credit-cards.
type RegisterCardRequest struct {
	CardNumber string `json:"cardNumber" validate:"required,credit_card"`
	HolderName string `json:"holderName" validate:"required,max=80"`
	Expiry     string `json:"expiry" validate:"required,len=5"` // MM/YY
	CVV        string `json:"cvv" validate:"required,numeric,min=3,max=4"`
}

// ErrorResponse is returned by the API for any non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
