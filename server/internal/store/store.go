// Package store defines the storage interface for the subscription API and
// provides SQLite and PostgreSQL implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by updates that match no row.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface for the subscription API.
type Store interface {
	// Plans
	UpsertPlan(ctx context.Context, plan *Plan) error
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlanByType(ctx context.Context, planType string) (*Plan, error)

	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)

	// Cards
	CreateCard(ctx context.Context, card *Card) error
	ListCards(ctx context.Context, userID string) ([]Card, error)

	// Subscriptions
	ActivateSubscription(ctx context.Context, sub *Subscription) error
	ListSubscriptions(ctx context.Context, userID string) ([]Subscription, error)

	// Health
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Plan is a subscription tier on offer.
type Plan struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"` // unique key used for activation
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Benefits []string        `json:"benefits"`
	Position int             `json:"position"` // display order
}

// User is a subscriber. Plan is empty until a subscription is activated.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Card is a stored payment card. Only the last four digits and the length
// of the number are kept.
type Card struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Last4      string    `json:"last4"`
	Digits     int       `json:"digits"`
	HolderName string    `json:"holder_name"`
	Expiry     string    `json:"expiry"` // MM/YY
	CreatedAt  time.Time `json:"created_at"`
}

// Subscription records one activation.
type Subscription struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	PlanType    string    `json:"plan_type"`
	ActivatedAt time.Time `json:"activated_at"`
}
