package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cinemax-app/subscribe/server/internal/store"
)

// DefaultPlans is the catalog installed by Seed.
var DefaultPlans = []store.Plan{
	{
		Type:     "basic",
		Name:     "Basic",
		Price:    decimal.RequireFromString("19.90"),
		Benefits: []string{"HD streaming", "1 screen at a time"},
		Position: 1,
	},
	{
		Type:     "standard",
		Name:     "Standard",
		Price:    decimal.RequireFromString("29.90"),
		Benefits: []string{"Full HD streaming", "2 screens at a time", "Downloads on 2 devices"},
		Position: 2,
	},
	{
		Type:     "premium",
		Name:     "Premium",
		Price:    decimal.RequireFromString("39.90"),
		Benefits: []string{"4K + HDR streaming", "4 screens at a time", "Downloads on 6 devices"},
		Position: 3,
	},
}

// SeedResult describes what Seed created.
type SeedResult struct {
	Plans  int
	UserID string
	Token  string
}

// Seed upserts DefaultPlans and, when userName is not empty, creates a user
// and issues a token for it.
func (s *Server) Seed(ctx context.Context, userName string) (*SeedResult, error) {
	res := &SeedResult{}
	for _, p := range DefaultPlans {
		plan := p
		plan.ID = uuid.New().String()
		if err := s.store.UpsertPlan(ctx, &plan); err != nil {
			return nil, fmt.Errorf("seed plan %s: %w", p.Type, err)
		}
		res.Plans++
	}

	if userName == "" {
		return res, nil
	}

	now := time.Now()
	user := &store.User{
		ID:        uuid.New().String(),
		Name:      userName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("seed user: %w", err)
	}
	token, err := s.auth.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	res.UserID = user.ID
	res.Token = token
	return res, nil
}
