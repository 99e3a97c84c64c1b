package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_Plans(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPlan(ctx, &Plan{ID: "p2", Type: "premium", Name: "Premium", Price: decimal.RequireFromString("39.90"), Benefits: []string{"4K"}, Position: 2}))
	require.NoError(t, s.UpsertPlan(ctx, &Plan{ID: "p1", Type: "basic", Name: "Basic", Price: decimal.RequireFromString("19.90"), Position: 1}))

	plans, err := s.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "basic", plans[0].Type)
	assert.Equal(t, []string{}, plans[0].Benefits)
	assert.True(t, plans[1].Price.Equal(decimal.RequireFromString("39.9")))

	// Upsert by type replaces the row in place.
	require.NoError(t, s.UpsertPlan(ctx, &Plan{ID: "ignored", Type: "premium", Name: "Premium+", Price: decimal.RequireFromString("44.90"), Position: 2}))
	p, err := s.GetPlanByType(ctx, "premium")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "p2", p.ID)
	assert.Equal(t, "Premium+", p.Name)

	missing, err := s.GetPlanByType(ctx, "gold")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_UsersAndCards(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.CreateUser(ctx, &User{ID: "u1", Name: "Ana", CreatedAt: now, UpdatedAt: now}))
	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Ana", u.Name)
	assert.Empty(t, u.Plan)

	none, err := s.GetUser(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, none)

	cards, err := s.ListCards(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cards)

	require.NoError(t, s.CreateCard(ctx, &Card{ID: "c1", UserID: "u1", Last4: "1111", Digits: 16, HolderName: "Ana", Expiry: "12/30", CreatedAt: now}))
	require.NoError(t, s.CreateCard(ctx, &Card{ID: "c2", UserID: "u1", Last4: "0004", Digits: 16, CreatedAt: now.Add(time.Second)}))

	cards, err = s.ListCards(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "c1", cards[0].ID)
	assert.Equal(t, "1111", cards[0].Last4)

	err = s.CreateCard(ctx, &Card{ID: "c3", UserID: "ghost", Last4: "9999", Digits: 16, CreatedAt: now})
	assert.Error(t, err, "foreign key on user_id")
}

func TestSQLite_ActivateSubscription(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.CreateUser(ctx, &User{ID: "u1", CreatedAt: now, UpdatedAt: now}))

	require.NoError(t, s.ActivateSubscription(ctx, &Subscription{ID: "s1", UserID: "u1", PlanType: "premium", ActivatedAt: now}))

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "premium", u.Plan)

	subs, err := s.ListSubscriptions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "premium", subs[0].PlanType)

	err = s.ActivateSubscription(ctx, &Subscription{ID: "s2", UserID: "ghost", PlanType: "basic", ActivatedAt: now})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_InMemory(t *testing.T) {
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.NoError(t, s.Ping(context.Background()))
}
