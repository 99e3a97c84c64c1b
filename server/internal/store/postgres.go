package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a new PostgreSQL store and runs migrations.
func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			type TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			price NUMERIC(12,2) NOT NULL,
			benefits JSONB NOT NULL DEFAULT '[]',
			position INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			plan TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			last4 TEXT NOT NULL,
			digits INTEGER NOT NULL,
			holder_name TEXT NOT NULL DEFAULT '',
			expiry TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_user_id ON cards(user_id)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			plan_type TEXT NOT NULL,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// --- Plans ---

func (s *PostgresStore) UpsertPlan(ctx context.Context, plan *Plan) error {
	benefits, err := json.Marshal(nonNil(plan.Benefits))
	if err != nil {
		return fmt.Errorf("marshal benefits: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plans (id, type, name, price, benefits, position) VALUES ($1, $2, $3, $4::text::numeric, $5::jsonb, $6)
		 ON CONFLICT(type) DO UPDATE SET name=EXCLUDED.name, price=EXCLUDED.price, benefits=EXCLUDED.benefits, position=EXCLUDED.position`,
		plan.ID, plan.Type, plan.Name, plan.Price.String(), string(benefits), plan.Position,
	)
	return err
}

func (s *PostgresStore) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, name, price::text, benefits::text, position FROM plans ORDER BY position, type")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var plans []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

func (s *PostgresStore) GetPlanByType(ctx context.Context, planType string) (*Plan, error) {
	p, err := scanPlan(s.db.QueryRowContext(ctx,
		"SELECT id, type, name, price::text, benefits::text, position FROM plans WHERE type = $1", planType))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// --- Users ---

func (s *PostgresStore) CreateUser(ctx context.Context, user *User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, plan, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)",
		user.ID, user.Name, user.Plan, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, plan, created_at, updated_at FROM users WHERE id = $1", id,
	).Scan(&u.ID, &u.Name, &u.Plan, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &u, err
}

// --- Cards ---

func (s *PostgresStore) CreateCard(ctx context.Context, card *Card) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO cards (id, user_id, last4, digits, holder_name, expiry, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		card.ID, card.UserID, card.Last4, card.Digits, card.HolderName, card.Expiry, card.CreatedAt,
	)
	return err
}

func (s *PostgresStore) ListCards(ctx context.Context, userID string) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, last4, digits, holder_name, expiry, created_at FROM cards WHERE user_id = $1 ORDER BY created_at, id",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var cards []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.UserID, &c.Last4, &c.Digits, &c.HolderName, &c.Expiry, &c.CreatedAt); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// --- Subscriptions ---

func (s *PostgresStore) ActivateSubscription(ctx context.Context, sub *Subscription) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET plan = $1, updated_at = $2 WHERE id = $3",
		sub.PlanType, sub.ActivatedAt, sub.UserID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO subscriptions (id, user_id, plan_type, activated_at) VALUES ($1, $2, $3, $4)",
		sub.ID, sub.UserID, sub.PlanType, sub.ActivatedAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) ListSubscriptions(ctx context.Context, userID string) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, plan_type, activated_at FROM subscriptions WHERE user_id = $1 ORDER BY activated_at",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.PlanType, &sub.ActivatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
