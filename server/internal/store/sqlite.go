package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite store and runs migrations.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	// For in-memory databases, use shared cache so all connections in the pool
	// see the same data.
	if dsn == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			type TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			price TEXT NOT NULL,
			benefits TEXT NOT NULL DEFAULT '[]',
			position INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			plan TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			last4 TEXT NOT NULL,
			digits INTEGER NOT NULL,
			holder_name TEXT NOT NULL DEFAULT '',
			expiry TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_user_id ON cards(user_id)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			plan_type TEXT NOT NULL,
			activated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
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

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Plans ---

func (s *SQLiteStore) UpsertPlan(ctx context.Context, plan *Plan) error {
	benefits, err := json.Marshal(nonNil(plan.Benefits))
	if err != nil {
		return fmt.Errorf("marshal benefits: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plans (id, type, name, price, benefits, position) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(type) DO UPDATE SET name=excluded.name, price=excluded.price, benefits=excluded.benefits, position=excluded.position`,
		plan.ID, plan.Type, plan.Name, plan.Price.String(), string(benefits), plan.Position,
	)
	return err
}

func (s *SQLiteStore) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, name, price, benefits, position FROM plans ORDER BY position, type")
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

func (s *SQLiteStore) GetPlanByType(ctx context.Context, planType string) (*Plan, error) {
	p, err := scanPlan(s.db.QueryRowContext(ctx,
		"SELECT id, type, name, price, benefits, position FROM plans WHERE type = ?", planType))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// --- Users ---

func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, plan, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Plan, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, plan, created_at, updated_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Name, &u.Plan, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &u, err
}

// --- Cards ---

func (s *SQLiteStore) CreateCard(ctx context.Context, card *Card) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO cards (id, user_id, last4, digits, holder_name, expiry, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		card.ID, card.UserID, card.Last4, card.Digits, card.HolderName, card.Expiry, card.CreatedAt,
	)
	return err
}

func (s *SQLiteStore) ListCards(ctx context.Context, userID string) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, last4, digits, holder_name, expiry, created_at FROM cards WHERE user_id = ? ORDER BY created_at, id",
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

func (s *SQLiteStore) ActivateSubscription(ctx context.Context, sub *Subscription) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET plan = ?, updated_at = ? WHERE id = ?",
		sub.PlanType, sub.ActivatedAt, sub.UserID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO subscriptions (id, user_id, plan_type, activated_at) VALUES (?, ?, ?, ?)",
		sub.ID, sub.UserID, sub.PlanType, sub.ActivatedAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListSubscriptions(ctx context.Context, userID string) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, plan_type, activated_at FROM subscriptions WHERE user_id = ? ORDER BY activated_at",
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

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*Plan, error) {
	var (
		p        Plan
		benefits string
	)
	if err := row.Scan(&p.ID, &p.Type, &p.Name, &p.Price, &benefits, &p.Position); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(benefits), &p.Benefits); err != nil {
		return nil, fmt.Errorf("decode benefits for plan %s: %w", p.Type, err)
	}
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
