package postgres

import (
	"context"
	"database/sql"
	"fmt"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/hrygo/finsense/internal/profile"
	"github.com/hrygo/finsense/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB connects to PostgreSQL with the profile DSN and applies the schema.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, fmt.Errorf("dsn required")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	driver := &DB{db: db, profile: profile}
	if err := driver.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	actor_id BIGINT PRIMARY KEY,
	income NUMERIC NOT NULL DEFAULT 0,
	alloc_needs NUMERIC NOT NULL,
	alloc_wants NUMERIC NOT NULL,
	alloc_savings NUMERIC NOT NULL,
	reminders_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	created_ts BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS expenses (
	id BIGSERIAL PRIMARY KEY,
	actor_id BIGINT NOT NULL REFERENCES users(actor_id),
	ts BIGINT NOT NULL,
	description TEXT NOT NULL,
	amount NUMERIC NOT NULL,
	category TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS debts (
	id BIGSERIAL PRIMARY KEY,
	actor_id BIGINT NOT NULL REFERENCES users(actor_id),
	ts BIGINT NOT NULL,
	description TEXT NOT NULL,
	amount NUMERIC NOT NULL,
	due_ts BIGINT
);
CREATE TABLE IF NOT EXISTS events (
	id BIGSERIAL PRIMARY KEY,
	actor_id BIGINT NOT NULL REFERENCES users(actor_id),
	occurs_on BIGINT NOT NULL,
	description TEXT NOT NULL,
	type TEXT NOT NULL,
	is_lunar BOOLEAN NOT NULL DEFAULT FALSE,
	cost_estimate NUMERIC NOT NULL,
	gift_suggestion TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS investments (
	id BIGSERIAL PRIMARY KEY,
	actor_id BIGINT NOT NULL REFERENCES users(actor_id),
	asset TEXT NOT NULL,
	purchase_amount NUMERIC NOT NULL,
	purchase_price NUMERIC NOT NULL,
	current_value NUMERIC NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_expenses_actor ON expenses (actor_id);
CREATE INDEX IF NOT EXISTS idx_debts_actor ON debts (actor_id);
CREATE INDEX IF NOT EXISTS idx_events_actor ON events (actor_id);
CREATE INDEX IF NOT EXISTS idx_investments_actor ON investments (actor_id, asset);
`

// Migrate creates the finance tables if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate postgres schema: %w", err)
	}
	return nil
}
