package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/finsense/internal/profile"
	"github.com/hrygo/finsense/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database named by the profile DSN and applies the schema.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// When using the `modernc.org/sqlite` driver, each pragma must be prefixed with `_pragma=`.
	sqliteDB, err := sql.Open("sqlite", withPragmas(profile.DSN))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// Single connection is optimal with WAL for a single-process bot.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	driver := &DB{db: sqliteDB, profile: profile}
	if err := driver.Migrate(context.Background()); err != nil {
		sqliteDB.Close()
		return nil, err
	}
	return driver, nil
}

func withPragmas(dsn string) string {
	sep := "?"
	for _, c := range dsn {
		if c == '?' {
			sep = "&"
			break
		}
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	actor_id INTEGER PRIMARY KEY,
	income TEXT NOT NULL DEFAULT '0',
	alloc_needs TEXT NOT NULL,
	alloc_wants TEXT NOT NULL,
	alloc_savings TEXT NOT NULL,
	reminders_enabled INTEGER NOT NULL DEFAULT 1,
	created_ts INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS expenses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	actor_id INTEGER NOT NULL REFERENCES users(actor_id),
	ts INTEGER NOT NULL,
	description TEXT NOT NULL,
	amount TEXT NOT NULL,
	category TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS debts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	actor_id INTEGER NOT NULL REFERENCES users(actor_id),
	ts INTEGER NOT NULL,
	description TEXT NOT NULL,
	amount TEXT NOT NULL,
	due_ts INTEGER
);
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	actor_id INTEGER NOT NULL REFERENCES users(actor_id),
	occurs_on INTEGER NOT NULL,
	description TEXT NOT NULL,
	type TEXT NOT NULL,
	is_lunar INTEGER NOT NULL DEFAULT 0,
	cost_estimate TEXT NOT NULL,
	gift_suggestion TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS investments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	actor_id INTEGER NOT NULL REFERENCES users(actor_id),
	asset TEXT NOT NULL,
	purchase_amount TEXT NOT NULL,
	purchase_price TEXT NOT NULL,
	current_value TEXT NOT NULL DEFAULT '0'
);
CREATE INDEX IF NOT EXISTS idx_expenses_actor ON expenses (actor_id);
CREATE INDEX IF NOT EXISTS idx_debts_actor ON debts (actor_id);
CREATE INDEX IF NOT EXISTS idx_events_actor ON events (actor_id);
CREATE INDEX IF NOT EXISTS idx_investments_actor ON investments (actor_id, asset);
`

// Migrate creates the finance tables if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate sqlite schema")
	}
	return nil
}
