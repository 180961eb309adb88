package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/hrygo/finsense/store"
)

func (d *DB) GetUser(ctx context.Context, actorID int64) (*store.UserProfile, error) {
	user := &store.UserProfile{ActorID: actorID}
	var remindersEnabled int
	err := d.db.QueryRowContext(ctx, `
		SELECT income, alloc_needs, alloc_wants, alloc_savings, reminders_enabled, created_ts
		FROM users WHERE actor_id = ?`, actorID,
	).Scan(
		&user.Income,
		&user.Allocation.Needs,
		&user.Allocation.Wants,
		&user.Allocation.Savings,
		&remindersEnabled,
		&user.CreatedTs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get user")
	}
	user.RemindersEnabled = remindersEnabled != 0

	if user.Expenses, err = d.listExpenses(ctx, actorID); err != nil {
		return nil, err
	}
	if user.Debts, err = d.listDebts(ctx, actorID); err != nil {
		return nil, err
	}
	if user.Events, err = d.listEvents(ctx, actorID); err != nil {
		return nil, err
	}
	if user.Investments, err = d.listInvestments(ctx, actorID); err != nil {
		return nil, err
	}
	return user, nil
}

func (d *DB) InsertUserIfAbsent(ctx context.Context, user *store.UserProfile) (bool, error) {
	result, err := d.db.ExecContext(ctx, `
		INSERT INTO users (actor_id, income, alloc_needs, alloc_wants, alloc_savings, reminders_enabled, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (actor_id) DO NOTHING`,
		user.ActorID,
		user.Income,
		user.Allocation.Needs,
		user.Allocation.Wants,
		user.Allocation.Savings,
		boolToInt(user.RemindersEnabled),
		user.CreatedTs,
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to insert user")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read rows affected")
	}
	return n > 0, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.UserProfile, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.HasInvestments {
		where = append(where, "EXISTS (SELECT 1 FROM investments i WHERE i.actor_id = users.actor_id)")
	}
	if find.RemindersEnabled != nil {
		where, args = append(where, "reminders_enabled = ?"), append(args, boolToInt(*find.RemindersEnabled))
	}

	query := "SELECT actor_id FROM users WHERE " + where[0]
	for _, w := range where[1:] {
		query += " AND " + w
	}
	query += " ORDER BY actor_id"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan user id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.Wrap(err, "failed to iterate users")
	}
	rows.Close()

	users := make([]*store.UserProfile, 0, len(ids))
	for _, id := range ids {
		user, err := d.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		if user != nil {
			users = append(users, user)
		}
	}
	return users, nil
}

func (d *DB) SetIncome(ctx context.Context, actorID int64, income decimal.Decimal) error {
	return d.execOne(ctx, "failed to set income",
		`UPDATE users SET income = ? WHERE actor_id = ?`, income, actorID)
}

func (d *DB) SetAllocation(ctx context.Context, actorID int64, allocation store.Allocation) error {
	return d.execOne(ctx, "failed to set allocation",
		`UPDATE users SET alloc_needs = ?, alloc_wants = ?, alloc_savings = ? WHERE actor_id = ?`,
		allocation.Needs, allocation.Wants, allocation.Savings, actorID)
}

func (d *DB) SetRemindersEnabled(ctx context.Context, actorID int64, enabled bool) error {
	return d.execOne(ctx, "failed to set reminders",
		`UPDATE users SET reminders_enabled = ? WHERE actor_id = ?`, boolToInt(enabled), actorID)
}

func (d *DB) AppendExpense(ctx context.Context, actorID int64, record store.ExpenseRecord) error {
	return d.execOne(ctx, "failed to append expense", `
		INSERT INTO expenses (actor_id, ts, description, amount, category)
		SELECT ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM users WHERE actor_id = ?)`,
		actorID, record.Timestamp.Unix(), record.Description, record.Amount, string(record.Category), actorID)
}

func (d *DB) AppendDebt(ctx context.Context, actorID int64, record store.DebtRecord) error {
	var due sql.NullInt64
	if record.DueDate != nil {
		due = sql.NullInt64{Int64: record.DueDate.Unix(), Valid: true}
	}
	return d.execOne(ctx, "failed to append debt", `
		INSERT INTO debts (actor_id, ts, description, amount, due_ts)
		SELECT ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM users WHERE actor_id = ?)`,
		actorID, record.Timestamp.Unix(), record.Description, record.Amount, due, actorID)
}

func (d *DB) AppendEvent(ctx context.Context, actorID int64, record store.EventRecord) error {
	return d.execOne(ctx, "failed to append event", `
		INSERT INTO events (actor_id, occurs_on, description, type, is_lunar, cost_estimate, gift_suggestion)
		SELECT ?, ?, ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM users WHERE actor_id = ?)`,
		actorID, record.OccursOn.Unix(), record.Description, string(record.Type),
		boolToInt(record.IsLunarOrigin), record.CostEstimate, record.GiftSuggestion, actorID)
}

func (d *DB) AppendInvestment(ctx context.Context, actorID int64, record store.InvestmentRecord) error {
	return d.execOne(ctx, "failed to append investment", `
		INSERT INTO investments (actor_id, asset, purchase_amount, purchase_price, current_value)
		SELECT ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM users WHERE actor_id = ?)`,
		actorID, record.AssetSymbol, record.PurchaseAmount, record.PurchasePrice, record.CurrentValue, actorID)
}

func (d *DB) UpdateInvestmentValue(ctx context.Context, actorID int64, assetSymbol string, value decimal.Decimal) error {
	return d.execOne(ctx, "failed to update investment value",
		`UPDATE investments SET current_value = ? WHERE actor_id = ? AND asset = ?`,
		value, actorID, assetSymbol)
}

// execOne runs a single-statement mutation and maps "no row touched" to ErrUserNotFound.
func (d *DB) execOne(ctx context.Context, msg, stmt string, args ...any) error {
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return errors.Wrap(err, msg)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func (d *DB) listExpenses(ctx context.Context, actorID int64) ([]store.ExpenseRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT ts, description, amount, category FROM expenses WHERE actor_id = ? ORDER BY id`, actorID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list expenses")
	}
	defer rows.Close()

	records := []store.ExpenseRecord{}
	for rows.Next() {
		var r store.ExpenseRecord
		var ts int64
		var category string
		if err := rows.Scan(&ts, &r.Description, &r.Amount, &category); err != nil {
			return nil, errors.Wrap(err, "failed to scan expense")
		}
		r.Timestamp = time.Unix(ts, 0)
		r.Category = store.Category(category)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (d *DB) listDebts(ctx context.Context, actorID int64) ([]store.DebtRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT ts, description, amount, due_ts FROM debts WHERE actor_id = ? ORDER BY id`, actorID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list debts")
	}
	defer rows.Close()

	records := []store.DebtRecord{}
	for rows.Next() {
		var r store.DebtRecord
		var ts int64
		var due sql.NullInt64
		if err := rows.Scan(&ts, &r.Description, &r.Amount, &due); err != nil {
			return nil, errors.Wrap(err, "failed to scan debt")
		}
		r.Timestamp = time.Unix(ts, 0)
		if due.Valid {
			t := time.Unix(due.Int64, 0)
			r.DueDate = &t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (d *DB) listEvents(ctx context.Context, actorID int64) ([]store.EventRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT occurs_on, description, type, is_lunar, cost_estimate, gift_suggestion
		FROM events WHERE actor_id = ? ORDER BY id`, actorID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}
	defer rows.Close()

	records := []store.EventRecord{}
	for rows.Next() {
		var r store.EventRecord
		var occursOn int64
		var eventType string
		var isLunar int
		if err := rows.Scan(&occursOn, &r.Description, &eventType, &isLunar, &r.CostEstimate, &r.GiftSuggestion); err != nil {
			return nil, errors.Wrap(err, "failed to scan event")
		}
		r.OccursOn = time.Unix(occursOn, 0)
		r.Type = store.EventType(eventType)
		r.IsLunarOrigin = isLunar != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

func (d *DB) listInvestments(ctx context.Context, actorID int64) ([]store.InvestmentRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT asset, purchase_amount, purchase_price, current_value
		FROM investments WHERE actor_id = ? ORDER BY id`, actorID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list investments")
	}
	defer rows.Close()

	records := []store.InvestmentRecord{}
	for rows.Next() {
		var r store.InvestmentRecord
		if err := rows.Scan(&r.AssetSymbol, &r.PurchaseAmount, &r.PurchasePrice, &r.CurrentValue); err != nil {
			return nil, errors.Wrap(err, "failed to scan investment")
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ store.Driver = (*DB)(nil)
