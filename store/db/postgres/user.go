package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hrygo/finsense/store"
)

func (d *DB) GetUser(ctx context.Context, actorID int64) (*store.UserProfile, error) {
	user := &store.UserProfile{ActorID: actorID}
	err := d.db.QueryRowContext(ctx, `
		SELECT income, alloc_needs, alloc_wants, alloc_savings, reminders_enabled, created_ts
		FROM users WHERE actor_id = $1`, actorID,
	).Scan(
		&user.Income,
		&user.Allocation.Needs,
		&user.Allocation.Wants,
		&user.Allocation.Savings,
		&user.RemindersEnabled,
		&user.CreatedTs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

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
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (actor_id) DO NOTHING`,
		user.ActorID,
		user.Income,
		user.Allocation.Needs,
		user.Allocation.Wants,
		user.Allocation.Savings,
		user.RemindersEnabled,
		user.CreatedTs,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.UserProfile, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.HasInvestments {
		where = append(where, "EXISTS (SELECT 1 FROM investments i WHERE i.actor_id = users.actor_id)")
	}
	if find.RemindersEnabled != nil {
		args = append(args, *find.RemindersEnabled)
		where = append(where, fmt.Sprintf("reminders_enabled = $%d", len(args)))
	}

	query := "SELECT actor_id FROM users WHERE " + strings.Join(where, " AND ") + " ORDER BY actor_id"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate users: %w", err)
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
		`UPDATE users SET income = $1 WHERE actor_id = $2`, income, actorID)
}

func (d *DB) SetAllocation(ctx context.Context, actorID int64, allocation store.Allocation) error {
	return d.execOne(ctx, "failed to set allocation",
		`UPDATE users SET alloc_needs = $1, alloc_wants = $2, alloc_savings = $3 WHERE actor_id = $4`,
		allocation.Needs, allocation.Wants, allocation.Savings, actorID)
}

func (d *DB) SetRemindersEnabled(ctx context.Context, actorID int64, enabled bool) error {
	return d.execOne(ctx, "failed to set reminders",
		`UPDATE users SET reminders_enabled = $1 WHERE actor_id = $2`, enabled, actorID)
}

func (d *DB) AppendExpense(ctx context.Context, actorID int64, record store.ExpenseRecord) error {
	return d.execOne(ctx, "failed to append expense", `
		INSERT INTO expenses (actor_id, ts, description, amount, category)
		SELECT $1::BIGINT, $2::BIGINT, $3::TEXT, $4::NUMERIC, $5::TEXT WHERE EXISTS (SELECT 1 FROM users WHERE actor_id = $1)`,
		actorID, record.Timestamp.Unix(), record.Description, record.Amount, string(record.Category))
}

func (d *DB) AppendDebt(ctx context.Context, actorID int64, record store.DebtRecord) error {
	var due sql.NullInt64
	if record.DueDate != nil {
		due = sql.NullInt64{Int64: record.DueDate.Unix(), Valid: true}
	}
	return d.execOne(ctx, "failed to append debt", `
		INSERT INTO debts (actor_id, ts, description, amount, due_ts)
		SELECT $1::BIGINT, $2::BIGINT, $3::TEXT, $4::NUMERIC, $5::BIGINT WHERE EXISTS (SELECT 1 FROM users WHERE actor_id = $1)`,
		actorID, record.Timestamp.Unix(), record.Description, record.Amount, due)
}

func (d *DB) AppendEvent(ctx context.Context, actorID int64, record store.EventRecord) error {
	return d.execOne(ctx, "failed to append event", `
		INSERT INTO events (actor_id, occurs_on, description, type, is_lunar, cost_estimate, gift_suggestion)
		SELECT $1::BIGINT, $2::BIGINT, $3::TEXT, $4::TEXT, $5::BOOLEAN, $6::NUMERIC, $7::TEXT WHERE EXISTS (SELECT 1 FROM users WHERE actor_id = $1)`,
		actorID, record.OccursOn.Unix(), record.Description, string(record.Type),
		record.IsLunarOrigin, record.CostEstimate, record.GiftSuggestion)
}

func (d *DB) AppendInvestment(ctx context.Context, actorID int64, record store.InvestmentRecord) error {
	return d.execOne(ctx, "failed to append investment", `
		INSERT INTO investments (actor_id, asset, purchase_amount, purchase_price, current_value)
		SELECT $1::BIGINT, $2::TEXT, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC WHERE EXISTS (SELECT 1 FROM users WHERE actor_id = $1)`,
		actorID, record.AssetSymbol, record.PurchaseAmount, record.PurchasePrice, record.CurrentValue)
}

func (d *DB) UpdateInvestmentValue(ctx context.Context, actorID int64, assetSymbol string, value decimal.Decimal) error {
	return d.execOne(ctx, "failed to update investment value",
		`UPDATE investments SET current_value = $1 WHERE actor_id = $2 AND asset = $3`,
		value, actorID, assetSymbol)
}

func (d *DB) execOne(ctx context.Context, msg, stmt string, args ...any) error {
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if n == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func (d *DB) listExpenses(ctx context.Context, actorID int64) ([]store.ExpenseRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT ts, description, amount, category FROM expenses WHERE actor_id = $1 ORDER BY id`, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	records := []store.ExpenseRecord{}
	for rows.Next() {
		var r store.ExpenseRecord
		var ts int64
		var category string
		if err := rows.Scan(&ts, &r.Description, &r.Amount, &category); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		r.Timestamp = time.Unix(ts, 0)
		r.Category = store.Category(category)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (d *DB) listDebts(ctx context.Context, actorID int64) ([]store.DebtRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT ts, description, amount, due_ts FROM debts WHERE actor_id = $1 ORDER BY id`, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	records := []store.DebtRecord{}
	for rows.Next() {
		var r store.DebtRecord
		var ts int64
		var due sql.NullInt64
		if err := rows.Scan(&ts, &r.Description, &r.Amount, &due); err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
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
		FROM events WHERE actor_id = $1 ORDER BY id`, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	records := []store.EventRecord{}
	for rows.Next() {
		var r store.EventRecord
		var occursOn int64
		var eventType string
		if err := rows.Scan(&occursOn, &r.Description, &eventType, &r.IsLunarOrigin, &r.CostEstimate, &r.GiftSuggestion); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		r.OccursOn = time.Unix(occursOn, 0)
		r.Type = store.EventType(eventType)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (d *DB) listInvestments(ctx context.Context, actorID int64) ([]store.InvestmentRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT asset, purchase_amount, purchase_price, current_value
		FROM investments WHERE actor_id = $1 ORDER BY id`, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	defer rows.Close()

	records := []store.InvestmentRecord{}
	for rows.Next() {
		var r store.InvestmentRecord
		if err := rows.Scan(&r.AssetSymbol, &r.PurchaseAmount, &r.PurchasePrice, &r.CurrentValue); err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

var _ store.Driver = (*DB)(nil)
