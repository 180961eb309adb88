package store

import (
	"context"

	"github.com/shopspring/decimal"
)

// Driver is the persistence port for per-actor finance documents.
// Every mutation is an atomic single-field update scoped to one actor.
type Driver interface {
	// GetUser returns the profile of an actor, or nil when the actor has none.
	GetUser(ctx context.Context, actorID int64) (*UserProfile, error)

	// InsertUserIfAbsent stores the profile unless one already exists.
	// Returns true when a new profile was inserted.
	InsertUserIfAbsent(ctx context.Context, user *UserProfile) (bool, error)

	// ListUsers returns all profiles matching the filter.
	ListUsers(ctx context.Context, find *FindUser) ([]*UserProfile, error)

	SetIncome(ctx context.Context, actorID int64, income decimal.Decimal) error
	SetAllocation(ctx context.Context, actorID int64, allocation Allocation) error
	SetRemindersEnabled(ctx context.Context, actorID int64, enabled bool) error

	AppendExpense(ctx context.Context, actorID int64, record ExpenseRecord) error
	AppendDebt(ctx context.Context, actorID int64, record DebtRecord) error
	AppendEvent(ctx context.Context, actorID int64, record EventRecord) error
	AppendInvestment(ctx context.Context, actorID int64, record InvestmentRecord) error

	// UpdateInvestmentValue sets CurrentValue on the actor's investments matching assetSymbol.
	UpdateInvestmentValue(ctx context.Context, actorID int64, assetSymbol string, value decimal.Decimal) error

	Close() error
}
