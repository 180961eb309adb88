// Package memory provides an in-process store driver.
// Documents live only for the lifetime of the process; it backs tests and the "memory" driver.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/hrygo/finsense/store"
)

type DB struct {
	mu    sync.RWMutex
	users map[int64]*store.UserProfile
}

// NewDB creates an empty in-memory driver.
func NewDB() *DB {
	return &DB{users: make(map[int64]*store.UserProfile)}
}

func (d *DB) Close() error {
	return nil
}

func (d *DB) GetUser(ctx context.Context, actorID int64) (*store.UserProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[actorID]
	if !ok {
		return nil, nil
	}
	return clone(user), nil
}

func (d *DB) InsertUserIfAbsent(ctx context.Context, user *store.UserProfile) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[user.ActorID]; ok {
		return false, nil
	}
	d.users[user.ActorID] = clone(user)
	return true, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.UserProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var users []*store.UserProfile
	for _, user := range d.users {
		if find.HasInvestments && len(user.Investments) == 0 {
			continue
		}
		if find.RemindersEnabled != nil && user.RemindersEnabled != *find.RemindersEnabled {
			continue
		}
		users = append(users, clone(user))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ActorID < users[j].ActorID })
	return users, nil
}

func (d *DB) SetIncome(ctx context.Context, actorID int64, income decimal.Decimal) error {
	return d.update(actorID, func(u *store.UserProfile) { u.Income = income })
}

func (d *DB) SetAllocation(ctx context.Context, actorID int64, allocation store.Allocation) error {
	return d.update(actorID, func(u *store.UserProfile) { u.Allocation = allocation })
}

func (d *DB) SetRemindersEnabled(ctx context.Context, actorID int64, enabled bool) error {
	return d.update(actorID, func(u *store.UserProfile) { u.RemindersEnabled = enabled })
}

func (d *DB) AppendExpense(ctx context.Context, actorID int64, record store.ExpenseRecord) error {
	return d.update(actorID, func(u *store.UserProfile) { u.Expenses = append(u.Expenses, record) })
}

func (d *DB) AppendDebt(ctx context.Context, actorID int64, record store.DebtRecord) error {
	return d.update(actorID, func(u *store.UserProfile) { u.Debts = append(u.Debts, record) })
}

func (d *DB) AppendEvent(ctx context.Context, actorID int64, record store.EventRecord) error {
	return d.update(actorID, func(u *store.UserProfile) { u.Events = append(u.Events, record) })
}

func (d *DB) AppendInvestment(ctx context.Context, actorID int64, record store.InvestmentRecord) error {
	return d.update(actorID, func(u *store.UserProfile) { u.Investments = append(u.Investments, record) })
}

func (d *DB) UpdateInvestmentValue(ctx context.Context, actorID int64, assetSymbol string, value decimal.Decimal) error {
	return d.update(actorID, func(u *store.UserProfile) {
		for i := range u.Investments {
			if u.Investments[i].AssetSymbol == assetSymbol {
				u.Investments[i].CurrentValue = value
			}
		}
	})
}

func (d *DB) update(actorID int64, fn func(*store.UserProfile)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.users[actorID]
	if !ok {
		return store.ErrUserNotFound
	}
	fn(user)
	return nil
}

func clone(u *store.UserProfile) *store.UserProfile {
	c := *u
	c.Expenses = append([]store.ExpenseRecord{}, u.Expenses...)
	c.Debts = append([]store.DebtRecord{}, u.Debts...)
	c.Events = append([]store.EventRecord{}, u.Events...)
	c.Investments = append([]store.InvestmentRecord{}, u.Investments...)
	return &c
}

var _ store.Driver = (*DB)(nil)
