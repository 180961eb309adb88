package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/hrygo/finsense/internal/profile"
)

// Store provides access to the finance documents through the configured driver.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) GetUser(ctx context.Context, actorID int64) (*UserProfile, error) {
	return s.driver.GetUser(ctx, actorID)
}

// GetOrCreateUser inserts the default profile on first contact and returns the stored one.
func (s *Store) GetOrCreateUser(ctx context.Context, actorID int64) (*UserProfile, error) {
	if _, err := s.driver.InsertUserIfAbsent(ctx, NewUserProfile(actorID)); err != nil {
		return nil, errors.Wrap(err, "failed to insert user")
	}
	user, err := s.driver.GetUser(ctx, actorID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*UserProfile, error) {
	if find == nil {
		find = &FindUser{}
	}
	return s.driver.ListUsers(ctx, find)
}

func (s *Store) SetIncome(ctx context.Context, actorID int64, income decimal.Decimal) error {
	if income.IsNegative() {
		return ErrNegativeAmount
	}
	return s.driver.SetIncome(ctx, actorID, income)
}

func (s *Store) SetAllocation(ctx context.Context, actorID int64, allocation Allocation) error {
	if err := allocation.Validate(); err != nil {
		return err
	}
	return s.driver.SetAllocation(ctx, actorID, allocation)
}

func (s *Store) SetRemindersEnabled(ctx context.Context, actorID int64, enabled bool) error {
	return s.driver.SetRemindersEnabled(ctx, actorID, enabled)
}

func (s *Store) AppendExpense(ctx context.Context, actorID int64, record ExpenseRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	return s.driver.AppendExpense(ctx, actorID, record)
}

func (s *Store) AppendDebt(ctx context.Context, actorID int64, record DebtRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	return s.driver.AppendDebt(ctx, actorID, record)
}

func (s *Store) AppendEvent(ctx context.Context, actorID int64, record EventRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	return s.driver.AppendEvent(ctx, actorID, record)
}

func (s *Store) AppendInvestment(ctx context.Context, actorID int64, record InvestmentRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	return s.driver.AppendInvestment(ctx, actorID, record)
}

func (s *Store) UpdateInvestmentValue(ctx context.Context, actorID int64, assetSymbol string, value decimal.Decimal) error {
	if value.IsNegative() {
		return ErrNegativeAmount
	}
	return s.driver.UpdateInvestmentValue(ctx, actorID, assetSymbol, value)
}
