package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/finsense/store"
	"github.com/hrygo/finsense/store/db/memory"
)

func newTestStore() *store.Store {
	return store.New(memory.NewDB(), nil)
}

func TestGetOrCreateUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	user, err := s.GetOrCreateUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ActorID)
	assert.True(t, user.Income.IsZero())
	assert.True(t, user.RemindersEnabled)
	assert.True(t, user.Allocation.Needs.Equal(decimal.RequireFromString("0.5")))

	require.NoError(t, s.SetIncome(ctx, 7, decimal.NewFromInt(10_000_000)))

	again, err := s.GetOrCreateUser(ctx, 7)
	require.NoError(t, err)
	assert.True(t, again.Income.Equal(decimal.NewFromInt(10_000_000)), "second contact must not reset the profile")
}

func TestStoreValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, err := s.GetOrCreateUser(ctx, 1)
	require.NoError(t, err)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{
			name: "negative income",
			run:  func() error { return s.SetIncome(ctx, 1, decimal.NewFromInt(-1)) },
			want: store.ErrNegativeAmount,
		},
		{
			name: "negative expense",
			run: func() error {
				return s.AppendExpense(ctx, 1, store.ExpenseRecord{Amount: decimal.NewFromInt(-5), Category: store.CategoryFood})
			},
			want: store.ErrNegativeAmount,
		},
		{
			name: "negative debt",
			run:  func() error { return s.AppendDebt(ctx, 1, store.DebtRecord{Amount: decimal.NewFromInt(-5)}) },
			want: store.ErrNegativeAmount,
		},
		{
			name: "allocation not summing to one",
			run: func() error {
				return s.SetAllocation(ctx, 1, store.Allocation{
					Needs:   decimal.RequireFromString("0.5"),
					Wants:   decimal.RequireFromString("0.5"),
					Savings: decimal.RequireFromString("0.5"),
				})
			},
			want: store.ErrInvalidAllocation,
		},
		{
			name: "unknown actor",
			run: func() error {
				return s.AppendDebt(ctx, 99, store.DebtRecord{Amount: decimal.NewFromInt(5)})
			},
			want: store.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.want)
		})
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, err := s.GetOrCreateUser(ctx, 1)
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendExpense(ctx, 1, store.ExpenseRecord{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Amount:    decimal.NewFromInt(int64(i + 1)),
			Category:  store.CategoryOther,
		}))
	}

	user, err := s.GetUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, user.Expenses, 3)
	for i, e := range user.Expenses {
		assert.True(t, e.Amount.Equal(decimal.NewFromInt(int64(i+1))))
	}
}

func TestListUsersFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for _, id := range []int64{3, 1, 2} {
		_, err := s.GetOrCreateUser(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, s.AppendInvestment(ctx, 2, store.InvestmentRecord{
		AssetSymbol:    "gold",
		PurchaseAmount: decimal.NewFromInt(1),
		PurchasePrice:  decimal.NewFromInt(2000),
	}))
	require.NoError(t, s.SetRemindersEnabled(ctx, 3, false))

	all, err := s.ListUsers(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(1), all[0].ActorID)

	investors, err := s.ListUsers(ctx, &store.FindUser{HasInvestments: true})
	require.NoError(t, err)
	require.Len(t, investors, 1)
	assert.Equal(t, int64(2), investors[0].ActorID)

	enabled := true
	subscribed, err := s.ListUsers(ctx, &store.FindUser{RemindersEnabled: &enabled})
	require.NoError(t, err)
	assert.Len(t, subscribed, 2)

	require.NoError(t, s.UpdateInvestmentValue(ctx, 2, "gold", decimal.NewFromInt(2100)))
	user, err := s.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.True(t, user.Investments[0].CurrentValue.Equal(decimal.NewFromInt(2100)))
}

func TestGetUserReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	user, err := s.GetOrCreateUser(ctx, 1)
	require.NoError(t, err)

	user.Expenses = append(user.Expenses, store.ExpenseRecord{Amount: decimal.NewFromInt(1)})

	fresh, err := s.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, fresh.Expenses)
}
