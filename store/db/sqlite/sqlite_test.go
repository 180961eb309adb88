package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/finsense/internal/profile"
	"github.com/hrygo/finsense/store"
)

func newTestDriver(t *testing.T) store.Driver {
	t.Helper()
	p := &profile.Profile{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "finsense_test.db")}
	driver, err := NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })
	return driver
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	missing, err := driver.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	inserted, err := driver.InsertUserIfAbsent(ctx, store.NewUserProfile(1))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = driver.InsertUserIfAbsent(ctx, store.NewUserProfile(1))
	require.NoError(t, err)
	assert.False(t, inserted)

	require.NoError(t, driver.SetIncome(ctx, 1, decimal.RequireFromString("12500000")))
	require.NoError(t, driver.SetRemindersEnabled(ctx, 1, false))

	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, driver.AppendExpense(ctx, 1, store.ExpenseRecord{
		Timestamp: time.Unix(1700000000, 0), Description: "cafe", Amount: decimal.NewFromInt(45000), Category: store.CategoryFood,
	}))
	require.NoError(t, driver.AppendDebt(ctx, 1, store.DebtRecord{
		Timestamp: time.Unix(1700000100, 0), Description: "vay", Amount: decimal.NewFromInt(2000000), DueDate: &due,
	}))
	require.NoError(t, driver.AppendEvent(ctx, 1, store.EventRecord{
		OccursOn: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), Description: "tết", Type: store.EventOther,
		IsLunarOrigin: true, CostEstimate: decimal.NewFromInt(1000000), GiftSuggestion: "bánh chưng",
	}))
	require.NoError(t, driver.AppendInvestment(ctx, 1, store.InvestmentRecord{
		AssetSymbol: "btc", PurchaseAmount: decimal.RequireFromString("0.5"), PurchasePrice: decimal.NewFromInt(60000),
	}))
	require.NoError(t, driver.UpdateInvestmentValue(ctx, 1, "btc", decimal.NewFromInt(66000)))

	user, err := driver.GetUser(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.Income.Equal(decimal.RequireFromString("12500000")))
	assert.False(t, user.RemindersEnabled)
	require.Len(t, user.Expenses, 1)
	assert.Equal(t, store.CategoryFood, user.Expenses[0].Category)
	require.Len(t, user.Debts, 1)
	require.NotNil(t, user.Debts[0].DueDate)
	assert.True(t, user.Debts[0].DueDate.Equal(due))
	require.Len(t, user.Events, 1)
	assert.True(t, user.Events[0].IsLunarOrigin)
	assert.Equal(t, "bánh chưng", user.Events[0].GiftSuggestion)
	require.Len(t, user.Investments, 1)
	assert.True(t, user.Investments[0].CurrentValue.Equal(decimal.NewFromInt(66000)))
}

func TestMutationsOnUnknownActor(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	err := driver.AppendExpense(ctx, 404, store.ExpenseRecord{Amount: decimal.NewFromInt(1), Category: store.CategoryOther})
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	err = driver.SetIncome(ctx, 404, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	for _, id := range []int64{2, 1} {
		_, err := driver.InsertUserIfAbsent(ctx, store.NewUserProfile(id))
		require.NoError(t, err)
	}
	require.NoError(t, driver.AppendInvestment(ctx, 2, store.InvestmentRecord{
		AssetSymbol: "gold", PurchaseAmount: decimal.NewFromInt(1), PurchasePrice: decimal.NewFromInt(2000),
	}))

	all, err := driver.ListUsers(ctx, &store.FindUser{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].ActorID)

	investors, err := driver.ListUsers(ctx, &store.FindUser{HasInvestments: true})
	require.NoError(t, err)
	require.Len(t, investors, 1)
	assert.Equal(t, int64(2), investors[0].ActorID)
}
