package mongo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hrygo/finsense/store"
)

func TestUserDocRoundTrip(t *testing.T) {
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	user := store.NewUserProfile(42)
	user.Income = decimal.RequireFromString("15000000")
	user.Expenses = append(user.Expenses, store.ExpenseRecord{
		Timestamp:   time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC),
		Description: "ăn uống 50k",
		Amount:      decimal.RequireFromString("50000"),
		Category:    store.CategoryFood,
	})
	user.Debts = append(user.Debts, store.DebtRecord{
		Timestamp:   time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
		Description: "vay 2tr",
		Amount:      decimal.RequireFromString("2000000"),
		DueDate:     &due,
	})
	user.Investments = append(user.Investments, store.InvestmentRecord{
		AssetSymbol:    "btc",
		PurchaseAmount: decimal.RequireFromString("0.015"),
		PurchasePrice:  decimal.RequireFromString("60000.5"),
	})

	doc, err := fromProfile(user)
	require.NoError(t, err)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var decoded userDoc
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	got, err := decoded.toProfile()
	require.NoError(t, err)

	assert.Equal(t, int64(42), got.ActorID)
	assert.True(t, got.Income.Equal(user.Income))
	assert.True(t, got.Allocation.Wants.Equal(decimal.RequireFromString("0.3")))
	require.NoError(t, got.Allocation.Validate())
	require.Len(t, got.Expenses, 1)
	assert.Equal(t, store.CategoryFood, got.Expenses[0].Category)
	assert.True(t, got.Expenses[0].Amount.Equal(decimal.NewFromInt(50000)))
	require.Len(t, got.Debts, 1)
	require.NotNil(t, got.Debts[0].DueDate)
	assert.True(t, got.Debts[0].DueDate.Equal(due))
	require.Len(t, got.Investments, 1)
	assert.True(t, got.Investments[0].PurchasePrice.Equal(decimal.RequireFromString("60000.5")))
	assert.True(t, got.Investments[0].CurrentValue.IsZero())
	assert.Empty(t, got.Events)
	assert.True(t, got.RemindersEnabled)
}
