package budget

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/hrygo/finsense/store"
)

func expense(amount int64, category store.Category) store.ExpenseRecord {
	return store.ExpenseRecord{Amount: decimal.NewFromInt(amount), Category: category}
}

func TestOverBudget(t *testing.T) {
	wants := decimal.RequireFromString("0.3")

	tests := []struct {
		name     string
		income   int64
		expenses []store.ExpenseRecord
		want     bool
	}{
		{
			name:   "no expenses",
			income: 10_000_000,
			want:   false,
		},
		{
			name:     "exactly at the limit is not over",
			income:   10_000_000,
			expenses: []store.ExpenseRecord{expense(3_000_000, store.CategoryOther)},
			want:     false,
		},
		{
			name:     "one unit over the limit",
			income:   10_000_000,
			expenses: []store.ExpenseRecord{expense(2_000_000, store.CategoryOther), expense(1_000_001, store.CategoryEntertainment)},
			want:     true,
		},
		{
			name:     "needs categories are ignored",
			income:   10_000_000,
			expenses: []store.ExpenseRecord{expense(9_000_000, store.CategoryFood), expense(5_000_000, store.CategoryTransport)},
			want:     false,
		},
		{
			name:     "scenario B",
			income:   20_000_000,
			expenses: []store.ExpenseRecord{expense(7_000_000, store.CategoryOther)},
			want:     true,
		},
		{
			name:     "zero income with any wants spending",
			income:   0,
			expenses: []store.ExpenseRecord{expense(1, store.CategoryOther)},
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OverBudget(WantsCategories, decimal.NewFromInt(tt.income), wants, tt.expenses)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOverBudgetMatchesSum(t *testing.T) {
	income := decimal.NewFromInt(1_000)
	wants := decimal.RequireFromString("0.3")
	var expenses []store.ExpenseRecord
	sum := decimal.Zero
	for i := int64(1); i <= 40; i++ {
		category := store.Categories[i%int64(len(store.Categories))]
		expenses = append(expenses, expense(i, category))
		if category == store.CategoryEntertainment || category == store.CategoryOther {
			sum = sum.Add(decimal.NewFromInt(i))
		}
		assert.Equal(t, sum.GreaterThan(decimal.NewFromInt(300)), OverBudget(WantsCategories, income, wants, expenses))
	}
}

func TestByCategory(t *testing.T) {
	totals := ByCategory([]store.ExpenseRecord{
		expense(10, store.CategoryFood),
		expense(5, store.CategoryFood),
		expense(7, store.CategoryOther),
	})
	assert.True(t, totals[store.CategoryFood].Equal(decimal.NewFromInt(15)))
	assert.True(t, totals[store.CategoryOther].Equal(decimal.NewFromInt(7)))
	assert.True(t, totals[store.CategoryTransport].IsZero())
}

func TestDebtNeedsAdvice(t *testing.T) {
	income := decimal.NewFromInt(10_000_000)
	assert.False(t, DebtNeedsAdvice(decimal.NewFromInt(1_000_000), income))
	assert.True(t, DebtNeedsAdvice(decimal.NewFromInt(1_000_001), income))
}
