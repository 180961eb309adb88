// Package budget evaluates spending against a user's allocation.
package budget

import (
	"github.com/shopspring/decimal"

	"github.com/hrygo/finsense/store"
)

// DebtAdviceRatio is the share of income above which a single debt triggers advice.
var DebtAdviceRatio = decimal.RequireFromString("0.1")

// WantsCategories are the discretionary categories charged against the wants ratio.
var WantsCategories = []store.Category{store.CategoryEntertainment, store.CategoryOther}

// Total sums the expenses whose category is in categories.
func Total(categories []store.Category, expenses []store.ExpenseRecord) decimal.Decimal {
	set := make(map[store.Category]bool, len(categories))
	for _, c := range categories {
		set[c] = true
	}

	total := decimal.Zero
	for _, e := range expenses {
		if set[e.Category] {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// Limit is the share of income allotted by ratio.
func Limit(income, ratio decimal.Decimal) decimal.Decimal {
	return income.Mul(ratio)
}

// OverBudget reports whether spending in categories exceeds income × ratio.
// The full history is re-scanned on every call.
func OverBudget(categories []store.Category, income, ratio decimal.Decimal, expenses []store.ExpenseRecord) bool {
	return Total(categories, expenses).GreaterThan(Limit(income, ratio))
}

// ByCategory sums every expense per category.
func ByCategory(expenses []store.ExpenseRecord) map[store.Category]decimal.Decimal {
	totals := make(map[store.Category]decimal.Decimal, len(store.Categories))
	for _, e := range expenses {
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	return totals
}

// DebtNeedsAdvice reports whether a debt amount exceeds the advice share of income.
func DebtNeedsAdvice(amount, income decimal.Decimal) bool {
	return amount.GreaterThan(income.Mul(DebtAdviceRatio))
}
