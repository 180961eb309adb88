package pipeline

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hrygo/finsense/finance/extract"
)

// PendingExpenseTTL is how long a /add_expense selection waits for its category.
const PendingExpenseTTL = 10 * time.Minute

const defaultExpenseDescription = "Không có mô tả"

var (
	// ErrNoPendingExpense is returned when a category arrives with no live selection.
	ErrNoPendingExpense = errors.New("no pending expense")
	// ErrInvalidExpenseArgs is returned for /add_expense without a parseable amount.
	ErrInvalidExpenseArgs = errors.New("usage: /add_expense <description> <amount>")
)

// PendingExpense is an expense waiting for the requester to pick a category.
type PendingExpense struct {
	Description string
	Amount      decimal.Decimal
	CreatedAt   time.Time
}

// ParseExpenseArgs reads "<description...> <amount>"; the amount accepts the k/tr suffixes.
func ParseExpenseArgs(args []string) (PendingExpense, error) {
	if len(args) == 0 {
		return PendingExpense{}, ErrInvalidExpenseArgs
	}
	amount, ok := extract.ParseAmount(strings.ToLower(args[len(args)-1]))
	if !ok || amount.IsNegative() {
		return PendingExpense{}, ErrInvalidExpenseArgs
	}
	desc := strings.TrimSpace(strings.Join(args[:len(args)-1], " "))
	if desc == "" {
		desc = defaultExpenseDescription
	}
	return PendingExpense{Description: desc, Amount: amount}, nil
}
