package store

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrUserNotFound is returned when a mutation targets an actor that has no profile.
	ErrUserNotFound = errors.New("user not found")
	// ErrNegativeAmount is returned when a record carries a negative monetary amount.
	ErrNegativeAmount = errors.New("amount must not be negative")
	// ErrInvalidAllocation is returned when allocation ratios are negative or do not sum to 1.
	ErrInvalidAllocation = errors.New("allocation ratios must be non-negative and sum to 1")
)

// Category is the spending category of an expense.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryEntertainment Category = "Entertainment"
	CategoryOther         Category = "Other"
)

// Categories lists every expense category in display order.
var Categories = []Category{CategoryFood, CategoryTransport, CategoryEntertainment, CategoryOther}

// IsValid checks if the category is one of the known categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryFood, CategoryTransport, CategoryEntertainment, CategoryOther:
		return true
	default:
		return false
	}
}

// EventType is the kind of a remembered life event.
type EventType string

const (
	EventWedding       EventType = "wedding"
	EventBirthday      EventType = "birthday"
	EventReunion       EventType = "reunion"
	EventTravel        EventType = "travel"
	EventMajorPurchase EventType = "major-purchase"
	EventOther         EventType = "other"
)

// Allocation splits income into needs, wants and savings.
type Allocation struct {
	Needs   decimal.Decimal
	Wants   decimal.Decimal
	Savings decimal.Decimal
}

// DefaultAllocation returns the 50/30/20 split given to new users.
func DefaultAllocation() Allocation {
	return Allocation{
		Needs:   decimal.RequireFromString("0.5"),
		Wants:   decimal.RequireFromString("0.3"),
		Savings: decimal.RequireFromString("0.2"),
	}
}

// Validate checks that every ratio is non-negative and that they sum to exactly 1.
func (a Allocation) Validate() error {
	if a.Needs.IsNegative() || a.Wants.IsNegative() || a.Savings.IsNegative() {
		return ErrInvalidAllocation
	}
	if !a.Needs.Add(a.Wants).Add(a.Savings).Equal(decimal.NewFromInt(1)) {
		return ErrInvalidAllocation
	}
	return nil
}

// ExpenseRecord is a single spending entry. Immutable once appended.
type ExpenseRecord struct {
	Timestamp   time.Time
	Description string
	Amount      decimal.Decimal
	Category    Category
}

// DebtRecord is a single debt entry. Immutable once appended.
type DebtRecord struct {
	Timestamp   time.Time
	Description string
	Amount      decimal.Decimal
	DueDate     *time.Time
}

// EventRecord is a remembered event. OccursOn is always a solar date.
type EventRecord struct {
	OccursOn       time.Time
	Description    string
	Type           EventType
	IsLunarOrigin  bool
	CostEstimate   decimal.Decimal
	GiftSuggestion string
}

// InvestmentRecord tracks a purchased asset. Only CurrentValue changes after creation.
type InvestmentRecord struct {
	AssetSymbol    string
	PurchaseAmount decimal.Decimal
	PurchasePrice  decimal.Decimal
	CurrentValue   decimal.Decimal
}

// UserProfile is the per-actor finance document.
type UserProfile struct {
	ActorID          int64
	Income           decimal.Decimal
	Allocation       Allocation
	Expenses         []ExpenseRecord
	Debts            []DebtRecord
	Events           []EventRecord
	Investments      []InvestmentRecord
	RemindersEnabled bool
	CreatedTs        int64
}

// NewUserProfile returns the profile created on first contact.
func NewUserProfile(actorID int64) *UserProfile {
	return &UserProfile{
		ActorID:          actorID,
		Income:           decimal.Zero,
		Allocation:       DefaultAllocation(),
		Expenses:         []ExpenseRecord{},
		Debts:            []DebtRecord{},
		Events:           []EventRecord{},
		Investments:      []InvestmentRecord{},
		RemindersEnabled: true,
		CreatedTs:        time.Now().Unix(),
	}
}

// FindUser specifies the conditions for listing users.
type FindUser struct {
	HasInvestments   bool
	RemindersEnabled *bool
}

// Validate checks the expense before it is appended.
func (r ExpenseRecord) Validate() error {
	if r.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !r.Category.IsValid() {
		return errors.Errorf("invalid expense category %q", r.Category)
	}
	return nil
}

// Validate checks the debt before it is appended.
func (r DebtRecord) Validate() error {
	if r.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Validate checks the event before it is appended.
func (r EventRecord) Validate() error {
	if r.CostEstimate.IsNegative() {
		return ErrNegativeAmount
	}
	if r.OccursOn.IsZero() {
		return errors.New("event date is required")
	}
	return nil
}

// Validate checks the investment before it is appended.
func (r InvestmentRecord) Validate() error {
	if r.AssetSymbol == "" {
		return errors.New("asset symbol is required")
	}
	if r.PurchaseAmount.IsNegative() || r.PurchasePrice.IsNegative() || r.CurrentValue.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}
