package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hrygo/finsense/store"
)

type allocationDoc struct {
	Needs   bson.Decimal128 `bson:"needs"`
	Wants   bson.Decimal128 `bson:"wants"`
	Savings bson.Decimal128 `bson:"savings"`
}

type expenseDoc struct {
	Timestamp   time.Time       `bson:"timestamp"`
	Description string          `bson:"description"`
	Amount      bson.Decimal128 `bson:"amount"`
	Category    string          `bson:"category"`
}

type debtDoc struct {
	Timestamp   time.Time       `bson:"timestamp"`
	Description string          `bson:"description"`
	Amount      bson.Decimal128 `bson:"amount"`
	DueDate     *time.Time      `bson:"due_date,omitempty"`
}

type eventDoc struct {
	Date           time.Time       `bson:"date"`
	Description    string          `bson:"description"`
	Type           string          `bson:"type"`
	IsLunar        bool            `bson:"is_lunar"`
	CostEstimate   bson.Decimal128 `bson:"cost_estimate"`
	GiftSuggestion string          `bson:"gift_suggestion"`
}

type investmentDoc struct {
	Asset          string          `bson:"asset"`
	PurchaseAmount bson.Decimal128 `bson:"amount"`
	PurchasePrice  bson.Decimal128 `bson:"purchase_price"`
	CurrentValue   bson.Decimal128 `bson:"current_value"`
}

type userDoc struct {
	ActorID          int64           `bson:"user_id"`
	Income           bson.Decimal128 `bson:"income"`
	Allocation       allocationDoc   `bson:"allocation"`
	Expenses         []expenseDoc    `bson:"expenses"`
	Debts            []debtDoc       `bson:"debts"`
	Events           []eventDoc      `bson:"events"`
	Investments      []investmentDoc `bson:"investments"`
	RemindersEnabled bool            `bson:"reminders_enabled"`
	CreatedTs        int64           `bson:"created_ts"`
}

func toDecimal128(d decimal.Decimal) (bson.Decimal128, error) {
	v, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, fmt.Errorf("error encoding decimal %s: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v bson.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("error decoding decimal %s: %w", v.String(), err)
	}
	return d, nil
}

// decimalCodec accumulates the first conversion error so mapping code stays flat.
type decimalCodec struct {
	err error
}

func (c *decimalCodec) enc(d decimal.Decimal) bson.Decimal128 {
	v, err := toDecimal128(d)
	if err != nil && c.err == nil {
		c.err = err
	}
	return v
}

func (c *decimalCodec) dec(v bson.Decimal128) decimal.Decimal {
	d, err := fromDecimal128(v)
	if err != nil && c.err == nil {
		c.err = err
	}
	return d
}

func fromAllocation(a store.Allocation) (allocationDoc, error) {
	var c decimalCodec
	doc := allocationDoc{Needs: c.enc(a.Needs), Wants: c.enc(a.Wants), Savings: c.enc(a.Savings)}
	return doc, c.err
}

func fromExpense(r store.ExpenseRecord) (expenseDoc, error) {
	var c decimalCodec
	doc := expenseDoc{
		Timestamp:   r.Timestamp,
		Description: r.Description,
		Amount:      c.enc(r.Amount),
		Category:    string(r.Category),
	}
	return doc, c.err
}

func fromDebt(r store.DebtRecord) (debtDoc, error) {
	var c decimalCodec
	doc := debtDoc{
		Timestamp:   r.Timestamp,
		Description: r.Description,
		Amount:      c.enc(r.Amount),
		DueDate:     r.DueDate,
	}
	return doc, c.err
}

func fromEvent(r store.EventRecord) (eventDoc, error) {
	var c decimalCodec
	doc := eventDoc{
		Date:           r.OccursOn,
		Description:    r.Description,
		Type:           string(r.Type),
		IsLunar:        r.IsLunarOrigin,
		CostEstimate:   c.enc(r.CostEstimate),
		GiftSuggestion: r.GiftSuggestion,
	}
	return doc, c.err
}

func fromInvestment(r store.InvestmentRecord) (investmentDoc, error) {
	var c decimalCodec
	doc := investmentDoc{
		Asset:          r.AssetSymbol,
		PurchaseAmount: c.enc(r.PurchaseAmount),
		PurchasePrice:  c.enc(r.PurchasePrice),
		CurrentValue:   c.enc(r.CurrentValue),
	}
	return doc, c.err
}

func fromProfile(u *store.UserProfile) (*userDoc, error) {
	var c decimalCodec
	doc := &userDoc{
		ActorID:          u.ActorID,
		Income:           c.enc(u.Income),
		Expenses:         []expenseDoc{},
		Debts:            []debtDoc{},
		Events:           []eventDoc{},
		Investments:      []investmentDoc{},
		RemindersEnabled: u.RemindersEnabled,
		CreatedTs:        u.CreatedTs,
	}
	if c.err != nil {
		return nil, c.err
	}

	var err error
	if doc.Allocation, err = fromAllocation(u.Allocation); err != nil {
		return nil, err
	}
	for _, r := range u.Expenses {
		d, err := fromExpense(r)
		if err != nil {
			return nil, err
		}
		doc.Expenses = append(doc.Expenses, d)
	}
	for _, r := range u.Debts {
		d, err := fromDebt(r)
		if err != nil {
			return nil, err
		}
		doc.Debts = append(doc.Debts, d)
	}
	for _, r := range u.Events {
		d, err := fromEvent(r)
		if err != nil {
			return nil, err
		}
		doc.Events = append(doc.Events, d)
	}
	for _, r := range u.Investments {
		d, err := fromInvestment(r)
		if err != nil {
			return nil, err
		}
		doc.Investments = append(doc.Investments, d)
	}
	return doc, nil
}

func (doc *userDoc) toProfile() (*store.UserProfile, error) {
	var c decimalCodec
	u := &store.UserProfile{
		ActorID: doc.ActorID,
		Income:  c.dec(doc.Income),
		Allocation: store.Allocation{
			Needs:   c.dec(doc.Allocation.Needs),
			Wants:   c.dec(doc.Allocation.Wants),
			Savings: c.dec(doc.Allocation.Savings),
		},
		Expenses:         make([]store.ExpenseRecord, 0, len(doc.Expenses)),
		Debts:            make([]store.DebtRecord, 0, len(doc.Debts)),
		Events:           make([]store.EventRecord, 0, len(doc.Events)),
		Investments:      make([]store.InvestmentRecord, 0, len(doc.Investments)),
		RemindersEnabled: doc.RemindersEnabled,
		CreatedTs:        doc.CreatedTs,
	}
	for _, e := range doc.Expenses {
		u.Expenses = append(u.Expenses, store.ExpenseRecord{
			Timestamp:   e.Timestamp,
			Description: e.Description,
			Amount:      c.dec(e.Amount),
			Category:    store.Category(e.Category),
		})
	}
	for _, d := range doc.Debts {
		u.Debts = append(u.Debts, store.DebtRecord{
			Timestamp:   d.Timestamp,
			Description: d.Description,
			Amount:      c.dec(d.Amount),
			DueDate:     d.DueDate,
		})
	}
	for _, e := range doc.Events {
		u.Events = append(u.Events, store.EventRecord{
			OccursOn:       e.Date,
			Description:    e.Description,
			Type:           store.EventType(e.Type),
			IsLunarOrigin:  e.IsLunar,
			CostEstimate:   c.dec(e.CostEstimate),
			GiftSuggestion: e.GiftSuggestion,
		})
	}
	for _, i := range doc.Investments {
		u.Investments = append(u.Investments, store.InvestmentRecord{
			AssetSymbol:    i.Asset,
			PurchaseAmount: c.dec(i.PurchaseAmount),
			PurchasePrice:  c.dec(i.PurchasePrice),
			CurrentValue:   c.dec(i.CurrentValue),
		})
	}
	if c.err != nil {
		return nil, c.err
	}
	return u, nil
}
