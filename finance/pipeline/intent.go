// Package pipeline interprets free-text finance messages and applies their effects.
//
// Interpret is side-effect free apart from classifier and generator calls: it returns
// an Outcome listing the mutations, replies and reminders the message implies.
// The Executor applies them; the Service wires both around the user store.
package pipeline

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hrygo/finsense/finance/extract"
	"github.com/hrygo/finsense/store"
)

var (
	// ErrMissingDate is set on an event outcome whose text has no usable date.
	ErrMissingDate = errors.New("event date missing")
	// ErrInvalidLunarDate is set when the extracted lunar date cannot be converted.
	// It wraps lunar.ErrInvalidDate.
	ErrInvalidLunarDate = errors.New("invalid lunar date")
)

// Intent is the coarse category a message is routed to.
type Intent string

const (
	IntentExpense  Intent = "expense"
	IntentDebt     Intent = "debt"
	IntentEvent    Intent = "event"
	IntentQuestion Intent = "question"
	IntentUnknown  Intent = "unknown"
)

// ConfidenceThreshold is the score a top label must exceed to be accepted.
const ConfidenceThreshold = 0.6

// IntentLabels is the candidate set for intent classification.
var IntentLabels = []string{string(IntentExpense), string(IntentDebt), string(IntentEvent), string(IntentQuestion)}

// EventTypeLabels is the candidate set for event-type classification.
var EventTypeLabels = []string{
	string(store.EventWedding),
	string(store.EventBirthday),
	string(store.EventReunion),
	string(store.EventTravel),
	string(store.EventMajorPurchase),
	string(store.EventOther),
}

// Event cost estimates in VND.
var eventCosts = map[store.EventType]decimal.Decimal{
	store.EventWedding:       decimal.NewFromInt(5_000_000),
	store.EventBirthday:      decimal.NewFromInt(1_000_000),
	store.EventReunion:       decimal.NewFromInt(2_000_000),
	store.EventTravel:        decimal.NewFromInt(10_000_000),
	store.EventMajorPurchase: decimal.NewFromInt(50_000_000),
}

var defaultEventCost = decimal.NewFromInt(1_000_000)

// CostEstimate returns the planned spend for an event type.
func CostEstimate(t store.EventType) decimal.Decimal {
	if c, ok := eventCosts[t]; ok {
		return c
	}
	return defaultEventCost
}

// IntentResult is what Interpret understood from one message.
type IntentResult struct {
	Intent        Intent
	Confidence    float64
	Amount        decimal.Decimal
	Date          extract.OptionalDate
	Text          string
	IsLunarOrigin bool
}

// Effect is one action implied by a message.
type Effect interface {
	effect()
}

type AppendExpense struct {
	Record store.ExpenseRecord
}

type AppendDebt struct {
	Record store.DebtRecord
}

type AppendEvent struct {
	Record store.EventRecord
}

// Reply is a message sent back to the requester.
type Reply struct {
	Text string
}

// ScheduleReminder registers a one-off reminder delivered at At.
type ScheduleReminder struct {
	At   time.Time
	Name string
	Text string
}

func (AppendExpense) effect()    {}
func (AppendDebt) effect()       {}
func (AppendEvent) effect()      {}
func (Reply) effect()            {}
func (ScheduleReminder) effect() {}

// Outcome is the result of interpreting one message.
// Err is ErrMissingDate or ErrInvalidLunarDate when the event could not be recorded.
type Outcome struct {
	ID      string
	Result  IntentResult
	Effects []Effect
	Err     error
}

// Replies returns the text of every Reply effect, in order.
func (o Outcome) Replies() []string {
	var texts []string
	for _, e := range o.Effects {
		if r, ok := e.(Reply); ok {
			texts = append(texts, r.Text)
		}
	}
	return texts
}
