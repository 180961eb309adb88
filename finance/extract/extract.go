// Package extract pulls money amounts, dates and the lunar flag out of free text.
package extract

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Entities are the values extracted from one message.
type Entities struct {
	Amount        decimal.Decimal
	Date          OptionalDate
	IsLunarOrigin bool
}

var lunarMarkers = map[string]bool{
	"am":    true,
	"âm":    true,
	"lunar": true,
}

// Extractor turns text into Entities. Extraction is deterministic for a fixed clock.
type Extractor struct {
	tagger Tagger
	now    func() time.Time
}

type Option func(*Extractor)

func WithTagger(t Tagger) Option {
	return func(e *Extractor) { e.tagger = t }
}

// WithClock fixes the clock used to resolve dates without a year.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

func New(opts ...Option) *Extractor {
	e := &Extractor{tagger: RegexTagger{}, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract never fails: values it cannot find are left at their zero value.
func (e *Extractor) Extract(text string) Entities {
	text = strings.ToLower(text)
	now := e.now()

	ents := Entities{Amount: decimal.Zero}
	dateFound := false
	for _, span := range e.tagger.Tag(text) {
		switch span.Type {
		case SpanMoney:
			if amount, ok := ParseAmount(span.Text); ok {
				ents.Amount = amount
			}
		case SpanDate:
			dateFound = true
			if d, ok := ParseDate(span.Text, now); ok {
				ents.Date = SomeDate(d)
			}
		}
	}

	if !dateFound {
		if fields := strings.Fields(text); len(fields) > 0 {
			if d, ok := ParseDate(trimPunct(fields[len(fields)-1]), now); ok {
				ents.Date = SomeDate(d)
			}
		}
	}

	for _, token := range strings.Fields(text) {
		if lunarMarkers[trimPunct(token)] {
			ents.IsLunarOrigin = true
			break
		}
	}
	return ents
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, unicode.IsPunct)
}
