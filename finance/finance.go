// Package finance holds the ports and shared helpers of the finance core.
package finance

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hrygo/finsense/store"
)

// Notifier delivers a text message to an actor.
type Notifier interface {
	Send(ctx context.Context, actorID int64, text string) error
}

// PriceFeed looks up market prices by ticker.
type PriceFeed interface {
	// PriceOf returns the latest close within period (e.g. "1d").
	PriceOf(ctx context.Context, ticker, period string) (decimal.Decimal, error)
	// Closes returns the daily closes within period, oldest first.
	Closes(ctx context.Context, ticker, period string) ([]decimal.Decimal, error)
}

// Scheduler registers time-based jobs.
type Scheduler interface {
	ScheduleOnce(at time.Time, name string, fn func(ctx context.Context)) string
	ScheduleRecurring(spec, name string, fn func(ctx context.Context)) (string, error)
}

var tickerAliases = map[string]string{
	"gold": "GC=F",
	"btc":  "BTC-USD",
}

// TickerFor maps an investment asset name to its price-feed ticker.
func TickerFor(asset string) string {
	asset = strings.ToLower(strings.TrimSpace(asset))
	if t, ok := tickerAliases[asset]; ok {
		return t
	}
	return strings.ToUpper(asset) + "-USD"
}

// QuoteTicker is TickerFor plus the index aliases accepted by /get_price.
func QuoteTicker(asset string) string {
	if strings.EqualFold(strings.TrimSpace(asset), "vn-index") {
		return "^VNI"
	}
	return TickerFor(asset)
}

var eventLabels = map[store.EventType]string{
	store.EventWedding:       "đám cưới",
	store.EventBirthday:      "sinh nhật",
	store.EventReunion:       "họp lớp",
	store.EventTravel:        "du lịch",
	store.EventMajorPurchase: "mua sắm lớn",
	store.EventOther:         "sự kiện",
}

// EventLabel is the Vietnamese display name of an event type.
func EventLabel(t store.EventType) string {
	if l, ok := eventLabels[t]; ok {
		return l
	}
	return string(t)
}

// FormatVND renders an amount with dot thousands separators, e.g. 7.000.000.
// Fractions are rounded to whole dong.
func FormatVND(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// FormatPercent renders a percentage with two decimals.
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(2)
}
