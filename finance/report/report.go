// Package report builds the /report summary and the weekly digest.
package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hrygo/finsense/finance"
	"github.com/hrygo/finsense/finance/budget"
	"github.com/hrygo/finsense/store"
)

// ForecastDays scales the mean expense into a monthly forecast.
const ForecastDays = 30

const replyNoExpenses = "Chưa có chi tiêu nào, thưa ngài."

// Summary is a user's spending overview at one point in time.
type Summary struct {
	ByCategory map[store.Category]decimal.Decimal
	Total      decimal.Decimal
	Forecast   decimal.Decimal
	Upcoming   []store.EventRecord
	Count      int
}

// Summarize totals the user's expenses and lists events after now, soonest first.
func Summarize(user *store.UserProfile, now time.Time) Summary {
	s := Summary{
		ByCategory: budget.ByCategory(user.Expenses),
		Total:      decimal.Zero,
		Forecast:   decimal.Zero,
		Count:      len(user.Expenses),
	}
	for _, e := range user.Expenses {
		s.Total = s.Total.Add(e.Amount)
	}
	if s.Count > 0 {
		mean := s.Total.Div(decimal.NewFromInt(int64(s.Count)))
		s.Forecast = mean.Mul(decimal.NewFromInt(ForecastDays))
	}

	for _, ev := range user.Events {
		if ev.OccursOn.After(now) {
			s.Upcoming = append(s.Upcoming, ev)
		}
	}
	slices.SortStableFunc(s.Upcoming, func(a, b store.EventRecord) int {
		return a.OccursOn.Compare(b.OccursOn)
	})
	return s
}

// Message renders the summary as the /report reply.
func (s Summary) Message() string {
	if s.Count == 0 {
		return replyNoExpenses
	}

	var b strings.Builder
	b.WriteString("Báo cáo chi tiêu:\n")
	for _, c := range store.Categories {
		if total, ok := s.ByCategory[c]; ok {
			fmt.Fprintf(&b, "- %s: %s VND\n", c, finance.FormatVND(total))
		}
	}
	fmt.Fprintf(&b, "Tổng: %s VND\n", finance.FormatVND(s.Total))
	fmt.Fprintf(&b, "Dự báo tháng: %s VND.\n", finance.FormatVND(s.Forecast))

	if len(s.Upcoming) == 0 {
		b.WriteString("Sự kiện sắp tới: không có.")
		return b.String()
	}
	events := make([]string, 0, len(s.Upcoming))
	for _, ev := range s.Upcoming {
		events = append(events, fmt.Sprintf("%s (%s)", finance.EventLabel(ev.Type), ev.OccursOn.Format("02/01/2006")))
	}
	fmt.Fprintf(&b, "Sự kiện sắp tới: %s.", strings.Join(events, ", "))
	return b.String()
}
