// Package monitor re-prices every tracked investment and alerts on large moves.
package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/finsense/ai/metrics"
	"github.com/hrygo/finsense/finance"
	"github.com/hrygo/finsense/store"
)

// PricePeriod is the window the daily check asks the feed for.
const PricePeriod = "1d"

// DefaultConcurrency bounds how many users are checked at once.
const DefaultConcurrency = 4

// AlertThreshold is the absolute percentage change that triggers an alert.
var AlertThreshold = decimal.NewFromInt(5)

var hundred = decimal.NewFromInt(100)

// Monitor implements the daily investment check.
type Monitor struct {
	store       *store.Store
	feed        finance.PriceFeed
	notifier    finance.Notifier
	metrics     *metrics.PrometheusExporter
	concurrency int
}

type Option func(*Monitor)

func WithConcurrency(n int) Option {
	return func(m *Monitor) { m.concurrency = n }
}

func WithMetrics(e *metrics.PrometheusExporter) Option {
	return func(m *Monitor) { m.metrics = e }
}

func New(st *store.Store, feed finance.PriceFeed, notifier finance.Notifier, opts ...Option) *Monitor {
	m := &Monitor{
		store:       st,
		feed:        feed,
		notifier:    notifier,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.concurrency <= 0 {
		m.concurrency = DefaultConcurrency
	}
	return m
}

// Result counts what one run did.
type Result struct {
	Checked int
	Alerts  int
	Failed  int
}

// ChangePercent is (current - purchase) / purchase × 100. A zero purchase
// price has no defined change and reports false.
func ChangePercent(purchase, current decimal.Decimal) (decimal.Decimal, bool) {
	if purchase.IsZero() {
		return decimal.Zero, false
	}
	return current.Sub(purchase).Div(purchase).Mul(hundred), true
}

// ShouldAlert reports whether change exceeds AlertThreshold in either direction.
func ShouldAlert(change decimal.Decimal) bool {
	return change.Abs().GreaterThan(AlertThreshold)
}

// AlertText is the message sent for a large move.
func AlertText(asset string, change, price decimal.Decimal) string {
	return fmt.Sprintf("Thưa ngài, %s biến động %s%% - giá hiện %s.", asset, finance.FormatPercent(change), price.String())
}

// Run checks every user with investments. Users are processed concurrently,
// each user's records sequentially. Failures are logged per record and never
// stop the run; only a failure to list users is returned.
func (m *Monitor) Run(ctx context.Context) (Result, error) {
	users, err := m.store.ListUsers(ctx, &store.FindUser{HasInvestments: true})
	if err != nil {
		return Result{}, fmt.Errorf("list users with investments: %w", err)
	}

	results := make([]Result, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, user := range users {
		g.Go(func() error {
			results[i] = m.checkUser(gctx, user)
			return nil
		})
	}
	_ = g.Wait()

	var total Result
	for _, r := range results {
		total.Checked += r.Checked
		total.Alerts += r.Alerts
		total.Failed += r.Failed
	}
	slog.Info("investment check finished",
		"users", len(users),
		"checked", total.Checked,
		"alerts", total.Alerts,
		"failed", total.Failed,
	)
	return total, nil
}

func (m *Monitor) checkUser(ctx context.Context, user *store.UserProfile) Result {
	var r Result
	for _, inv := range user.Investments {
		logger := slog.With("actor_id", user.ActorID, "asset", inv.AssetSymbol)
		ticker := finance.TickerFor(inv.AssetSymbol)

		price, err := m.feed.PriceOf(ctx, ticker, PricePeriod)
		if err != nil {
			logger.Warn("failed to fetch price", "ticker", ticker, "error", err)
			m.metrics.RecordPriceFetchError()
			r.Failed++
			continue
		}
		r.Checked++

		if change, ok := ChangePercent(inv.PurchasePrice, price); ok && ShouldAlert(change) {
			if err := m.notifier.Send(ctx, user.ActorID, AlertText(inv.AssetSymbol, change, price)); err != nil {
				logger.Warn("failed to send investment alert", "error", err)
			} else {
				r.Alerts++
				m.metrics.RecordInvestmentAlert()
			}
		}

		if err := m.store.UpdateInvestmentValue(ctx, user.ActorID, inv.AssetSymbol, price); err != nil {
			logger.Error("failed to persist investment value", "error", err)
			r.Failed++
		}
	}
	return r
}
