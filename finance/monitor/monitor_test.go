package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/finsense/store"
	"github.com/hrygo/finsense/store/db/memory"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeFeed struct {
	mu      sync.Mutex
	prices  map[string]decimal.Decimal
	tickers []string
}

func (f *fakeFeed) PriceOf(_ context.Context, ticker, _ string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickers = append(f.tickers, ticker)
	p, ok := f.prices[ticker]
	if !ok {
		return decimal.Zero, errors.New("no data")
	}
	return p, nil
}

func (f *fakeFeed) Closes(ctx context.Context, ticker, period string) ([]decimal.Decimal, error) {
	p, err := f.PriceOf(ctx, ticker, period)
	if err != nil {
		return nil, err
	}
	return []decimal.Decimal{p}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func (n *fakeNotifier) Send(_ context.Context, actorID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = make(map[int64][]string)
	}
	n.sent[actorID] = append(n.sent[actorID], text)
	return nil
}

func seed(t *testing.T, st *store.Store, actorID int64, invs ...store.InvestmentRecord) {
	t.Helper()
	ctx := context.Background()
	_, err := st.GetOrCreateUser(ctx, actorID)
	require.NoError(t, err)
	for _, inv := range invs {
		require.NoError(t, st.AppendInvestment(ctx, actorID, inv))
	}
}

func investment(symbol, purchasePrice string) store.InvestmentRecord {
	return store.InvestmentRecord{
		AssetSymbol:    symbol,
		PurchaseAmount: dec("1"),
		PurchasePrice:  dec(purchasePrice),
		CurrentValue:   decimal.Zero,
	}
}

func TestChangePercent(t *testing.T) {
	tests := []struct {
		purchase, current string
		want              string
		alert             bool
	}{
		{"100", "106", "6", true},
		{"100", "102", "2", false},
		{"100", "105", "5", false},
		{"100", "94", "-6", true},
		{"200", "150", "-25", true},
	}
	for _, tt := range tests {
		change, ok := ChangePercent(dec(tt.purchase), dec(tt.current))
		require.True(t, ok)
		assert.True(t, change.Equal(dec(tt.want)), "%s→%s: %s", tt.purchase, tt.current, change)
		assert.Equal(t, tt.alert, ShouldAlert(change), "%s→%s", tt.purchase, tt.current)
	}

	_, ok := ChangePercent(decimal.Zero, dec("10"))
	assert.False(t, ok)
}

func TestRun_AlertsAndPersists(t *testing.T) {
	ctx := context.Background()
	st := store.New(memory.NewDB(), nil)
	seed(t, st, 1, investment("btc", "100"))
	seed(t, st, 2, investment("gold", "100"))
	seed(t, st, 3) // no investments, not visited

	feed := &fakeFeed{prices: map[string]decimal.Decimal{
		"BTC-USD": dec("106"),
		"GC=F":    dec("102"),
	}}
	notifier := &fakeNotifier{}

	res, err := New(st, feed, notifier, WithConcurrency(2)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Checked: 2, Alerts: 1}, res)

	require.Len(t, notifier.sent[1], 1)
	assert.Equal(t, "Thưa ngài, btc biến động 6.00% - giá hiện 106.", notifier.sent[1][0])
	assert.Empty(t, notifier.sent[2])

	for actorID, want := range map[int64]string{1: "106", 2: "102"} {
		user, err := st.GetUser(ctx, actorID)
		require.NoError(t, err)
		require.Len(t, user.Investments, 1)
		assert.True(t, user.Investments[0].CurrentValue.Equal(dec(want)), "actor %d", actorID)
	}
}

func TestRun_FailureIsIsolatedPerRecord(t *testing.T) {
	ctx := context.Background()
	st := store.New(memory.NewDB(), nil)
	seed(t, st, 1, investment("doge", "1"), investment("eth", "100"))

	feed := &fakeFeed{prices: map[string]decimal.Decimal{"ETH-USD": dec("80")}}
	notifier := &fakeNotifier{}

	res, err := New(st, feed, notifier).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Checked: 1, Alerts: 1, Failed: 1}, res)
	assert.Equal(t, []string{"DOGE-USD", "ETH-USD"}, feed.tickers)

	user, err := st.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Investments[0].CurrentValue.IsZero(), "failed record is untouched")
	assert.True(t, user.Investments[1].CurrentValue.Equal(dec("80")))
}

func TestRun_ZeroPurchasePriceNeverAlerts(t *testing.T) {
	ctx := context.Background()
	st := store.New(memory.NewDB(), nil)
	seed(t, st, 1, investment("btc", "0"))

	notifier := &fakeNotifier{}
	res, err := New(st, &fakeFeed{prices: map[string]decimal.Decimal{"BTC-USD": dec("60000")}}, notifier).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Alerts)
	assert.Empty(t, notifier.sent)

	user, err := st.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.Investments[0].CurrentValue.Equal(dec("60000")))
}
