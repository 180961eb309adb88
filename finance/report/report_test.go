package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/finsense/store"
	"github.com/hrygo/finsense/store/db/memory"
)

var ict = time.FixedZone("ICT", 7*60*60)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, ict)
	user := store.NewUserProfile(1)
	user.Expenses = []store.ExpenseRecord{
		{Amount: dec("50000"), Category: store.CategoryFood},
		{Amount: dec("30000"), Category: store.CategoryFood},
		{Amount: dec("220000"), Category: store.CategoryTransport},
	}
	user.Events = []store.EventRecord{
		{Type: store.EventWedding, OccursOn: time.Date(2024, 6, 1, 0, 0, 0, 0, ict)},
		{Type: store.EventBirthday, OccursOn: time.Date(2024, 3, 25, 0, 0, 0, 0, ict)},
		{Type: store.EventReunion, OccursOn: time.Date(2023, 12, 1, 0, 0, 0, 0, ict)},
	}

	s := Summarize(user, now)
	assert.True(t, s.Total.Equal(dec("300000")))
	assert.True(t, s.Forecast.Equal(dec("3000000")), s.Forecast.String())
	assert.True(t, s.ByCategory[store.CategoryFood].Equal(dec("80000")))
	require.Len(t, s.Upcoming, 2, "past events are excluded")
	assert.Equal(t, store.EventBirthday, s.Upcoming[0].Type)

	assert.Equal(t, "Báo cáo chi tiêu:\n"+
		"- Food: 80.000 VND\n"+
		"- Transport: 220.000 VND\n"+
		"Tổng: 300.000 VND\n"+
		"Dự báo tháng: 3.000.000 VND.\n"+
		"Sự kiện sắp tới: sinh nhật (25/03/2024), đám cưới (01/06/2024).", s.Message())
}

func TestSummarize_NoExpenses(t *testing.T) {
	s := Summarize(store.NewUserProfile(1), time.Now())
	assert.True(t, s.Forecast.IsZero())
	assert.Equal(t, replyNoExpenses, s.Message())
}

func TestSummarize_NoUpcomingEvents(t *testing.T) {
	user := store.NewUserProfile(1)
	user.Expenses = []store.ExpenseRecord{{Amount: dec("10000"), Category: store.CategoryOther}}

	msg := Summarize(user, time.Now()).Message()
	assert.Contains(t, msg, "- Other: 10.000 VND")
	assert.Contains(t, msg, "Sự kiện sắp tới: không có.")
}

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, _ int) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   map[int64]string
	failOn int64
}

func (n *fakeNotifier) Send(_ context.Context, actorID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if actorID == n.failOn {
		return errors.New("chat not found")
	}
	if n.sent == nil {
		n.sent = make(map[int64]string)
	}
	n.sent[actorID] = text
	return nil
}

func seedDigestUsers(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	st := store.New(memory.NewDB(), nil)
	for _, id := range []int64{1, 2, 3} {
		_, err := st.GetOrCreateUser(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, st.AppendExpense(ctx, 1, store.ExpenseRecord{Amount: dec("150000"), Category: store.CategoryFood}))
	require.NoError(t, st.SetRemindersEnabled(ctx, 3, false))
	return st
}

func TestDigest_Run(t *testing.T) {
	st := seedDigestUsers(t)
	g := &fakeGenerator{text: "Hãy tiết kiệm."}
	n := &fakeNotifier{}

	sent, err := NewDigest(st, g, n).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	assert.Equal(t, "Thưa ngài, newsletter tuần: Hãy tiết kiệm.", n.sent[1])
	assert.Contains(t, n.sent, int64(2))
	assert.NotContains(t, n.sent, int64(3), "reminders disabled")
	assert.Equal(t, "Tóm tắt tài chính tuần: chi tiêu 150.000 VND, lời khuyên:", g.prompts[0])
}

func TestDigest_FailuresAreIsolated(t *testing.T) {
	st := seedDigestUsers(t)
	g := &fakeGenerator{err: errors.New("llm down")}
	n := &fakeNotifier{failOn: 1}

	sent, err := NewDigest(st, g, n).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, "Thưa ngài, newsletter tuần: tổng chi tiêu 0 VND.", n.sent[2])
}
