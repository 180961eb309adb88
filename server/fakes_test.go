package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/finsense/ai/classifier"
	"github.com/hrygo/finsense/internal/profile"
	"github.com/hrygo/finsense/plugin/chat_apps"
	"github.com/hrygo/finsense/store"
	"github.com/hrygo/finsense/store/db/memory"
)

type editedMessage struct {
	chatID    int64
	messageID int
	text      string
}

// fakeChannel records everything the server sends and serves queued updates.
type fakeChannel struct {
	mu       sync.Mutex
	sent     []*chat_apps.OutgoingMessage
	edits    []editedMessage
	answers  []string
	editErr  error
	incoming chan *chat_apps.IncomingMessage
	closed   bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{incoming: make(chan *chat_apps.IncomingMessage, 8)}
}

func (f *fakeChannel) Name() chat_apps.Platform { return chat_apps.PlatformTelegram }

func (f *fakeChannel) Updates(ctx context.Context) <-chan *chat_apps.IncomingMessage {
	out := make(chan *chat_apps.IncomingMessage)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-f.incoming:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (f *fakeChannel) SendMessage(_ context.Context, msg *chat_apps.OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeChannel) EditMessage(_ context.Context, chatID int64, messageID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, editedMessage{chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (f *fakeChannel) AnswerCallback(_ context.Context, callbackID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, callbackID)
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.Content
	}
	return out
}

func (f *fakeChannel) last() *chat_apps.OutgoingMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

type fakeFeed struct {
	closes  map[string][]decimal.Decimal
	tickers []string
	periods []string
}

func (f *fakeFeed) Closes(_ context.Context, ticker, period string) ([]decimal.Decimal, error) {
	f.tickers = append(f.tickers, ticker)
	f.periods = append(f.periods, period)
	closes, ok := f.closes[ticker]
	if !ok {
		return nil, errors.Errorf("no data for %s", ticker)
	}
	return closes, nil
}

func (f *fakeFeed) PriceOf(ctx context.Context, ticker, period string) (decimal.Decimal, error) {
	closes, err := f.Closes(ctx, ticker, period)
	if err != nil {
		return decimal.Zero, err
	}
	return closes[len(closes)-1], nil
}

type fakeGenerator struct {
	text    string
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, _ int) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.text, nil
}

// fixedClassifier always picks label with full confidence.
type fixedClassifier struct {
	label string
}

func (c fixedClassifier) Classify(_ context.Context, _ string, labels []string) ([]classifier.Score, error) {
	out := make([]classifier.Score, 0, len(labels))
	for _, l := range labels {
		conf := 0.0
		if l == c.label {
			conf = 1
		}
		out = append(out, classifier.Score{Label: l, Confidence: conf})
	}
	return out, nil
}

const testActor int64 = 42

type testServer struct {
	*Server
	channel   *fakeChannel
	feed      *fakeFeed
	generator *fakeGenerator
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	p := &profile.Profile{
		Mode:                "dev",
		Version:             "0.1.0",
		Addr:                "127.0.0.1",
		Port:                0,
		Timezone:            "Asia/Ho_Chi_Minh",
		WeeklyDigestCron:    profile.DefaultWeeklyDigestCron,
		InvestmentCheckCron: profile.DefaultInvestmentCheckCron,
	}
	ts := &testServer{
		channel:   newFakeChannel(),
		feed:      &fakeFeed{closes: map[string][]decimal.Decimal{}},
		generator: &fakeGenerator{},
	}
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, p.Location())
	base := []Option{
		WithChannel(ts.channel),
		WithPriceFeed(ts.feed),
		WithGenerator(ts.generator),
		WithClassifier(fixedClassifier{label: "unknown"}),
		WithClock(func() time.Time { return now }),
	}
	s, err := NewServer(context.Background(), p, store.New(memory.NewDB(), p), append(base, opts...)...)
	require.NoError(t, err)
	ts.Server = s
	return ts
}

func command(name string, args ...string) *chat_apps.IncomingMessage {
	return &chat_apps.IncomingMessage{
		Platform: chat_apps.PlatformTelegram,
		ActorID:  testActor,
		ChatID:   testActor,
		Type:     chat_apps.MessageTypeCommand,
		Command:  name,
		Args:     args,
	}
}

func callback(data string, messageID int) *chat_apps.IncomingMessage {
	return &chat_apps.IncomingMessage{
		Platform:     chat_apps.PlatformTelegram,
		ActorID:      testActor,
		ChatID:       testActor,
		MessageID:    messageID,
		Type:         chat_apps.MessageTypeCallback,
		CallbackID:   "cb-" + data,
		CallbackData: data,
	}
}
