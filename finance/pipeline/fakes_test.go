package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/hrygo/finsense/ai/classifier"
)

// tableClassifier scores each requested label from a fixed table; missing labels score zero.
type tableClassifier struct {
	scores map[string]float64
	err    error
	calls  int
}

func (c *tableClassifier) Classify(_ context.Context, _ string, labels []string) ([]classifier.Score, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := make([]classifier.Score, 0, len(labels))
	for _, l := range labels {
		out = append(out, classifier.Score{Label: l, Confidence: c.scores[l]})
	}
	return out, nil
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

type sentMessage struct {
	actorID int64
	text    string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, actorID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{actorID: actorID, text: text})
	return n.err
}

func (n *fakeNotifier) texts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	texts := make([]string, len(n.sent))
	for i, m := range n.sent {
		texts[i] = m.text
	}
	return texts
}

type scheduledJob struct {
	at   time.Time
	name string
	fn   func(context.Context)
}

type fakeScheduler struct {
	once []scheduledJob
}

func (s *fakeScheduler) ScheduleOnce(at time.Time, name string, fn func(context.Context)) string {
	s.once = append(s.once, scheduledJob{at: at, name: name, fn: fn})
	return name
}

func (s *fakeScheduler) ScheduleRecurring(string, string, func(context.Context)) (string, error) {
	return "", nil
}

var ict = time.FixedZone("ICT", 7*60*60)

func fixedNow() time.Time {
	return time.Date(2024, 1, 15, 10, 0, 0, 0, ict)
}
