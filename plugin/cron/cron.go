// Package cron runs one-off and recurring jobs from an in-memory queue
// ordered by next fire time. Nothing is persisted: pending jobs are lost on
// restart.
package cron

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	robfig "github.com/robfig/cron/v3"

	"github.com/hrygo/finsense/ai/metrics"
)

// DefaultTick is how often Start checks for due jobs.
const DefaultTick = time.Second

// Logger is the logging interface shared with robfig/cron.
type Logger = robfig.Logger

// PrintfLogger wraps a Printf-style logger such as *log.Logger.
func PrintfLogger(l interface{ Printf(string, ...any) }) Logger {
	return robfig.PrintfLogger(l)
}

type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Info(msg string, keysAndValues ...any) {
	s.l.Info(msg, keysAndValues...)
}

func (s slogLogger) Error(err error, msg string, keysAndValues ...any) {
	s.l.Error(msg, append(keysAndValues, "error", err)...)
}

// SlogLogger adapts l to Logger.
func SlogLogger(l *slog.Logger) Logger {
	return slogLogger{l: l}
}

// Kind tells one-off and recurring jobs apart.
type Kind string

const (
	KindOnce      Kind = "once"
	KindRecurring Kind = "recurring"
)

// JobInfo describes a queued job.
type JobInfo struct {
	ID   string
	Name string
	Kind Kind
	Next time.Time
}

type job struct {
	id       string
	name     string
	next     time.Time
	schedule robfig.Schedule // nil for one-off jobs
	fn       func(context.Context)
	index    int
}

func (j *job) kind() Kind {
	if j.schedule == nil {
		return KindOnce
	}
	return KindRecurring
}

// jobHeap is a min-heap on next fire time.
type jobHeap []*job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].next.Equal(h[j].next) {
		return h[i].id < h[j].id
	}
	return h[i].next.Before(h[j].next)
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	j := x.(*job)
	j.index = len(*h)
	*h = append(*h, j)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	j.index = -1
	*h = old[:n-1]
	return j
}

// Scheduler is safe for concurrent use.
type Scheduler struct {
	mu      sync.Mutex
	jobs    jobHeap
	byID    map[string]*job
	loc     *time.Location
	now     func() time.Time
	tick    time.Duration
	logger  Logger
	metrics *metrics.PrometheusExporter

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	stopped chan struct{}
}

type Option func(*Scheduler)

// WithLocation sets the zone recurring specs are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithTick(d time.Duration) Option {
	return func(s *Scheduler) { s.tick = d }
}

func WithLogger(l Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func WithMetrics(m *metrics.PrometheusExporter) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a stopped Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		byID:   make(map[string]*job),
		loc:    time.Local,
		now:    time.Now,
		tick:   DefaultTick,
		logger: SlogLogger(slog.Default().With("component", "cron")),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tick <= 0 {
		s.tick = DefaultTick
	}
	return s
}

// ScheduleOnce queues fn to run once at the given time. A time in the past
// fires on the next tick.
func (s *Scheduler) ScheduleOnce(at time.Time, name string, fn func(context.Context)) string {
	j := &job{id: shortuuid.New(), name: name, next: at, fn: fn}

	s.mu.Lock()
	s.push(j)
	s.mu.Unlock()

	s.logger.Info("scheduled", "id", j.id, "name", name, "kind", KindOnce, "at", at)
	return j.id
}

// ScheduleRecurring queues fn on a standard 5-field cron spec.
func (s *Scheduler) ScheduleRecurring(spec, name string, fn func(context.Context)) (string, error) {
	schedule, err := robfig.ParseStandard(spec)
	if err != nil {
		return "", fmt.Errorf("parse cron spec %q: %w", spec, err)
	}

	j := &job{id: shortuuid.New(), name: name, schedule: schedule, fn: fn}

	s.mu.Lock()
	j.next = schedule.Next(s.now().In(s.loc))
	s.push(j)
	s.mu.Unlock()

	s.logger.Info("scheduled", "id", j.id, "name", name, "kind", KindRecurring, "spec", spec, "next", j.next)
	return j.id, nil
}

// Cancel removes a queued job. It returns false if the id is unknown or a
// one-off job already fired.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.jobs, j.index)
	delete(s.byID, id)
	return true
}

// Pending lists queued jobs in fire order.
func (s *Scheduler) Pending() []JobInfo {
	s.mu.Lock()
	infos := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		infos = append(infos, JobInfo{ID: j.id, Name: j.name, Kind: j.kind(), Next: j.next})
	}
	s.mu.Unlock()

	slices.SortStableFunc(infos, func(a, b JobInfo) int {
		return a.Next.Compare(b.Next)
	})
	return infos
}

// RunDue starts every job due at the current time and returns how many
// started. One-off jobs are dequeued; recurring jobs are requeued at their
// next fire time. Jobs run on their own goroutines.
func (s *Scheduler) RunDue(ctx context.Context) int {
	now := s.now()

	var due []*job
	s.mu.Lock()
	for s.jobs.Len() > 0 && !s.jobs[0].next.After(now) {
		j := s.jobs[0]
		due = append(due, &job{id: j.id, name: j.name, schedule: j.schedule, fn: j.fn})
		if j.schedule == nil {
			heap.Pop(&s.jobs)
			delete(s.byID, j.id)
			continue
		}
		j.next = j.schedule.Next(now.In(s.loc))
		heap.Fix(&s.jobs, j.index)
	}
	s.mu.Unlock()

	for _, j := range due {
		s.run(ctx, j)
	}
	return len(due)
}

func (s *Scheduler) run(ctx context.Context, j *job) {
	s.metrics.RecordJobFired(string(j.kind()))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error(fmt.Errorf("panic: %v", r), "job panicked", "id", j.id, "name", j.name, "stack", string(debug.Stack()))
			}
		}()
		s.logger.Info("run", "id", j.id, "name", j.name, "kind", j.kind())
		j.fn(ctx)
	}()
}

// Start runs the tick loop until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	stopped := make(chan struct{})
	s.stopped = stopped
	pending := len(s.jobs)
	s.mu.Unlock()

	s.logger.Info("start", "pending", pending, "tick", s.tick, "persistent", false)

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunDue(ctx)
			}
		}
	}()
}

// Stop ends the tick loop and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, stopped := s.cancel, s.stopped
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-stopped
	}
	s.wg.Wait()
	s.logger.Info("stop")
}

// Wait blocks until every started job has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) push(j *job) {
	heap.Push(&s.jobs, j)
	s.byID[j.id] = j
}
