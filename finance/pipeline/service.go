package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/finsense/ai/cache"
	"github.com/hrygo/finsense/store"
)

const pendingCapacity = 1000

// Service handles inbound messages end to end: load user, interpret, apply.
type Service struct {
	store       *store.Store
	interpreter *Interpreter
	executor    *Executor
	pending     *cache.LRUCache[int64, PendingExpense]
	now         func() time.Time
}

type ServiceOption func(*Service)

// WithServiceClock replaces time.Now for expense timestamps and selection expiry.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(st *store.Store, interpreter *Interpreter, executor *Executor, opts ...ServiceOption) *Service {
	s := &Service{
		store:       st,
		interpreter: interpreter,
		executor:    executor,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pending = cache.NewLRUCache[int64, PendingExpense](pendingCapacity, PendingExpenseTTL, cache.WithClock(s.now))
	return s
}

// HandleMessage interprets a free-text message from actorID and applies its effects.
func (s *Service) HandleMessage(ctx context.Context, actorID int64, text string) (Outcome, error) {
	user, err := s.store.GetOrCreateUser(ctx, actorID)
	if err != nil {
		s.executor.Reply(ctx, actorID, ReplyStoreFailure)
		return Outcome{}, fmt.Errorf("load user %d: %w", actorID, err)
	}

	out := s.interpreter.Interpret(ctx, text, user)
	if err := s.executor.Apply(ctx, actorID, out); err != nil {
		return out, err
	}
	return out, nil
}

// BeginExpense records the first step of /add_expense, replacing any earlier selection.
func (s *Service) BeginExpense(actorID int64, args []string) (PendingExpense, error) {
	p, err := ParseExpenseArgs(args)
	if err != nil {
		return PendingExpense{}, err
	}
	p.CreatedAt = s.now()
	s.pending.PutFor(actorID, p, PendingExpenseTTL)
	return p, nil
}

// CompleteExpense appends the pending expense with the chosen category and returns the reply.
func (s *Service) CompleteExpense(ctx context.Context, actorID int64, category store.Category) (string, error) {
	if !category.IsValid() {
		return "", fmt.Errorf("invalid category %q", category)
	}
	p, ok := s.pending.Take(actorID)
	if !ok {
		return "", ErrNoPendingExpense
	}

	user, err := s.store.GetOrCreateUser(ctx, actorID)
	if err != nil {
		return "", fmt.Errorf("load user %d: %w", actorID, err)
	}
	record := store.ExpenseRecord{
		Timestamp:   s.now(),
		Description: p.Description,
		Amount:      p.Amount,
		Category:    category,
	}
	if err := s.store.AppendExpense(ctx, actorID, record); err != nil {
		return "", fmt.Errorf("append expense: %w", err)
	}
	slog.Info("expense added", "actor_id", actorID, "category", category, "amount", p.Amount.String())
	return expenseAddedReply(p, category, wantsExceeded(user, record)), nil
}

// CancelExpense drops the pending selection. Returns false when there was none.
func (s *Service) CancelExpense(actorID int64) bool {
	return s.pending.Delete(actorID)
}
