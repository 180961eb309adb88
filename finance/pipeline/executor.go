package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hrygo/finsense/finance"
	"github.com/hrygo/finsense/store"
)

// Executor applies an Outcome's effects in order.
type Executor struct {
	store     *store.Store
	notifier  finance.Notifier
	scheduler finance.Scheduler
}

// NewExecutor creates an Executor. A nil scheduler drops reminder effects with a warning.
func NewExecutor(st *store.Store, notifier finance.Notifier, scheduler finance.Scheduler) *Executor {
	return &Executor{store: st, notifier: notifier, scheduler: scheduler}
}

// Apply runs the effects of out for actorID. A failed mutation stops the remaining
// effects and sends a generic failure reply. Reply failures are logged only.
func (x *Executor) Apply(ctx context.Context, actorID int64, out Outcome) error {
	for _, effect := range out.Effects {
		var err error
		switch e := effect.(type) {
		case AppendExpense:
			err = x.store.AppendExpense(ctx, actorID, e.Record)
		case AppendDebt:
			err = x.store.AppendDebt(ctx, actorID, e.Record)
		case AppendEvent:
			err = x.store.AppendEvent(ctx, actorID, e.Record)
		case Reply:
			x.Reply(ctx, actorID, e.Text)
		case ScheduleReminder:
			x.scheduleReminder(actorID, e)
		default:
			err = fmt.Errorf("unknown effect %T", effect)
		}
		if err != nil {
			slog.Error("failed to apply effect",
				"interaction_id", out.ID,
				"actor_id", actorID,
				"effect", fmt.Sprintf("%T", effect),
				"error", err,
			)
			x.Reply(ctx, actorID, ReplyStoreFailure)
			return fmt.Errorf("apply %T: %w", effect, err)
		}
	}
	return nil
}

// Reply sends text to the actor and logs delivery failures.
func (x *Executor) Reply(ctx context.Context, actorID int64, text string) {
	if err := x.notifier.Send(ctx, actorID, text); err != nil {
		slog.Warn("failed to deliver reply", "actor_id", actorID, "error", err)
	}
}

func (x *Executor) scheduleReminder(actorID int64, r ScheduleReminder) {
	if x.scheduler == nil {
		slog.Warn("no scheduler configured, reminder dropped", "actor_id", actorID, "at", r.At)
		return
	}
	id := x.scheduler.ScheduleOnce(r.At, r.Name, x.reminderJob(actorID, r.Text))
	slog.Info("event reminder scheduled", "actor_id", actorID, "job_id", id, "at", r.At)
}

// reminderJob delivers text unless the actor has turned reminders off by the time it fires.
func (x *Executor) reminderJob(actorID int64, text string) func(context.Context) {
	return func(ctx context.Context) {
		user, err := x.store.GetUser(ctx, actorID)
		if err != nil {
			slog.Error("failed to load user for reminder", "actor_id", actorID, "error", err)
			return
		}
		if user != nil && !user.RemindersEnabled {
			slog.Info("reminders disabled, skipping", "actor_id", actorID)
			return
		}
		x.Reply(ctx, actorID, text)
	}
}
