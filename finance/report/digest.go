package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/hrygo/finsense/ai/generator"
	"github.com/hrygo/finsense/finance"
	"github.com/hrygo/finsense/store"
)

const (
	digestPrompt    = "Tóm tắt tài chính tuần: chi tiêu %s VND, lời khuyên:"
	digestMaxLength = 100
)

// Digest sends the weekly newsletter to every user with reminders enabled.
type Digest struct {
	store     *store.Store
	generator generator.Generator
	notifier  finance.Notifier
}

func NewDigest(st *store.Store, g generator.Generator, n finance.Notifier) *Digest {
	return &Digest{store: st, generator: g, notifier: n}
}

// DigestText renders the newsletter. An empty newsletter falls back to the total.
func DigestText(total decimal.Decimal, newsletter string) string {
	if newsletter == "" {
		return fmt.Sprintf("Thưa ngài, newsletter tuần: tổng chi tiêu %s VND.", finance.FormatVND(total))
	}
	return "Thưa ngài, newsletter tuần: " + newsletter
}

// Run sends one digest per eligible user and returns how many were delivered.
// A failure for one user is logged and does not stop the others.
func (d *Digest) Run(ctx context.Context) (int, error) {
	enabled := true
	users, err := d.store.ListUsers(ctx, &store.FindUser{RemindersEnabled: &enabled})
	if err != nil {
		return 0, fmt.Errorf("list users for digest: %w", err)
	}

	sent := 0
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		total := decimal.Zero
		for _, e := range user.Expenses {
			total = total.Add(e.Amount)
		}

		newsletter, err := d.generator.Generate(ctx, fmt.Sprintf(digestPrompt, finance.FormatVND(total)), digestMaxLength)
		if err != nil {
			slog.Warn("failed to generate weekly digest", "actor_id", user.ActorID, "error", err)
			newsletter = ""
		}

		if err := d.notifier.Send(ctx, user.ActorID, DigestText(total, newsletter)); err != nil {
			slog.Warn("failed to send weekly digest", "actor_id", user.ActorID, "error", err)
			continue
		}
		sent++
	}
	slog.Info("weekly digest finished", "users", len(users), "sent", sent)
	return sent, nil
}
