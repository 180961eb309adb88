// Package advisor recommends a budgeting model from a user's aggregate finances.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hrygo/finsense/ai/classifier"
	"github.com/hrygo/finsense/ai/generator"
	"github.com/hrygo/finsense/finance"
	"github.com/hrygo/finsense/store"
)

// ErrBudgetNotConfigured is returned for users whose income is still zero.
var ErrBudgetNotConfigured = errors.New("budget not configured")

// StatusStable is used when the status cannot be classified.
const StatusStable = "stable"

// StatusLabels are the financial-status labels the aggregate is classified against.
var StatusLabels = []string{"high debt", "high spending", "savings goal", StatusStable, "event focused"}

// Models is the fixed menu of budgeting models.
var Models = []string{
	"50/30/20 Rule: 50% nhu cầu, 30% muốn, 20% tiết kiệm.",
	"Zero-Based Budgeting: Phân bổ mọi đồng tiền cụ thể.",
	"Debt Snowball: Trả nợ nhỏ trước để tạo động lực.",
	"Debt Avalanche: Trả nợ lãi cao trước để tiết kiệm lãi.",
	"Pay Yourself First: Tiết kiệm trước khi chi tiêu.",
	"Envelope System: Phân bổ tiền vào 'phong bì' category.",
}

const recommendationMaxLength = 150

// Suggestion is the outcome of one model recommendation.
type Suggestion struct {
	Status         string
	Income         decimal.Decimal
	TotalExpenses  decimal.Decimal
	TotalDebt      decimal.Decimal
	EventCount     int
	Recommendation string
	Models         []string
}

// Message renders the suggestion as the reply sent to the user.
func (s *Suggestion) Message() string {
	return fmt.Sprintf("Thưa ngài, dựa trên tình trạng hiện tại (nợ: %s, chi: %s/%s), FinSense gợi ý:\n%s\nCác mô hình khác: %s",
		finance.FormatVND(s.TotalDebt),
		finance.FormatVND(s.TotalExpenses),
		finance.FormatVND(s.Income),
		s.Recommendation,
		strings.Join(s.Models, ", "),
	)
}

// Advisor runs the model suggestion routine.
type Advisor struct {
	classifier classifier.Classifier
	generator  generator.Generator
}

// New creates an Advisor.
func New(c classifier.Classifier, g generator.Generator) *Advisor {
	return &Advisor{classifier: c, generator: g}
}

// Suggest recommends a budgeting model. Users without income get ErrBudgetNotConfigured
// and no classifier or generator call is made.
func (a *Advisor) Suggest(ctx context.Context, user *store.UserProfile) (*Suggestion, error) {
	if user == nil || user.Income.IsZero() {
		return nil, ErrBudgetNotConfigured
	}

	s := &Suggestion{
		Income:        user.Income,
		TotalExpenses: decimal.Zero,
		TotalDebt:     decimal.Zero,
		EventCount:    len(user.Events),
		Models:        Models,
	}
	for _, e := range user.Expenses {
		s.TotalExpenses = s.TotalExpenses.Add(e.Amount)
	}
	for _, d := range user.Debts {
		s.TotalDebt = s.TotalDebt.Add(d.Amount)
	}

	statusText := fmt.Sprintf("Thu nhập: %s, chi tiêu: %s, nợ: %s, sự kiện: %d",
		user.Income.String(), s.TotalExpenses.String(), s.TotalDebt.String(), s.EventCount)
	s.Status = a.status(ctx, statusText)

	prompt := fmt.Sprintf("Gợi ý mô hình quản lý tài chính phù hợp nhất cho tình trạng: %s, dư nợ %s, mục đích %d sự kiện. Từ danh sách: %s. Lý do và cách áp dụng:",
		s.Status, s.TotalDebt.String(), s.EventCount, strings.Join(Models, ", "))
	recommendation, err := a.generator.Generate(ctx, prompt, recommendationMaxLength)
	if err != nil {
		slog.Warn("advisor: generation failed", "actor_id", user.ActorID, "error", err)
		recommendation = ""
	}
	s.Recommendation = recommendation
	return s, nil
}

func (a *Advisor) status(ctx context.Context, text string) string {
	scores, err := a.classifier.Classify(ctx, text, StatusLabels)
	if err != nil {
		slog.Warn("advisor: status classification failed", "error", err)
		return StatusStable
	}
	top, ok := classifier.Top(scores)
	if !ok || top.Confidence <= 0 {
		return StatusStable
	}
	return top.Label
}
