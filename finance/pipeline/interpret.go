package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/finsense/ai/classifier"
	"github.com/hrygo/finsense/ai/generator"
	"github.com/hrygo/finsense/ai/metrics"
	"github.com/hrygo/finsense/finance"
	"github.com/hrygo/finsense/finance/advisor"
	"github.com/hrygo/finsense/finance/budget"
	"github.com/hrygo/finsense/finance/extract"
	"github.com/hrygo/finsense/finance/fuzzy"
	"github.com/hrygo/finsense/finance/lunar"
	"github.com/hrygo/finsense/store"
)

// Interpreter turns a message into an Outcome.
type Interpreter struct {
	classifier classifier.Classifier
	generator  generator.Generator
	advisor    *advisor.Advisor
	extractor  *extract.Extractor
	loc        *time.Location
	now        func() time.Time
	metrics    *metrics.PrometheusExporter
}

type Option func(*Interpreter)

// WithLocation sets the zone solar dates are resolved in.
func WithLocation(loc *time.Location) Option {
	return func(p *Interpreter) { p.loc = loc }
}

// WithClock replaces time.Now for record timestamps and year resolution.
func WithClock(now func() time.Time) Option {
	return func(p *Interpreter) { p.now = now }
}

func WithMetrics(m *metrics.PrometheusExporter) Option {
	return func(p *Interpreter) { p.metrics = m }
}

// NewInterpreter creates an Interpreter over the injected classification and generation ports.
func NewInterpreter(c classifier.Classifier, g generator.Generator, opts ...Option) *Interpreter {
	p := &Interpreter{
		classifier: c,
		generator:  g,
		advisor:    advisor.New(c, g),
		loc:        time.Local,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.extractor = extract.New(extract.WithClock(p.now))
	return p
}

// Interpret classifies text, extracts its entities and decides the effects for user.
// Classifier and generator failures degrade to the unknown intent and empty advice.
func (p *Interpreter) Interpret(ctx context.Context, text string, user *store.UserProfile) Outcome {
	text = strings.ToLower(strings.TrimSpace(text))
	out := Outcome{ID: uuid.NewString()}
	logger := slog.With("interaction_id", out.ID, "actor_id", user.ActorID)

	intent, confidence := p.classifyIntent(ctx, logger, text)
	ents := p.extractor.Extract(text)
	out.Result = IntentResult{
		Intent:        intent,
		Confidence:    confidence,
		Amount:        ents.Amount,
		Date:          ents.Date,
		Text:          text,
		IsLunarOrigin: ents.IsLunarOrigin,
	}

	switch intent {
	case IntentExpense:
		p.expense(ctx, logger, &out, user)
	case IntentDebt:
		p.debt(ctx, logger, &out, user)
	case IntentEvent:
		p.event(ctx, logger, &out, user)
	case IntentQuestion:
		answer := p.generate(ctx, logger, questionPrompt+text, answerMaxLength)
		out.Effects = append(out.Effects, Reply{Text: answerPrefix + answer})
	default:
		p.unknown(ctx, logger, &out, user)
	}

	p.metrics.RecordInterpretation(string(intent))
	logger.Info("message interpreted",
		"intent", intent,
		"confidence", confidence,
		"amount", ents.Amount.String(),
		"has_date", ents.Date.IsSet(),
		"lunar", ents.IsLunarOrigin,
		"effects", len(out.Effects),
		"error", out.Err,
	)
	return out
}

func (p *Interpreter) classifyIntent(ctx context.Context, logger *slog.Logger, text string) (Intent, float64) {
	scores, err := p.classifier.Classify(ctx, text, IntentLabels)
	if err != nil {
		logger.Warn("intent classification failed", "error", err)
		return IntentUnknown, 0
	}
	top, ok := classifier.Top(scores)
	if !ok {
		return IntentUnknown, 0
	}
	if top.Confidence <= ConfidenceThreshold || !slices.Contains(IntentLabels, top.Label) {
		return IntentUnknown, top.Confidence
	}
	return Intent(top.Label), top.Confidence
}

func (p *Interpreter) expense(ctx context.Context, logger *slog.Logger, out *Outcome, user *store.UserProfile) {
	text := out.Result.Text
	category := store.CategoryOther
	if fuzzy.Matches(text, fuzzy.PhraseFood) {
		category = store.CategoryFood
	}
	record := store.ExpenseRecord{
		Timestamp:   p.now(),
		Description: text,
		Amount:      out.Result.Amount,
		Category:    category,
	}
	out.Effects = append(out.Effects, AppendExpense{Record: record})

	if wantsExceeded(user, record) {
		advice := p.generate(ctx, logger, overspendAdvicePrompt, adviceMaxLength)
		out.Effects = append(out.Effects, Reply{Text: overBudgetReply(advice)})
		return
	}
	out.Effects = append(out.Effects, Reply{Text: expenseRecordedReply(record.Amount, category)})
}

func (p *Interpreter) debt(ctx context.Context, logger *slog.Logger, out *Outcome, user *store.UserProfile) {
	record := store.DebtRecord{
		Timestamp:   p.now(),
		Description: out.Result.Text,
		Amount:      out.Result.Amount,
	}
	if civil, ok := out.Result.Date.Get(); ok {
		if due, err := p.resolveDate(civil, out.Result.IsLunarOrigin); err == nil {
			record.DueDate = &due
		}
	}
	out.Effects = append(out.Effects, AppendDebt{Record: record})

	if budget.DebtNeedsAdvice(record.Amount, user.Income) {
		advice := p.generate(ctx, logger, debtAdvicePrompt, adviceMaxLength)
		out.Effects = append(out.Effects, Reply{Text: debtAdviceReply(advice)})
		return
	}
	out.Effects = append(out.Effects, Reply{Text: debtRecordedReply(record.Amount)})
}

func (p *Interpreter) event(ctx context.Context, logger *slog.Logger, out *Outcome, user *store.UserProfile) {
	text := out.Result.Text
	eventType := p.classifyEventType(ctx, logger, text)

	civil, ok := out.Result.Date.Get()
	if !ok {
		out.Err = ErrMissingDate
		out.Effects = append(out.Effects, Reply{Text: replyMissingDate})
		return
	}

	occursOn, err := p.resolveDate(civil, out.Result.IsLunarOrigin)
	switch {
	case errors.Is(err, lunar.ErrInvalidDate):
		out.Err = fmt.Errorf("%w: %w", ErrInvalidLunarDate, err)
		out.Effects = append(out.Effects, Reply{Text: invalidLunarReply(civil.Year, civil.Month, civil.Day)})
		return
	case err != nil:
		out.Err = ErrMissingDate
		out.Effects = append(out.Effects, Reply{Text: replyMissingDate})
		return
	}
	if out.Result.IsLunarOrigin {
		out.Effects = append(out.Effects, Reply{Text: lunarConvertedReply(civil.Day, civil.Month, occursOn)})
	}

	cost := CostEstimate(eventType)
	gift := p.generate(ctx, logger, fmt.Sprintf(giftPrompt, finance.EventLabel(eventType)), adviceMaxLength)
	record := store.EventRecord{
		OccursOn:       occursOn,
		Description:    text,
		Type:           eventType,
		IsLunarOrigin:  out.Result.IsLunarOrigin,
		CostEstimate:   cost,
		GiftSuggestion: gift,
	}
	out.Effects = append(out.Effects,
		AppendEvent{Record: record},
		ScheduleReminder{
			At:   occursOn,
			Name: fmt.Sprintf("event:%d:%s", user.ActorID, eventType),
			Text: eventReminderText(eventType, cost, gift),
		},
		Reply{Text: eventRecordedReply(eventType, occursOn, gift)},
	)
}

// classifyEventType accepts the top event label above the threshold; a generic result
// is corrected to major-purchase when the text resembles "mua xe".
func (p *Interpreter) classifyEventType(ctx context.Context, logger *slog.Logger, text string) store.EventType {
	eventType := store.EventOther
	scores, err := p.classifier.Classify(ctx, text, EventTypeLabels)
	if err != nil {
		logger.Warn("event type classification failed", "error", err)
	} else if top, ok := classifier.Top(scores); ok && top.Confidence > ConfidenceThreshold && slices.Contains(EventTypeLabels, top.Label) {
		eventType = store.EventType(top.Label)
	}

	if eventType == store.EventOther && fuzzy.Matches(text, fuzzy.PhraseMajorPurchase) {
		eventType = store.EventMajorPurchase
	}
	return eventType
}

func (p *Interpreter) unknown(ctx context.Context, logger *slog.Logger, out *Outcome, user *store.UserProfile) {
	out.Effects = append(out.Effects, Reply{Text: replyFallback})
	if !hasSuggestionTrigger(out.Result.Text) {
		return
	}

	s, err := p.advisor.Suggest(ctx, user)
	if err != nil {
		if !errors.Is(err, advisor.ErrBudgetNotConfigured) {
			logger.Warn("model suggestion failed", "error", err)
		}
		out.Effects = append(out.Effects, Reply{Text: ReplyBudgetNotConfigured})
		return
	}
	out.Effects = append(out.Effects, Reply{Text: s.Message()})
}

// resolveDate turns an extracted date into a solar midnight in the interpreter's zone.
// Lunar failures wrap lunar.ErrInvalidDate.
func (p *Interpreter) resolveDate(civil extract.CivilDate, isLunar bool) (time.Time, error) {
	if isLunar {
		solar, err := lunar.ToSolar(lunar.Date{Year: civil.Year, Month: civil.Month, Day: civil.Day})
		if err != nil {
			return time.Time{}, err
		}
		return solar.In(p.loc), nil
	}
	t, ok := civil.In(p.loc)
	if !ok {
		return time.Time{}, fmt.Errorf("no such day %d/%d/%d", civil.Day, civil.Month, civil.Year)
	}
	return t, nil
}

// generate returns empty text when generation fails.
func (p *Interpreter) generate(ctx context.Context, logger *slog.Logger, prompt string, maxLength int) string {
	text, err := p.generator.Generate(ctx, prompt, maxLength)
	if err != nil {
		logger.Warn("generation failed", "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

func hasSuggestionTrigger(text string) bool {
	folded := fuzzy.Normalize(text)
	return strings.Contains(folded, modelSuggestionTriggerVi) || strings.Contains(folded, modelSuggestionTriggerEng)
}

// wantsExceeded reports whether adding extra pushes wants spending over budget.
// Users without income are never over budget.
func wantsExceeded(user *store.UserProfile, extra store.ExpenseRecord) bool {
	if user.Income.IsZero() {
		return false
	}
	expenses := append(slices.Clone(user.Expenses), extra)
	return budget.OverBudget(budget.WantsCategories, user.Income, user.Allocation.Wants, expenses)
}
