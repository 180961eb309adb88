package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hrygo/finsense/finance"
	"github.com/hrygo/finsense/finance/advisor"
	"github.com/hrygo/finsense/finance/extract"
	"github.com/hrygo/finsense/finance/monitor"
	"github.com/hrygo/finsense/finance/pipeline"
	"github.com/hrygo/finsense/finance/report"
	"github.com/hrygo/finsense/plugin/chat_apps"
	"github.com/hrygo/finsense/store"
)

const (
	replyWelcome            = "Thưa ngài, FinSense sẵn sàng phục vụ!"
	replyBudgetUsage        = "Thưa ngài, hãy nhập số tiền hợp lệ: /set_budget 20000000"
	replyAllocationUsage    = "Thưa ngài, dùng /set_allocation nhu_cầu muốn tiết_kiệm (ví dụ: /set_allocation 50 30 20)"
	replyExpenseUsage       = "Thưa ngài, dùng /add_expense mô_tả số_tiền (ví dụ: /add_expense cà phê 30k)"
	replyChooseCategory     = "Thưa ngài, hãy chọn danh mục cho chi tiêu:"
	replyExpenseExpired     = "Thưa ngài, yêu cầu chi tiêu đã hết hạn. Hãy dùng /add_expense lần nữa."
	replyExpenseCancelled   = "Đã hủy chi tiêu đang chờ, thưa ngài."
	replyNothingToCancel    = "Không có chi tiêu nào đang chờ, thưa ngài."
	replyPriceUsage         = "Thưa ngài, dùng /get_price gold, btc, vn-index hoặc mã tài sản"
	replyInvestAdviceUsage  = "Thưa ngài, dùng /invest_advice tài_sản (ví dụ: /invest_advice btc)"
	replyInvestmentUsage    = "Thưa ngài, dùng /add_investment asset amount buy_price"
	replyPriceUnavailable   = "Thưa ngài, chưa lấy được giá %s. Vui lòng thử lại sau."
	replyUnknownCommand     = "Thưa ngài, FinSense chưa hỗ trợ lệnh /%s."
	investAdvicePrompt      = "Đánh giá %s: biến động %s%%, lời khuyên đầu tư:"
	investAdviceMaxLength   = 100
	investAdvicePeriod      = "1mo"
	categoryCallbackPrefix  = "category:"
	priceReplyFormat        = "Giá %s: %s (USD hoặc VND tương đương)."
	investmentAddedFormat   = "Đầu tư %s thêm. FinSense sẽ theo dõi biến động."
	remindersToggledFormat  = "Nhắc nhở đã %s, thưa ngài."
	budgetSetFormat         = "Ngân sách hàng tháng đặt thành %s VND. Phân bổ: %s."
	allocationSetFormat     = "Phân bổ mới: %s, thưa ngài."
	investAdviceFallbackFmt = "%s biến động %s%% trong tháng qua."
)

type commandFunc func(ctx context.Context, msg *chat_apps.IncomingMessage) string

func (s *Server) commandTable() map[string]commandFunc {
	return map[string]commandFunc{
		"start":            s.cmdStart,
		"set_budget":       s.cmdSetBudget,
		"set_allocation":   s.cmdSetAllocation,
		"add_expense":      s.cmdAddExpense,
		"cancel":           s.cmdCancel,
		"report":           s.cmdReport,
		"suggest_model":    s.cmdSuggestModel,
		"toggle_reminders": s.cmdToggleReminders,
		"get_price":        s.cmdGetPrice,
		"invest_advice":    s.cmdInvestAdvice,
		"add_investment":   s.cmdAddInvestment,
	}
}

func (s *Server) handleCommand(ctx context.Context, msg *chat_apps.IncomingMessage) {
	name := strings.ToLower(msg.Command)
	slog.Info("command received", "actor_id", msg.ActorID, "command", name)

	handler, ok := s.commandTable()[name]
	if !ok {
		s.reply(ctx, msg.ChatID, fmt.Sprintf(replyUnknownCommand, name))
		return
	}
	// Handlers that answer with a keyboard send it themselves and return "".
	if text := handler(ctx, msg); text != "" {
		s.reply(ctx, msg.ChatID, text)
	}
}

func (s *Server) reply(ctx context.Context, chatID int64, text string) {
	if err := s.notifier.Send(ctx, chatID, text); err != nil {
		slog.Error("failed to send reply", "chat_id", chatID, "error", err)
	}
}

// user loads or creates the sender's profile. On failure the caller replies with ReplyStoreFailure.
func (s *Server) user(ctx context.Context, actorID int64) (*store.UserProfile, bool) {
	user, err := s.Store.GetOrCreateUser(ctx, actorID)
	if err != nil {
		slog.Error("failed to load user", "actor_id", actorID, "error", err)
		return nil, false
	}
	return user, true
}

func (s *Server) cmdStart(ctx context.Context, msg *chat_apps.IncomingMessage) string {
	if _, ok := s.user(ctx, msg.ActorID); !ok {
		return pipeline.ReplyStoreFailure
	}
	return replyWelcome
}

func (s *Server) cmdSetBudget(ctx context.Context, msg *chat_apps.IncomingMessage) string {
	if len(msg.Args) != 1 {
		return replyBudgetUsage
	}
	income, ok := extract.ParseAmount(strings.ToLower(msg.Args[0]))
	if !ok || income.IsNegative() {
		return replyBudgetUsage
	}
	user, ok := s.user(ctx, msg.ActorID)
	if !ok {
		return pipeline.ReplyStoreFailure
	}
	if err := s.Store.SetIncome(ctx, msg.ActorID, income); err != nil {
		slog.Error("failed to set income", "actor_id", msg.ActorID, "error", err)
		return pipeline.ReplyStoreFailure
	}
	return fmt.Sprintf(budgetSetFormat, finance.FormatVND(income), describeAllocation(user.Allocation))
}

func (s *Server) cmdSetAllocation(ctx context.Context, msg *chat_apps.IncomingMessage) string {
	allocation, err := ParseAllocation(msg.Args)
	if err != nil {
		return replyAllocationUsage
	}
	if _, ok := s.user(ctx, msg.ActorID); !ok {
		return pipeline.ReplyStoreFailure
	}
	if err := s.Store.SetAllocation(ctx, msg.ActorID, allocation); err != nil {
		slog.Error("failed to set allocation", "actor_id", msg.ActorID, "error", err)
		return pipeline.ReplyStoreFailure
	}
	return fmt.Sprintf(allocationSetFormat, describeAllocation(allocation))
}

// ParseAllocation reads three ratios given either as percentages (50 30 20)
// or as fractions (0.5 0.3 0.2). The result must sum to exactly 1.
func ParseAllocation(args []string) (store.Allocation, error) {
	if len(args) != 3 {
		return store.Allocation{}, store.ErrInvalidAllocation
	}
	values := make([]decimal.Decimal, 3)
	percent := false
	for i, arg := range args {
		v, err := decimal.NewFromString(strings.TrimSuffix(arg, "%"))
		if err != nil {
			return store.Allocation{}, store.ErrInvalidAllocation
		}
		if v.GreaterThan(decimal.NewFromInt(1)) || strings.HasSuffix(arg, "%") {
			percent = true
		}
		values[i] = v
	}
	if percent {
		hundred := decimal.NewFromInt(100)
		for i := range values {
			values[i] = values[i].Div(hundred)
		}
	}
	a := store.Allocation{Needs: values[0], Wants: values[1], Savings: values[2]}
	if err := a.Validate(); err != nil {
		return store.Allocation{}, err
	}
	return a, nil
}

func describeAllocation(a store.Allocation) string {
	hundred := decimal.NewFromInt(100)
	return fmt.Sprintf("%s%% nhu cầu, %s%% muốn, %s%% tiết kiệm",
		a.Needs.Mul(hundred).String(), a.Wants.Mul(hundred).String(), a.Savings.Mul(hundred).String())
}

func (s *Server) cmdAddExpense(ctx context.Context, msg *chat_apps.IncomingMessage) string {
	if _, err := s.service.BeginExpense(msg.ActorID, msg.Args); err != nil {
		return replyExpenseUsage
	}
	keyboard := [][]chat_apps.Button{
		{categoryButton(store.CategoryFood), categoryButton(store.CategoryTransport)},
		{categoryButton(store.CategoryEntertainment), categoryButton(store.CategoryOther)},
	}
	err := s.channel.SendMessage(ctx, &chat_apps.OutgoingMessage{
		ChatID:   msg.ChatID,
		Content:  replyChooseCategory,
		Keyboard: keyboard,
	})
	if err != nil {
		slog.Error("failed to send category keyboard", "actor_id", msg.ActorID, "error", err)
	}
	return ""
}

func categoryButton(c store.Category) chat_apps.Button {
	return chat_apps.Button{Text: string(c), Data: categoryCallbackPrefix + string(c)}
}

func (s *Server) cmdCancel(_ context.Context, msg *chat_apps.IncomingMessage) string {
	if s.service.CancelExpense(msg.ActorID) {
		return replyExpenseCancelled
	}
	return replyNothingToCancel
}

// handleCallback completes a pending /add_expense with the pressed category.
func (s *Server) handleCallback(ctx context.Context, msg *chat_apps.IncomingMessage) {
	if err := s.channel.AnswerCallback(ctx, msg.CallbackID, ""); err != nil {
		slog.Warn("failed to answer callback", "actor_id", msg.ActorID, "error", err)
	}

	data, ok := strings.CutPrefix(msg.CallbackData, categoryCallbackPrefix)
	if !ok {
		slog.Warn("unknown callback data", "actor_id", msg.ActorID, "data", msg.CallbackData)
		return
	}
	category := store.Category(data)
	if !category.IsValid() {
		slog.Warn("unknown expense category", "actor_id", msg.ActorID, "category", data)
		return
	}

	text, err := s.service.CompleteExpense(ctx, msg.ActorID, category)
	switch {
	case errors.Is(err, pipeline.ErrNoPendingExpense):
		text = replyExpenseExpired
	case err != nil:
		slog.Error("failed to complete expense", "actor_id", msg.ActorID, "error", err)
		text = pipeline.ReplyStoreFailure
	}

	if msg.MessageID == 0 {
		s.reply(ctx, msg.ChatID, text)
		return
	}
	if err := s.channel.EditMessage(ctx, msg.ChatID, msg.MessageID, text); err != nil {
		slog.Warn("failed to edit keyboard message, sending instead", "actor_id", msg.ActorID, "error", err)
		s.reply(ctx, msg.ChatID, text)
	}
}

func (s *Server) cmdReport(ctx context.Context, msg *chat_apps.IncomingMessage) string {
	user, ok := s.user(ctx, msg.ActorID)
	if !ok {
		return pipeline.ReplyStoreFailure
	}
	return report.Summarize(user, s.now().In(s.loc)).Message()
}

func (s *Server) cmdSuggestModel(ctx context.Context, msg *chat_apps.IncomingMessage) string {
	user, ok := s.user(ctx, msg.ActorID)
	if !ok {
		return pipeline.ReplyStoreFailure
	}
	suggestion, err := s.advisor.Suggest(ctx, user)
	if errors.Is(err, advisor.ErrBudgetNotConfigured) {
		return pipeline.ReplyBudgetNotConfigured
	}
	if err != nil {
		slog.Error("model suggestion failed", "actor_id", msg.ActorID, "error", err)
		return pipeline.ReplyStoreFailure
	}
	return suggestion.Message()
}

func (s *Server) cmdToggleReminders(ctx context.Context, msg *chat_apps.IncomingMessage) string {
	user, ok := s.user(ctx, msg.ActorID)
	if !ok {
		return pipeline.ReplyStoreFailure
	}
	enabled := !user.RemindersEnabled
	if err := s.Store.SetRemindersEnabled(ctx, msg.ActorID, enabled); err != nil {
		slog.Error("failed to toggle reminders", "actor_id", msg.ActorID, "error", err)
		return pipeline.ReplyStoreFailure
	}
	state := "tắt"
	if enabled {
		state = "bật"
	}
	return fmt.Sprintf(remindersToggledFormat, state)
}

func (s *Server) cmdGetPrice(ctx context.Context, msg *chat_apps.IncomingMessage) string {
	asset := strings.ToLower(strings.Join(msg.Args, " "))
	if asset == "" {
		return replyPriceUsage
	}
	price, err := s.feed.PriceOf(ctx, finance.QuoteTicker(asset), monitor.PricePeriod)
	if err != nil {
		slog.Warn("price lookup failed", "asset", asset, "error", err)
		return fmt.Sprintf(replyPriceUnavailable, strings.ToUpper(asset))
	}
	return fmt.Sprintf(priceReplyFormat, strings.ToUpper(asset), price.String())
}

func (s *Server) cmdInvestAdvice(ctx context.Context, msg *chat_apps.IncomingMessage) string {
	asset := strings.ToLower(strings.Join(msg.Args, " "))
	if asset == "" {
		return replyInvestAdviceUsage
	}
	closes, err := s.feed.Closes(ctx, finance.TickerFor(asset), investAdvicePeriod)
	if err != nil || len(closes) == 0 {
		slog.Warn("price history lookup failed", "asset", asset, "error", err)
		return fmt.Sprintf(replyPriceUnavailable, strings.ToUpper(asset))
	}
	change, ok := monitor.ChangePercent(closes[0], closes[len(closes)-1])
	if !ok {
		return fmt.Sprintf(replyPriceUnavailable, strings.ToUpper(asset))
	}
	percent := finance.FormatPercent(change)

	advice, err := s.generator.Generate(ctx, fmt.Sprintf(investAdvicePrompt, asset, percent), investAdviceMaxLength)
	advice = strings.TrimSpace(advice)
	if err != nil || advice == "" {
		if err != nil {
			slog.Warn("invest advice generation failed", "asset", asset, "error", err)
		}
		advice = fmt.Sprintf(investAdviceFallbackFmt, strings.ToUpper(asset), percent)
	}
	return "Thưa ngài, " + advice
}

func (s *Server) cmdAddInvestment(ctx context.Context, msg *chat_apps.IncomingMessage) string {
	if len(msg.Args) != 3 {
		return replyInvestmentUsage
	}
	amount, err := decimal.NewFromString(msg.Args[1])
	if err != nil {
		return replyInvestmentUsage
	}
	price, err := decimal.NewFromString(msg.Args[2])
	if err != nil {
		return replyInvestmentUsage
	}
	if _, ok := s.user(ctx, msg.ActorID); !ok {
		return pipeline.ReplyStoreFailure
	}

	asset := msg.Args[0]
	record := store.InvestmentRecord{
		AssetSymbol:    asset,
		PurchaseAmount: amount,
		PurchasePrice:  price,
		CurrentValue:   decimal.Zero,
	}
	if err := s.Store.AppendInvestment(ctx, msg.ActorID, record); err != nil {
		if errors.Is(err, store.ErrNegativeAmount) {
			return replyInvestmentUsage
		}
		slog.Error("failed to add investment", "actor_id", msg.ActorID, "error", err)
		return pipeline.ReplyStoreFailure
	}
	return fmt.Sprintf(investmentAddedFormat, asset)
}
