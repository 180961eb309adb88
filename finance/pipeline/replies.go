package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hrygo/finsense/finance"
	"github.com/hrygo/finsense/store"
)

const (
	replyMissingDate          = "Thưa ngài, vui lòng chỉ rõ ngày (ví dụ: 16/2)."
	replyFallback             = "Thưa ngài, FinSense chưa hiểu rõ yêu cầu. Hãy dùng /add_expense hoặc mô tả chi tiết hơn!"
	ReplyBudgetNotConfigured  = "Thưa ngài, hãy /set_budget để bắt đầu quản lý tài chính khoa học!"
	ReplyStoreFailure         = "Thưa ngài, FinSense chưa lưu được dữ liệu. Vui lòng thử lại sau."
	answerPrefix              = "Thưa ngài, lời khuyên: "
	overspendAdvicePrompt     = "Gợi ý cách tiết kiệm khi chi tiêu vượt mức: "
	debtAdvicePrompt          = "Lời khuyên xử lý nợ: "
	questionPrompt            = "Trả lời câu hỏi tài chính: "
	giftPrompt                = "Gợi ý quà cho %s: "
	adviceMaxLength           = 50
	answerMaxLength           = 100
	modelSuggestionTriggerVi  = "goi y mo hinh"
	modelSuggestionTriggerEng = "suggest model"
)

// sentence joins the non-empty parts with single spaces.
func sentence(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func expenseRecordedReply(amount decimal.Decimal, category store.Category) string {
	return fmt.Sprintf("Chi tiêu ghi nhận: %s VND (%s).", finance.FormatVND(amount), category)
}

func overBudgetReply(advice string) string {
	return sentence("Chi tiêu thêm. Vượt mức!", advice, "Thưa ngài.")
}

func debtRecordedReply(amount decimal.Decimal) string {
	return fmt.Sprintf("Khoản nợ %s VND đã ghi nhận.", finance.FormatVND(amount))
}

func debtAdviceReply(advice string) string {
	return sentence("Khoản nợ ghi.", advice, "Để lợi ích ngài!")
}

func invalidLunarReply(year, month, day int) string {
	return fmt.Sprintf("Thưa ngài, ngày âm lịch %d/%d/%d không hợp lệ.", day, month, year)
}

func lunarConvertedReply(day, month int, solar time.Time) string {
	return fmt.Sprintf("Chuyển lịch âm %d/%d sang dương: %s", day, month, solar.Format("02/01/2006"))
}

func eventRecordedReply(t store.EventType, occursOn time.Time, gift string) string {
	return fmt.Sprintf("Sự kiện %s ghi nhớ ngày %s. Gợi ý: %s. FinSense sẽ nhắc!",
		finance.EventLabel(t), occursOn.Format("02/01"), gift)
}

func eventReminderText(t store.EventType, cost decimal.Decimal, gift string) string {
	return fmt.Sprintf("Thưa ngài, hôm nay %s: Dự trù %s VND. Quà: %s.",
		finance.EventLabel(t), finance.FormatVND(cost), gift)
}

func expenseAddedReply(p PendingExpense, category store.Category, over bool) string {
	head := fmt.Sprintf("Chi tiêu thêm: %s - %s VND (%s).", p.Description, finance.FormatVND(p.Amount), category)
	if over {
		return head + " Thưa ngài, chi tiêu giải trí đang vượt mức, có lẽ chúng ta nên ưu tiên tiết kiệm."
	}
	return head + " FinSense ghi nhận, thưa ngài."
}
