package classifier

import (
	"context"
	"strings"
	"unicode"

	"github.com/hrygo/finsense/finance/fuzzy"
)

// DefaultKeywords maps the labels the bot classifies against to folded Vietnamese cues.
var DefaultKeywords = map[string][]string{
	"expense":  {"mua", "chi", "tieu", "het", "tra tien", "an", "uong", "ca phe", "do xang", "thanh toan"},
	"debt":     {"no", "vay", "muon", "tra no", "cho vay", "ghi no"},
	"event":    {"dam cuoi", "cuoi", "dam hoi", "sinh nhat", "hop lop", "hop mat", "du lich", "su kien", "mua xe", "mua nha", "nhac toi", "nhac minh"},
	"question": {"?", "bao nhieu", "the nao", "lam sao", "co nen", "tai sao", "nhu the nao", "khong nhi"},

	"wedding":        {"dam cuoi", "cuoi", "dam hoi", "an hoi"},
	"birthday":       {"sinh nhat", "thoi noi"},
	"reunion":        {"hop lop", "hop mat", "doan tu", "tat nien", "gap mat"},
	"travel":         {"du lich", "di choi", "chuyen di", "ve que"},
	"major-purchase": {"mua xe", "mua nha", "mua dat", "tra gop"},

	"high debt":     {"no cao", "nhieu no"},
	"high spending": {"chi tieu cao", "tieu nhieu"},
	"savings goal":  {"tiet kiem", "muc tieu"},
	"event focused": {"su kien", "nhieu su kien"},
}

// KeywordClassifier scores labels by counting folded keyword hits.
// It is used when no LLM is configured.
type KeywordClassifier struct {
	keywords map[string][]string
}

// NewKeywordClassifier creates a keyword classifier. A nil table uses DefaultKeywords.
func NewKeywordClassifier(keywords map[string][]string) *KeywordClassifier {
	if keywords == nil {
		keywords = DefaultKeywords
	}
	return &KeywordClassifier{keywords: keywords}
}

func (c *KeywordClassifier) Classify(_ context.Context, text string, labels []string) ([]Score, error) {
	padded := " " + tokenize(text) + " "

	scores := make([]Score, 0, len(labels))
	for _, label := range labels {
		hits := 0
		for _, kw := range c.keywords[label] {
			if !strings.Contains(padded, " "+kw+" ") {
				continue
			}
			// Phrases are stronger evidence than single words.
			hits += len(strings.Fields(kw))
		}
		scores = append(scores, Score{Label: label, Confidence: keywordConfidence(hits)})
	}
	return rank(scores), nil
}

// keywordConfidence maps a hit count to a confidence: one word clears 0.6, more words saturate at 0.95.
func keywordConfidence(hits int) float64 {
	if hits == 0 {
		return 0
	}
	return min(0.6+0.15*float64(hits), 0.95)
}

// tokenize folds the text and splits punctuation off words; "?" survives as its own token.
func tokenize(text string) string {
	spaced := strings.Map(func(r rune) rune {
		if r != '?' && unicode.IsPunct(r) {
			return ' '
		}
		return r
	}, text)
	spaced = strings.ReplaceAll(spaced, "?", " ? ")
	return fuzzy.Normalize(spaced)
}
