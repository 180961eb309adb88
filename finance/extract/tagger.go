package extract

import (
	"regexp"
	"sort"
	"unicode"
	"unicode/utf8"
)

// SpanType labels a tagged span of text.
type SpanType string

const (
	SpanMoney SpanType = "MONEY"
	SpanDate  SpanType = "DATE"
)

// Span is a typed substring of the input, byte offsets [Start, End).
type Span struct {
	Type  SpanType
	Text  string
	Start int
	End   int
}

// Tagger finds typed spans in lowercase text, ordered by position.
type Tagger interface {
	Tag(text string) []Span
}

var (
	wordDatePattern  = regexp.MustCompile(`ngày\s+(\d{1,2})\s+tháng\s+(\d{1,2})(?:\s+năm\s+(\d{2,4}))?`)
	slashDatePattern = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?\b`)
	moneyPattern     = regexp.MustCompile(`\d+(?:[.,]\d+)*(?:\s*(triệu|nghìn|ngàn|đồng|vnđ|vnd|tr|k|đ))?`)
	// Without a unit, only long or thousands-grouped numbers are amounts.
	bareAmountPattern = regexp.MustCompile(`^(?:\d{4,}|\d{1,3}(?:[.,]\d{3})+)$`)
)

// RegexTagger tags MONEY and DATE spans with regular expressions.
type RegexTagger struct{}

func (RegexTagger) Tag(text string) []Span {
	var spans []Span
	for _, pattern := range []*regexp.Regexp{wordDatePattern, slashDatePattern} {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			if overlaps(spans, loc[0], loc[1]) {
				continue
			}
			spans = append(spans, Span{Type: SpanDate, Text: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
		}
	}

	for _, loc := range moneyPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		if overlaps(spans, start, end) || precededByLetter(text, start) {
			continue
		}
		hasUnit := loc[2] >= 0
		// A unit glued to a longer word ("5 trái", "50km") is not a unit.
		if hasUnit && followedByLetter(text, end) {
			hasUnit = false
			end = numberEnd(text, start)
		}
		if !hasUnit && (followedByLetter(text, end) || !bareAmountPattern.MatchString(text[start:end])) {
			continue
		}
		spans = append(spans, Span{Type: SpanMoney, Text: text[start:end], Start: start, End: end})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

func overlaps(spans []Span, start, end int) bool {
	for _, s := range spans {
		if start < s.End && s.Start < end {
			return true
		}
	}
	return false
}

func precededByLetter(text string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return unicode.IsLetter(r)
}

func followedByLetter(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsLetter(r)
}

func numberEnd(text string, start int) int {
	i := start
	for i < len(text) {
		if isDigit(text[i]) || (text[i] == '.' || text[i] == ',') && i+1 < len(text) && isDigit(text[i+1]) {
			i++
			continue
		}
		break
	}
	return i
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
