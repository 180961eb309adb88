package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ăn Uống", "an uong"},
		{"  đám   cưới  ", "dam cuoi"},
		{"Gợi ý mô hình", "goi y mo hinh"},
		{"ĐI CHỢ", "di cho"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 100, Ratio("", ""))
	assert.Equal(t, 100, Ratio("an uong", "an uong"))
	assert.Equal(t, 0, Ratio("abc", "xyz"))
	assert.Equal(t, 86, Ratio("an uong", "an uonh"))
}

func TestPartialRatio(t *testing.T) {
	assert.Equal(t, 100, PartialRatio("an uong", "an uong 50k hom nay"))
	assert.Equal(t, 100, PartialRatio("hom qua an uong", "an uong"))
	assert.Equal(t, 0, PartialRatio("", "an uong"))
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		phrase string
		match  bool
	}{
		{"accented food phrase inside sentence", "ăn uống 50k hôm nay", PhraseFood, true},
		{"unaccented food phrase", "an uong 30k", PhraseFood, true},
		{"typo still matches", "an uon 30k", PhraseFood, true},
		{"taxi is not food", "taxi 30k", PhraseFood, false},
		{"major purchase", "mua xe máy 30tr ngày 1/6", PhraseMajorPurchase, true},
		{"wedding is not a purchase", "đám cưới bạn 20/12", PhraseMajorPurchase, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Similarity(tt.text, tt.phrase)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
			assert.Equal(t, tt.match, Matches(tt.text, tt.phrase), "score %d", score)
		})
	}
}
