// Package fuzzy scores how closely free text matches a canonical phrase.
package fuzzy

import (
	"math"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Threshold is the score a match must strictly exceed.
const Threshold = 70

// Canonical phrases, already normalized.
const (
	PhraseFood          = "an uong"
	PhraseMajorPurchase = "mua xe"
)

var dStroke = strings.NewReplacer("đ", "d", "Đ", "d")

// Normalize lowercases s, folds Vietnamese diacritics and collapses whitespace.
func Normalize(s string) string {
	s = dStroke.Replace(strings.ToLower(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(folded), " ")
}

// Ratio returns the Levenshtein similarity of a and b in [0,100].
func Ratio(a, b string) int {
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := max(la, lb)
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * (1 - float64(dist)/float64(maxLen))))
}

// PartialRatio returns the best Ratio of the shorter string against every
// equally long window of the longer one.
func PartialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		if len(long) == 0 {
			return 100
		}
		return 0
	}

	s := string(short)
	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		r := Ratio(s, string(long[i:i+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// Similarity scores text against phrase after normalizing both.
func Similarity(text, phrase string) int {
	return PartialRatio(Normalize(text), Normalize(phrase))
}

// Matches reports whether text is similar enough to phrase.
func Matches(text, phrase string) bool {
	return Similarity(text, phrase) > Threshold
}
