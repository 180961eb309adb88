// Package strutil holds small string helpers shared by the ai packages.
package strutil

// Truncate cuts s to at most maxLen runes and marks the cut with "...".
// Vietnamese diacritics are multi-byte, so the cut is rune-based.
// It returns "" when maxLen <= 0.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
