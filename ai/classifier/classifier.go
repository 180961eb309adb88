// Package classifier ranks free text against a caller-supplied label set.
package classifier

import (
	"context"
	"sort"
)

// Score is the confidence of one label, in [0, 1].
type Score struct {
	Label      string
	Confidence float64
}

// Classifier is the zero-shot classification port.
// Implementations return one score per known label, highest first.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) ([]Score, error)
}

// Top returns the highest score, if any.
func Top(scores []Score) (Score, bool) {
	if len(scores) == 0 {
		return Score{}, false
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Confidence > best.Confidence {
			best = s
		}
	}
	return best, true
}

// rank sorts scores by confidence, keeping the label order for ties.
func rank(scores []Score) []Score {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Confidence > scores[j].Confidence
	})
	return scores
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
