package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/finsense/ai/core/llm"
	"github.com/hrygo/finsense/ai/internal/strutil"
	"github.com/hrygo/finsense/ai/metrics"
)

// LLMClassifier asks a chat model to score the labels and parses its JSON answer.
type LLMClassifier struct {
	llm     llm.Service
	metrics *metrics.PrometheusExporter
	timeout time.Duration
}

// NewLLMClassifier creates a classifier backed by the LLM service.
func NewLLMClassifier(svc llm.Service, exporter *metrics.PrometheusExporter) *LLMClassifier {
	return &LLMClassifier{
		llm:     svc,
		metrics: exporter,
		timeout: 20 * time.Second,
	}
}

func (c *LLMClassifier) Classify(ctx context.Context, text string, labels []string) ([]Score, error) {
	if len(labels) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf(`Labels: %s

Text: %s

Return JSON only: {"scores": [{"label": "<label>", "score": <0..1>}]}`, strings.Join(quoteAll(labels), ", "), text)

	start := time.Now()
	content, stats, err := c.llm.Chat(ctx, []llm.Message{
		llm.SystemPrompt(classifySystemPrompt),
		llm.UserMessage(userPrompt),
	}, llm.WithMaxTokens(256), llm.WithTemperature(0))
	c.metrics.RecordClassifierLatency("llm", time.Since(start))
	if err != nil {
		c.metrics.RecordLLMRequest("classifier", 0, false)
		return nil, fmt.Errorf("classify: %w", err)
	}
	c.metrics.RecordLLMRequest("classifier", stats.TotalTokens, true)

	scores, err := parseScores(content, labels)
	if err != nil {
		slog.Warn("classifier: unparseable response", "error", err, "preview", strutil.Truncate(content, responsePreviewLength))
		return nil, err
	}
	return scores, nil
}

// parseScores keeps only the requested labels; unknown labels in the answer are dropped
// and requested labels missing from it score zero.
func parseScores(content string, labels []string) ([]Score, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var result struct {
		Scores []struct {
			Label string  `json:"label"`
			Score float64 `json:"score"`
		} `json:"scores"`
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("parse classifier response: %w", err)
	}

	byLabel := make(map[string]float64, len(result.Scores))
	for _, s := range result.Scores {
		key := strings.ToLower(strings.TrimSpace(s.Label))
		if v, ok := byLabel[key]; !ok || s.Score > v {
			byLabel[key] = s.Score
		}
	}

	scores := make([]Score, 0, len(labels))
	for _, label := range labels {
		scores = append(scores, Score{
			Label:      label,
			Confidence: clamp(byLabel[strings.ToLower(label)]),
		})
	}
	return rank(scores), nil
}

func quoteAll(labels []string) []string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = `"` + l + `"`
	}
	return quoted
}

// responsePreviewLength bounds how much of a bad model answer reaches the log.
const responsePreviewLength = 120

const classifySystemPrompt = `You classify short personal-finance messages written in Vietnamese or English.
Score every given label with the probability that it describes the text.
Scores are between 0 and 1 and should sum to about 1.
Use only the given labels. Answer with JSON and nothing else.`
