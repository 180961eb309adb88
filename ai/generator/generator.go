// Package generator produces free-form advice text from a prompt.
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/finsense/ai/core/llm"
	"github.com/hrygo/finsense/ai/metrics"
)

// Generator is the text generation port.
type Generator interface {
	// Generate returns at most roughly maxLength tokens of text for the prompt.
	Generate(ctx context.Context, prompt string, maxLength int) (string, error)
}

// LLMGenerator generates text with the chat model.
type LLMGenerator struct {
	llm     llm.Service
	metrics *metrics.PrometheusExporter
	timeout time.Duration
}

// NewLLMGenerator creates a generator backed by the LLM service.
func NewLLMGenerator(svc llm.Service, exporter *metrics.PrometheusExporter) *LLMGenerator {
	return &LLMGenerator{
		llm:     svc,
		metrics: exporter,
		timeout: 30 * time.Second,
	}
}

func (g *LLMGenerator) Generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var opts []llm.CallOption
	if maxLength > 0 {
		opts = append(opts, llm.WithMaxTokens(maxLength))
	}
	content, stats, err := g.llm.Chat(ctx, []llm.Message{
		llm.SystemPrompt(adviceSystemPrompt),
		llm.UserMessage(prompt),
	}, opts...)
	if err != nil {
		g.metrics.RecordLLMRequest("generator", 0, false)
		return "", fmt.Errorf("generate: %w", err)
	}
	g.metrics.RecordLLMRequest("generator", stats.TotalTokens, true)
	return strings.TrimSpace(content), nil
}

// Noop returns empty text. It stands in when AI is disabled.
type Noop struct{}

func (Noop) Generate(context.Context, string, int) (string, error) {
	return "", nil
}

const adviceSystemPrompt = `Bạn là trợ lý tài chính cá nhân cho người Việt.
Trả lời ngắn gọn, thực tế, bằng tiếng Việt.
Không bịa số liệu mà người dùng không cung cấp.`
