package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/finsense/ai/core/llm"
)

type fakeLLM struct {
	content   string
	err       error
	lastUser  string
	callCount int
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message, _ ...llm.CallOption) (string, *llm.CallStats, error) {
	f.callCount++
	f.lastUser = messages[len(messages)-1].Content
	if f.err != nil {
		return "", nil, f.err
	}
	return f.content, &llm.CallStats{TotalTokens: 10}, nil
}

func (f *fakeLLM) Warmup(context.Context) {}

func TestLLMGenerator(t *testing.T) {
	fake := &fakeLLM{content: "  Hãy giảm chi tiêu giải trí.\n"}
	g := NewLLMGenerator(fake, nil)

	got, err := g.Generate(context.Background(), "Tôi đã vượt ngân sách", 100)
	require.NoError(t, err)
	assert.Equal(t, "Hãy giảm chi tiêu giải trí.", got)
	assert.Equal(t, "Tôi đã vượt ngân sách", fake.lastUser)
}

func TestLLMGenerator_Error(t *testing.T) {
	g := NewLLMGenerator(&fakeLLM{err: errors.New("rate limited")}, nil)

	got, err := g.Generate(context.Background(), "x", 50)
	require.Error(t, err)
	assert.Empty(t, got)
}

func TestNoop(t *testing.T) {
	var g Generator = Noop{}
	got, err := g.Generate(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
