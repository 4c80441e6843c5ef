package tokencount

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func TestEncodingName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4o-mini", "o200k_base"},
		{"openai/GPT-4o", "o200k_base"},
		{"gpt-3.5-turbo", "cl100k_base"},
		{"aisingapore/Gemma-SEA-LION-v3-9B-IT", "cl100k_base"},
		{"anthropic.claude-3-haiku-20240307-v1:0", "cl100k_base"},
		{"", "cl100k_base"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, encodingName(tt.model), tt.model)
	}
}

func TestCountTokens(t *testing.T) {
	t.Parallel()
	c := NewCounter()
	assert.Equal(t, 0, c.CountTokens("", "gpt-4o-mini"))
	n := c.CountTokens("Tell me about a time you led a project.", "gpt-4o-mini")
	assert.Greater(t, n, 5)
	assert.Less(t, n, 20)
}

func TestEstimateUsage(t *testing.T) {
	t.Parallel()
	history := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "You are an interviewer."},
		{Role: domain.RoleUser, Content: "Hello"},
	}
	u := DefaultCounter.EstimateUsage(history, "Welcome! Let's begin.", "gpt-4o-mini")
	assert.True(t, u.Estimated)
	assert.Greater(t, u.PromptTokens, 6)
	assert.Greater(t, u.CompletionTokens, 0)
	assert.Equal(t, u.PromptTokens+u.CompletionTokens, u.TotalTokens)
}
