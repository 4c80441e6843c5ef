package conversation

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func TestEstimateTokens(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
		{strings.Repeat("x", 401), 101},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateTokens(tt.in), "len=%d", len(tt.in))
	}
}

func msgs(lengths ...int) []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(lengths))
	for i, n := range lengths {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		out[i] = domain.ChatMessage{Role: role, Content: fmt.Sprintf("%d:%s", i, strings.Repeat("w", n))}
	}
	return out
}

func TestOptimize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		in        []domain.ChatMessage
		maxTokens int
		maxPairs  int
		wantLen   int
	}{
		{"empty", nil, 100, 5, 0},
		{"all fit", msgs(10, 10, 10), 1000, 10, 3},
		{"pair cap", msgs(1, 1, 1, 1, 1, 1, 1), 1000, 2, 4},
		{"token cap", msgs(38, 38, 38, 38), 25, 10, 2},
		{"newest always kept", msgs(10, 4000), 5, 10, 1},
		{"zero budget keeps newest", msgs(10, 10), 0, 10, 1},
		{"no pair cap", msgs(1, 1, 1, 1, 1, 1, 1, 1, 1), 1000, 0, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Optimize(tt.in, tt.maxTokens, tt.maxPairs)
			require.NotNil(t, got)
			assert.Len(t, got, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.in[len(tt.in)-1], got[len(got)-1])
			}
		})
	}
}

func TestOptimize_Properties(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 500; iter++ {
		n := rng.Intn(30)
		lengths := make([]int, n)
		for i := range lengths {
			lengths[i] = rng.Intn(300)
		}
		in := msgs(lengths...)
		maxTokens := rng.Intn(400)
		maxPairs := rng.Intn(8) - 1

		out := Optimize(in, maxTokens, maxPairs)

		if n == 0 {
			assert.Empty(t, out)
			continue
		}
		require.NotEmpty(t, out)

		// contiguous suffix in chronological order
		offset := n - len(out)
		assert.Equal(t, in[offset:], out)

		if maxPairs > 0 {
			assert.LessOrEqual(t, len(out), 2*maxPairs)
		}
		if len(out) > 1 {
			assert.LessOrEqual(t, TotalTokens(out), maxTokens)
		}
	}
}

func TestFromStored(t *testing.T) {
	t.Parallel()
	stored := []domain.ConversationMessage{
		{Role: domain.RoleAssistant, Content: "hi", MessageOrder: 1},
		{Role: domain.RoleUser, Content: "hello", MessageOrder: 2},
	}
	got := FromStored(stored)
	assert.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleAssistant, Content: "hi"},
		{Role: domain.RoleUser, Content: "hello"},
	}, got)
}
