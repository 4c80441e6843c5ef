package conversation

import "github.com/fairyhunter13/ai-interview-coach/internal/domain"

// Optimize returns the longest contiguous suffix of messages whose estimated
// token total fits maxTokens and that holds at most 2*maxPairs messages.
// The newest message is always kept, even when it alone exceeds the budget.
// A non-positive maxPairs disables the pair cap.
func Optimize(messages []domain.ChatMessage, maxTokens, maxPairs int) []domain.ChatMessage {
	if len(messages) == 0 {
		return []domain.ChatMessage{}
	}
	limit := len(messages)
	if maxPairs > 0 && 2*maxPairs < limit {
		limit = 2 * maxPairs
	}

	start := len(messages) - 1
	used := EstimateTokens(messages[start].Content)
	for i := start - 1; i >= 0; i-- {
		if len(messages)-i > limit {
			break
		}
		cost := EstimateTokens(messages[i].Content)
		if used+cost > maxTokens {
			break
		}
		used += cost
		start = i
	}

	out := make([]domain.ChatMessage, len(messages)-start)
	copy(out, messages[start:])
	return out
}

// FromStored converts persisted messages into provider chat history.
func FromStored(msgs []domain.ConversationMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, domain.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// TotalTokens sums the estimate over a history.
func TotalTokens(messages []domain.ChatMessage) int {
	n := 0
	for _, m := range messages {
		n += EstimateTokens(m.Content)
	}
	return n
}
