package conversation

import (
	"fmt"
	"sync"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Options tunes provider calls made by a Session.
type Options struct {
	MaxTokens   int
	Temperature float64
	Purpose     string
}

// Session is the provider-facing transcript of one interview: a system prompt
// followed by alternating user and assistant turns. It is rebuilt for every
// request from the trimmed persisted history and is safe for concurrent use.
type Session struct {
	provider domain.ModelProvider
	opts     Options

	mu      sync.Mutex
	history []domain.ChatMessage
	usage   domain.TokenUsage
}

// New starts an empty conversation with a single system turn.
func New(provider domain.ModelProvider, systemPrompt string, opts Options) *Session {
	return &Session{
		provider: provider,
		opts:     opts,
		history:  []domain.ChatMessage{{Role: domain.RoleSystem, Content: systemPrompt}},
	}
}

// Restore rebuilds a conversation from an already-trimmed transcript without
// calling the provider.
func Restore(provider domain.ModelProvider, systemPrompt string, trimmed []domain.ChatMessage, opts Options) *Session {
	s := New(provider, systemPrompt, opts)
	for _, m := range trimmed {
		if m.Role == domain.RoleSystem {
			continue
		}
		s.history = append(s.history, m)
	}
	return s
}

// Respond appends the user turn, asks the provider once for a reply over the
// whole history and records it. On failure the user turn is removed again.
func (s *Session) Respond(ctx domain.Context, userText string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, domain.ChatMessage{Role: domain.RoleUser, Content: userText})
	reply, err := s.generate(ctx, s.history)
	if err != nil {
		s.history = s.history[:len(s.history)-1]
		return "", err
	}
	s.history = append(s.history, domain.ChatMessage{Role: domain.RoleAssistant, Content: reply})
	return reply, nil
}

// Open asks for the first assistant turn. The kickoff instruction is sent to
// the provider but never recorded.
func (s *Session) Open(ctx domain.Context, kickoff string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := append(append([]domain.ChatMessage(nil), s.history...), domain.ChatMessage{Role: domain.RoleUser, Content: kickoff})
	reply, err := s.generate(ctx, req)
	if err != nil {
		return "", err
	}
	s.history = append(s.history, domain.ChatMessage{Role: domain.RoleAssistant, Content: reply})
	return reply, nil
}

func (s *Session) generate(ctx domain.Context, history []domain.ChatMessage) (string, error) {
	gen, err := s.provider.Generate(ctx, history, domain.GenerateOptions{
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
		Purpose:     s.opts.Purpose,
	})
	if err != nil {
		return "", domain.NewProviderError("", "conversation.generate", err)
	}
	if gen.Usage != nil {
		s.usage = s.usage.Add(*gen.Usage)
	}
	if gen.Text == "" {
		return "", domain.NewProviderError(gen.Provider, "conversation.generate", fmt.Errorf("empty completion"))
	}
	return gen.Text, nil
}

// History returns a copy of the non-system turns in order.
func (s *Session) History() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, 0, len(s.history))
	for _, m := range s.history {
		if m.Role != domain.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// Usage returns the token usage reported by the provider so far.
func (s *Session) Usage() domain.TokenUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}
