package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

type scriptedProvider struct {
	replies []string
	errs    []error
	calls   [][]domain.ChatMessage
}

func (p *scriptedProvider) Generate(_ context.Context, history []domain.ChatMessage, _ domain.GenerateOptions) (domain.Generation, error) {
	p.calls = append(p.calls, append([]domain.ChatMessage(nil), history...))
	i := len(p.calls) - 1
	if i < len(p.errs) && p.errs[i] != nil {
		return domain.Generation{}, p.errs[i]
	}
	text := "reply"
	if i < len(p.replies) {
		text = p.replies[i]
	}
	return domain.Generation{Text: text, Usage: &domain.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}, nil
}

func TestSession_Respond(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{replies: []string{"Tell me about yourself.", "Great, and then?"}}
	s := New(p, "You are an interviewer.", Options{MaxTokens: 200})

	r1, err := s.Respond(context.Background(), "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Tell me about yourself.", r1)

	r2, err := s.Respond(context.Background(), "I build APIs")
	require.NoError(t, err)
	assert.Equal(t, "Great, and then?", r2)

	require.Len(t, p.calls, 2)
	// second call carries the full accumulated history
	assert.Len(t, p.calls[1], 4)
	assert.Equal(t, domain.RoleSystem, p.calls[1][0].Role)

	h := s.History()
	require.Len(t, h, 4)
	assert.Equal(t, domain.RoleUser, h[0].Role)
	assert.Equal(t, "Great, and then?", h[3].Content)

	assert.Equal(t, 30, s.Usage().TotalTokens)
}

func TestSession_RespondFailureRollsBack(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{errs: []error{nil, domain.ErrUpstreamTimeout}}
	s := New(p, "sys", Options{})

	_, err := s.Respond(context.Background(), "first")
	require.NoError(t, err)

	_, err = s.Respond(context.Background(), "second")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, "first", h[0].Content)
}

func TestSession_EmptyCompletionIsProviderError(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{replies: []string{""}}
	s := New(p, "sys", Options{})
	_, err := s.Respond(context.Background(), "hi")
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Empty(t, s.History())
}

func TestSession_RestoreSkipsSystemAndDoesNotCall(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{}
	trimmed := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "stale"},
		{Role: domain.RoleAssistant, Content: "Welcome"},
		{Role: domain.RoleUser, Content: "Thanks"},
	}
	s := Restore(p, "fresh", trimmed, Options{})
	assert.Empty(t, p.calls)
	assert.Len(t, s.History(), 2)

	_, err := s.Respond(context.Background(), "next")
	require.NoError(t, err)
	require.Len(t, p.calls, 1)
	assert.Equal(t, "fresh", p.calls[0][0].Content)
	assert.Len(t, p.calls[0], 4)
}

func TestSession_OpenDoesNotRecordKickoff(t *testing.T) {
	t.Parallel()
	p := &scriptedProvider{replies: []string{"Hello, I'm Dana."}}
	s := New(p, "sys", Options{})

	greeting, err := s.Open(context.Background(), "Begin the interview.")
	require.NoError(t, err)
	assert.Equal(t, "Hello, I'm Dana.", greeting)
	assert.Equal(t, "Begin the interview.", p.calls[0][1].Content)

	h := s.History()
	require.Len(t, h, 1)
	assert.Equal(t, domain.RoleAssistant, h[0].Role)

	p2 := &scriptedProvider{errs: []error{errors.New("down")}}
	s2 := New(p2, "sys", Options{})
	_, err = s2.Open(context.Background(), "go")
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Empty(t, s2.History())
}
