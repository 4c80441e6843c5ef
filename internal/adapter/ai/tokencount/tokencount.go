// Package tokencount counts chat tokens with tiktoken when a backend does not
// report usage. Encodings are loaded from the embedded offline BPE files.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter provides thread-safe token counting for LLM models.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{
		encodingCache: make(map[string]*tiktoken.Tiktoken),
	}
}

// DefaultCounter is a global token counter instance.
var DefaultCounter = NewCounter()

func (c *Counter) encoding(model string) (*tiktoken.Tiktoken, error) {
	name := encodingName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[name]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, err
	}
	c.encodingCache[name] = enc
	return enc, nil
}

// encodingName picks the BPE used to approximate model. Only the gpt-4o
// family uses o200k; everything else, including Sea Lion and Claude models,
// is approximated with cl100k.
func encodingName(model string) string {
	model = strings.ToLower(model)
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	if strings.HasPrefix(model, "gpt-4o") || strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") {
		return "o200k_base"
	}
	return "cl100k_base"
}

// CountTokens counts the tokens of text for model, falling back to ~4 chars
// per token when no encoding is available.
func (c *Counter) CountTokens(text, model string) int {
	enc, err := c.encoding(model)
	if err != nil {
		slog.Debug("token encoding unavailable, using estimate", slog.String("model", model), slog.Any("error", err))
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// CountChatTokens counts prompt tokens for a chat request including the
// per-message framing overhead of OpenAI-compatible APIs.
func (c *Counter) CountChatTokens(history []domain.ChatMessage, model string) int {
	const tokensPerMessage = 3
	n := 3 // reply priming
	for _, m := range history {
		n += tokensPerMessage
		n += c.CountTokens(string(m.Role), model)
		n += c.CountTokens(m.Content, model)
	}
	return n
}

// EstimateUsage builds a usage record for a call whose backend omitted it.
func (c *Counter) EstimateUsage(history []domain.ChatMessage, completion, model string) domain.TokenUsage {
	prompt := c.CountChatTokens(history, model)
	compl := c.CountTokens(completion, model)
	return domain.TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: compl,
		TotalTokens:      prompt + compl,
		Estimated:        true,
	}
}
