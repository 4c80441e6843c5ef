// Package sealion is the SEA-LION chat backend. The API is OpenAI-compatible
// JSON over HTTP; reasoning models may leak <think> blocks which are removed.
package sealion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// Name identifies this backend in the failover chain and metrics.
const Name = "sealion"

// Client implements domain.ModelProvider.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	hc         *http.Client
	newBackoff func() backoff.BackOff
}

// New builds a client. newBackoff is called once per Generate.
func New(baseURL, apiKey, model string, hc *http.Client, newBackoff func() backoff.BackOff) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("op=sealion.New: %w: api key is required", domain.ErrInvalidArgument)
	}
	if newBackoff == nil {
		newBackoff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		hc:         hc,
		newBackoff: newBackoff,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate implements domain.ModelProvider.
func (c *Client) Generate(ctx domain.Context, history []domain.ChatMessage, opts domain.GenerateOptions) (domain.Generation, error) {
	req := chatRequest{Model: c.model, MaxTokens: opts.MaxTokens, Temperature: opts.Temperature}
	if opts.JSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	for _, m := range history {
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	b, err := json.Marshal(req)
	if err != nil {
		return domain.Generation{}, fmt.Errorf("op=sealion.Generate: %w", err)
	}

	body, err := ai.Do(ctx, c.hc, c.newBackoff(), Name, "chat.completions", func(ctx domain.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Authorization", "Bearer "+c.apiKey)
		r.Header.Set("Content-Type", "application/json")
		return r, nil
	})
	if err != nil {
		return domain.Generation{}, domain.NewProviderError(Name, "chat.completions", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Generation{}, domain.NewProviderError(Name, "chat.completions", fmt.Errorf("decode response: %w", err))
	}
	if len(resp.Choices) == 0 {
		return domain.Generation{}, domain.NewProviderError(Name, "chat.completions", errors.New("no choices in response"))
	}
	gen := domain.Generation{
		Text:  strings.TrimSpace(textx.StripReasoning(resp.Choices[0].Message.Content)),
		Model: resp.Model,
	}
	if resp.Usage != nil && resp.Usage.TotalTokens > 0 {
		gen.Usage = &domain.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return gen, nil
}
