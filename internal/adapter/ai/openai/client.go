// Package openai is the OpenAI chat-completions backend.
package openai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// Name identifies this backend in the failover chain and metrics.
const Name = "openai"

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	MaxRetries int
	Timeout    time.Duration
}

// Client implements domain.ModelProvider over the chat-completions API.
type Client struct {
	client openaigo.Client
	model  string
}

// New builds a client. APIKey is required.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("op=openai.New: %w: api key is required", domain.ErrInvalidArgument)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = ai.NewHTTPClient(Name, opts.Timeout)
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(opts.APIKey)),
		option.WithHTTPClient(hc),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")+"/"))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	return &Client{client: openaigo.NewClient(reqOpts...), model: opts.Model}, nil
}

// Generate implements domain.ModelProvider.
func (c *Client) Generate(ctx domain.Context, history []domain.ChatMessage, opts domain.GenerateOptions) (domain.Generation, error) {
	params := openaigo.ChatCompletionNewParams{
		Model:    openaigo.ChatModel(c.model),
		Messages: toMessages(history),
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openaigo.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openaigo.Float(opts.Temperature)
	}
	if opts.JSON {
		params.ResponseFormat = openaigo.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return domain.Generation{}, domain.NewProviderError(Name, "chat.completions", mapError(err))
	}
	if resp == nil || len(resp.Choices) == 0 {
		return domain.Generation{}, domain.NewProviderError(Name, "chat.completions", errors.New("no choices in response"))
	}

	gen := domain.Generation{
		Text:  strings.TrimSpace(textx.StripReasoning(resp.Choices[0].Message.Content)),
		Model: resp.Model,
	}
	if resp.Usage.TotalTokens > 0 {
		gen.Usage = &domain.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		}
	}
	return gen, nil
}

func toMessages(history []domain.ChatMessage) []openaigo.ChatCompletionMessageParamUnion {
	out := make([]openaigo.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case domain.RoleSystem:
			out = append(out, openaigo.SystemMessage(m.Content))
		case domain.RoleAssistant:
			out = append(out, openaigo.AssistantMessage(m.Content))
		default:
			out = append(out, openaigo.UserMessage(m.Content))
		}
	}
	return out
}

// mapError turns SDK API errors into ai.StatusError so throttling is
// recognised by the failover chain.
func mapError(err error) error {
	var apiErr *openaigo.Error
	if errors.As(err, &apiErr) {
		return &ai.StatusError{Status: apiErr.StatusCode, Body: apiErr.Message}
	}
	return err
}
