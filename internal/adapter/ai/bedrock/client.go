// Package bedrock is the AWS Bedrock backend using Anthropic models through
// InvokeModel.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Name identifies this backend in the failover chain and metrics.
const Name = "bedrock"

const anthropicVersion = "bedrock-2023-05-31"

// synthetic first turn when history would otherwise start with the assistant
const continueTurn = "(The interview is starting. Please begin.)"

// Invoker is the subset of the bedrockruntime client used here.
type Invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client implements domain.ModelProvider.
type Client struct {
	api     Invoker
	modelID string
}

// New wraps an existing invoker.
func New(api Invoker, modelID string) *Client {
	return &Client{api: api, modelID: modelID}
}

// NewFromRegion loads AWS credentials from the default chain.
func NewFromRegion(ctx context.Context, region, modelID string) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("op=bedrock.NewFromRegion: %w", err)
	}
	return New(bedrockruntime.NewFromConfig(awsCfg), modelID), nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// buildRequest moves system messages into the system field, merges
// consecutive same-role turns and makes sure the first turn is the user's.
func buildRequest(history []domain.ChatMessage, opts domain.GenerateOptions) request {
	req := request{AnthropicVersion: anthropicVersion, MaxTokens: opts.MaxTokens}
	if req.MaxTokens <= 0 {
		req.MaxTokens = 1024
	}
	if opts.Temperature > 0 {
		t := opts.Temperature
		req.Temperature = &t
	}
	var system []string
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "assistant"
		}
		if n := len(req.Messages); n > 0 && req.Messages[n-1].Role == role {
			req.Messages[n-1].Content += "\n\n" + m.Content
			continue
		}
		req.Messages = append(req.Messages, message{Role: role, Content: m.Content})
	}
	if len(req.Messages) == 0 || req.Messages[0].Role != "user" {
		req.Messages = append([]message{{Role: "user", Content: continueTurn}}, req.Messages...)
	}
	req.System = strings.Join(system, "\n\n")
	return req
}

// Generate implements domain.ModelProvider.
func (c *Client) Generate(ctx domain.Context, history []domain.ChatMessage, opts domain.GenerateOptions) (domain.Generation, error) {
	body, err := json.Marshal(buildRequest(history, opts))
	if err != nil {
		return domain.Generation{}, fmt.Errorf("op=bedrock.Generate: %w", err)
	}
	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return domain.Generation{}, domain.NewProviderError(Name, "invoke_model", mapError(err))
	}

	var resp response
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return domain.Generation{}, domain.NewProviderError(Name, "invoke_model", fmt.Errorf("decode response: %w", err))
	}
	var sb strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return domain.Generation{}, domain.NewProviderError(Name, "invoke_model", errors.New("empty completion"))
	}
	gen := domain.Generation{Text: text, Model: c.modelID}
	if resp.Usage.InputTokens+resp.Usage.OutputTokens > 0 {
		gen.Usage = &domain.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		}
	}
	return gen, nil
}

// mapError tags throttling and model timeouts with the upstream sentinels.
func mapError(err error) error {
	var (
		throttled *types.ThrottlingException
		quota     *types.ServiceQuotaExceededException
		timeout   *types.ModelTimeoutException
	)
	switch {
	case errors.As(err, &throttled), errors.As(err, &quota):
		return fmt.Errorf("%w: %w", domain.ErrUpstreamRateLimit, err)
	case errors.As(err, &timeout):
		return fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	}
	return err
}
