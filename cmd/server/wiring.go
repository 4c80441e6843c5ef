package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cenkalti/backoff/v4"

	ai "github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/bedrock"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/openai"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/sealion"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/speech"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/stub"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/memory"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-coach/internal/app"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

type storage struct {
	sessions  domain.SessionRepository
	messages  domain.MessageRepository
	questions domain.QuestionRepository
	jobDescs  domain.JobDescriptionRepository
	pinger    app.Pinger
	cleanup   *postgres.CleanupService
	close     func()
}

func openStorage(ctx context.Context, cfg config.Config) (storage, error) {
	if cfg.UseMemoryStorage() {
		slog.Warn("using in-memory storage; sessions are lost on restart")
		st := memory.NewStore()
		return storage{
			sessions:  st.Sessions,
			messages:  st.Messages,
			questions: st.Questions,
			jobDescs:  st.JobDescs,
			close:     func() {},
		}, nil
	}
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return storage{}, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return storage{}, err
	}
	return storage{
		sessions:  postgres.NewSessionRepo(pool),
		messages:  postgres.NewMessageRepo(pool),
		questions: postgres.NewQuestionRepo(pool),
		jobDescs:  postgres.NewJobDescriptionRepo(pool),
		pinger:    pool,
		cleanup:   postgres.NewCleanupService(pool, cfg.DataRetentionDays),
		close:     pool.Close,
	}, nil
}

// buildBackends resolves AI_PROVIDER_ORDER. Backends without credentials
// are skipped; an empty chain falls back to the stub outside prod.
func buildBackends(ctx context.Context, cfg config.Config) ([]ai.Backend, error) {
	newBackoff := func() backoff.BackOff { return ai.NewBackoff(cfg) }
	var out []ai.Backend
	for _, name := range cfg.AIProviderOrder {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case openai.Name:
			if cfg.OpenAIAPIKey == "" {
				slog.Warn("skipping openai backend; OPENAI_API_KEY not set")
				continue
			}
			c, err := openai.New(openai.Options{
				APIKey:     cfg.OpenAIAPIKey,
				BaseURL:    cfg.OpenAIBaseURL,
				Model:      cfg.OpenAIModel,
				HTTPClient: ai.NewHTTPClient(openai.Name, 0),
				MaxRetries: 2,
				Timeout:    cfg.AICallTimeout,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, ai.Backend{Name: name, Model: cfg.OpenAIModel, Provider: c})
		case "sealion":
			if cfg.SeaLionAPIKey == "" {
				slog.Warn("skipping sealion backend; SEALION_API_KEY not set")
				continue
			}
			c, err := sealion.New(cfg.SeaLionBaseURL, cfg.SeaLionAPIKey, cfg.SeaLionModel, ai.NewHTTPClient(name, 0), newBackoff)
			if err != nil {
				return nil, err
			}
			out = append(out, ai.Backend{Name: name, Model: cfg.SeaLionModel, Provider: c})
		case "bedrock":
			if !cfg.BedrockEnabled {
				slog.Warn("skipping bedrock backend; BEDROCK_ENABLED is false")
				continue
			}
			c, err := bedrock.NewFromRegion(ctx, cfg.BedrockRegion, cfg.BedrockModelID)
			if err != nil {
				return nil, err
			}
			out = append(out, ai.Backend{Name: name, Model: cfg.BedrockModelID, Provider: c})
		case "stub":
			out = append(out, ai.Backend{Name: name, Model: "stub", Provider: stub.New()})
		case "":
		default:
			return nil, fmt.Errorf("op=main.buildBackends: unknown provider %q", name)
		}
	}
	if len(out) == 0 {
		if cfg.IsProd() {
			return nil, fmt.Errorf("op=main.buildBackends: no model provider configured")
		}
		slog.Warn("no model provider configured; using stub backend")
		out = append(out, ai.Backend{Name: "stub", Model: "stub", Provider: stub.New()})
	}
	return out, nil
}

// buildSpeech returns nil when no OpenAI key is configured.
func buildSpeech(cfg config.Config) *speech.Client {
	if cfg.OpenAIAPIKey == "" {
		return nil
	}
	return speech.New(speech.Options{
		BaseURL:    cfg.OpenAIBaseURL,
		APIKey:     cfg.OpenAIAPIKey,
		STTModel:   cfg.SpeechModel,
		TTSModel:   cfg.TTSModel,
		HTTPClient: ai.NewHTTPClient(speech.Name, cfg.AICallTimeout),
		NewBackoff: func() backoff.BackOff { return ai.NewBackoff(cfg) },
	})
}
