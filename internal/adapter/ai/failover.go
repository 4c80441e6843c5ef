package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

// Backend is one named model provider in the failover chain.
type Backend struct {
	Name     string
	Model    string
	Provider domain.ModelProvider
}

// Limiter is the provider quota check, satisfied by ratelimiter.RedisLuaLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error)
}

// ErrNoBackend is returned when the chain is empty.
var ErrNoBackend = errors.New("no model backend configured")

// Failover tries backends in order. Each backend sits behind its own circuit
// breaker and quota bucket, and every call is bounded by timeout. The first
// success wins. A timeout ends the chain immediately.
type Failover struct {
	backends []Backend
	breakers map[string]*CircuitBreaker
	limiter  Limiter
	timeout  time.Duration
	counter  *tokencount.Counter
}

// NewFailover builds the chain. limiter may be nil.
func NewFailover(backends []Backend, limiter Limiter, timeout time.Duration) *Failover {
	f := &Failover{
		backends: backends,
		breakers: make(map[string]*CircuitBreaker, len(backends)),
		limiter:  limiter,
		timeout:  timeout,
		counter:  tokencount.DefaultCounter,
	}
	for _, b := range backends {
		f.breakers[b.Name] = NewCircuitBreaker(b.Name)
	}
	return f
}

// Names lists the configured backends in order.
func (f *Failover) Names() []string {
	out := make([]string, 0, len(f.backends))
	for _, b := range f.backends {
		out = append(out, b.Name)
	}
	return out
}

// Generate implements domain.ModelProvider.
func (f *Failover) Generate(ctx domain.Context, history []domain.ChatMessage, opts domain.GenerateOptions) (domain.Generation, error) {
	if len(f.backends) == 0 {
		return domain.Generation{}, domain.NewProviderError("failover", "generate", ErrNoBackend)
	}
	tracer := otel.Tracer("ai.failover")
	ctx, span := tracer.Start(ctx, "ai.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("ai.purpose", opts.Purpose), attribute.Int("ai.history_len", len(history)))

	lg := obsctx.LoggerFromContext(ctx)
	var lastErr error
	for _, b := range f.backends {
		if f.limiter != nil {
			ok, retryAfter, err := f.limiter.Allow(ctx, b.Name, 1)
			if err != nil {
				lg.Warn("provider quota check failed", slog.String("provider", b.Name), slog.Any("error", err))
			}
			if !ok {
				lg.Warn("provider quota exhausted", slog.String("provider", b.Name), slog.Duration("retry_after", retryAfter))
				lastErr = fmt.Errorf("%s: %w (retry after %s)", b.Name, domain.ErrUpstreamRateLimit, retryAfter)
				continue
			}
		}
		cb := f.breakers[b.Name]
		if !cb.ShouldAttempt() {
			lastErr = fmt.Errorf("%s: circuit open", b.Name)
			continue
		}

		gen, err := f.call(ctx, b, history, opts)
		if err == nil {
			cb.RecordSuccess()
			span.SetAttributes(attribute.String("ai.provider", b.Name))
			return gen, nil
		}
		cb.RecordFailure()
		lastErr = err
		lg.Warn("provider call failed", slog.String("provider", b.Name), slog.String("purpose", opts.Purpose), slog.Any("error", err))
		if errors.Is(err, domain.ErrUpstreamTimeout) || ctx.Err() != nil {
			break
		}
	}
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "all providers failed")
	return domain.Generation{}, domain.NewProviderError("failover", opts.Purpose, lastErr)
}

func (f *Failover) call(ctx context.Context, b Backend, history []domain.ChatMessage, opts domain.GenerateOptions) (domain.Generation, error) {
	callCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	start := time.Now()
	gen, err := b.Provider.Generate(callCtx, history, opts)
	if err == nil && gen.Text == "" {
		err = errors.New("empty completion")
	}
	if err != nil {
		err = Classify(callCtx, err)
		observability.ObserveAIRequest(b.Name, opts.Purpose, time.Since(start), failureReason(err))
		return domain.Generation{}, err
	}
	observability.ObserveAIRequest(b.Name, opts.Purpose, time.Since(start), "")

	gen.Provider = b.Name
	if gen.Model == "" {
		gen.Model = b.Model
	}
	if gen.Usage == nil {
		u := f.counter.EstimateUsage(history, gen.Text, gen.Model)
		gen.Usage = &u
	}
	observability.ObserveTokens(b.Name, gen.Usage.PromptTokens, gen.Usage.CompletionTokens)
	return gen, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrUpstreamRateLimit):
		return "rate_limit"
	default:
		return "error"
	}
}
