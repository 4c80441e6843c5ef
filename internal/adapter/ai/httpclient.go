// Package ai provides model and speech provider adapters and the failover
// composition used by the application.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// NewHTTPClient returns a client whose transport emits a span per provider call.
func NewHTTPClient(provider string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return provider + " " + r.Method + " " + r.URL.Path
			}),
		),
	}
}

// NewBackoff builds the retry policy for provider HTTP calls from config.
func NewBackoff(cfg config.Config) *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

// Unwrap maps throttling to ErrUpstreamRateLimit.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusTooManyRequests {
		return domain.ErrUpstreamRateLimit
	}
	return nil
}

// Do sends the request built by newReq, retrying 429, 5xx and transport
// errors with expo while other 4xx fail immediately. newReq is called on
// every attempt so bodies are never reused.
func Do(ctx context.Context, hc *http.Client, expo backoff.BackOff, provider, op string, newReq func(context.Context) (*http.Request, error)) ([]byte, error) {
	var body []byte
	attempt := func() error {
		req, err := newReq(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		b, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body = b
			return nil
		}
		snippet := string(b)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		serr := &StatusError{Status: resp.StatusCode, Body: snippet}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			slog.Warn("ai provider rate limited", slog.String("provider", provider), slog.String("op", op), slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return serr
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			slog.Warn("ai provider 4xx", slog.String("provider", provider), slog.String("op", op), slog.Int("status", resp.StatusCode), slog.String("body", snippet))
			return backoff.Permanent(serr)
		default:
			slog.Error("ai provider non-2xx", slog.String("provider", provider), slog.String("op", op), slog.Int("status", resp.StatusCode), slog.String("body", snippet))
			return serr
		}
	}
	if err := backoff.Retry(attempt, backoff.WithContext(expo, ctx)); err != nil {
		return nil, Classify(ctx, err)
	}
	return body, nil
}

// Classify maps deadline errors to ErrUpstreamTimeout so callers can tell
// them apart from other provider failures.
func Classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	return err
}
