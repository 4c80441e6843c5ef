// Command server starts the AI interview practice HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	ai "github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	httpserver "github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/ai-interview-coach/internal/app"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(observability.SetupLogger(cfg))
	observability.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	// Redis backs the TTS cache and provider quotas; both fail open.
	var rdb redis.UniversalClient
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("op=main.redis: %w", err)
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()
		rdb = client
	}

	limiter := ratelimiter.NewRedisLuaLimiter(rdb, ratelimiter.BucketConfig{
		Capacity:   int64(cfg.AIQuotaCapacity),
		RefillRate: cfg.AIQuotaPerSecond,
	}, nil)
	backends, err := buildBackends(ctx, cfg)
	if err != nil {
		return err
	}
	model := ai.NewFailover(backends, limiter, cfg.AICallTimeout)
	slog.Info("model providers configured", slog.Any("order", model.Names()))

	var speech domain.SpeechProvider
	if sp := buildSpeech(cfg); sp != nil {
		speech = ai.NewSpeechCache(sp, rdb, cfg.TTSCacheTTL)
	} else {
		slog.Warn("speech provider disabled; OPENAI_API_KEY not set")
	}

	var events domain.EventPublisher = redpanda.Noop{}
	if cfg.EventsEnabled() {
		pub, err := redpanda.NewPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			slog.Error("event publisher unavailable; events disabled", slog.Any("error", err))
		} else {
			defer pub.Close()
			events = pub
		}
	}

	if st.cleanup != nil && st.cleanup.Enabled() {
		go st.cleanup.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started", slog.Int("retention_days", cfg.DataRetentionDays), slog.Duration("interval", cfg.CleanupInterval))
	}

	svc := usecase.NewInterviewService(usecase.Deps{
		Sessions:  st.sessions,
		Messages:  st.messages,
		Questions: st.questions,
		JobDescs:  st.jobDescs,
		Model:     model,
		Speech:    speech,
		Events:    events,
		Catalog:   catalog,
		Config:    cfg,
	})

	dbCheck, redisCheck := app.BuildReadinessChecks(st.pinger, rdb)
	srv := httpserver.NewServer(cfg, svc, dbCheck, redisCheck)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.BuildRouter(cfg, srv),
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("storage", cfg.StorageBackend))
		errCh <- srvHTTP.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("op=main.listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	return srvHTTP.Shutdown(shutdownCtx)
}
