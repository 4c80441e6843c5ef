package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

const ttsKeyPrefix = "tts:"

// speechCacheClient wraps a SpeechProvider and caches synthesized audio in
// Redis keyed by voice and text. SpeechToText is passed through. Redis
// failures degrade to an uncached call.
type speechCacheClient struct {
	base domain.SpeechProvider
	rdb  redis.UniversalClient
	ttl  time.Duration
}

// NewSpeechCache wraps base with a Redis audio cache. If rdb is nil or ttl
// is not positive, base is returned unmodified.
func NewSpeechCache(base domain.SpeechProvider, rdb redis.UniversalClient, ttl time.Duration) domain.SpeechProvider {
	if base == nil || rdb == nil || ttl <= 0 {
		return base
	}
	return &speechCacheClient{base: base, rdb: rdb, ttl: ttl}
}

func (c *speechCacheClient) SpeechToText(ctx domain.Context, audio []byte, mimeHint string) (string, error) {
	return c.base.SpeechToText(ctx, audio, mimeHint)
}

func (c *speechCacheClient) TextToSpeech(ctx domain.Context, text, voiceID string) ([]byte, error) {
	lg := obsctx.LoggerFromContext(ctx)
	k := keyFor(voiceID, text)
	b, err := c.rdb.Get(ctx, k).Bytes()
	switch {
	case err == nil && len(b) > 0:
		return b, nil
	case err != nil && !errors.Is(err, redis.Nil):
		lg.Warn("tts cache get failed", slog.Any("error", err))
	}

	audio, err := c.base.TextToSpeech(ctx, text, voiceID)
	if err != nil {
		return nil, err
	}
	if err := c.rdb.Set(ctx, k, audio, c.ttl).Err(); err != nil {
		lg.Warn("tts cache set failed", slog.Any("error", err))
	}
	return audio, nil
}

func keyFor(voiceID, text string) string {
	h := sha256.Sum256([]byte(voiceID + "|" + strings.TrimSpace(text)))
	return ttsKeyPrefix + hex.EncodeToString(h[:])
}
