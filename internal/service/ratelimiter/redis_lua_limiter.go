// Package ratelimiter enforces per-backend provider quotas with a Redis token bucket.
package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a call charged to key may proceed now.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// BucketConfig describes one token bucket.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

func (c BucketConfig) limited() bool { return c.Capacity > 0 && c.RefillRate > 0 }

// idleTTL is how long an untouched bucket lives: long enough to refill completely.
func (c BucketConfig) idleTTL() time.Duration {
	return time.Duration(float64(c.Capacity)/c.RefillRate*float64(time.Second)) + time.Minute
}

// RedisLuaLimiter keeps bucket state in Redis hashes updated atomically by a
// Lua script, so quotas hold across server replicas. It fails open.
type RedisLuaLimiter struct {
	rdb      redis.UniversalClient
	script   *redis.Script
	buckets  map[string]BucketConfig
	fallback BucketConfig
	now      func() time.Time
}

var _ Limiter = (*RedisLuaLimiter)(nil)

// NewRedisLuaLimiter returns nil when rdb is nil; a nil limiter allows everything.
// fallback applies to keys missing from buckets; a zero fallback means unlimited.
func NewRedisLuaLimiter(rdb redis.UniversalClient, fallback BucketConfig, buckets map[string]BucketConfig) *RedisLuaLimiter {
	if rdb == nil {
		return nil
	}
	own := make(map[string]BucketConfig, len(buckets))
	for k, v := range buckets {
		own[k] = v
	}
	return &RedisLuaLimiter{
		rdb:      rdb,
		script:   redis.NewScript(takeTokens),
		buckets:  own,
		fallback: fallback,
		now:      time.Now,
	}
}

// takeTokens refills the bucket for the elapsed milliseconds, then takes cost
// tokens if available. It replies {allowed, retry_after_ms}.
const takeTokens = `
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local state = redis.call("HMGET", KEYS[1], "tokens", "at")
local tokens = tonumber(state[1]) or capacity
local at = tonumber(state[2]) or now_ms
if now_ms > at then
  tokens = math.min(capacity, tokens + (now_ms - at) * rate / 1000)
end

local ok = 0
local wait_ms = 0
if tokens >= cost then
  ok = 1
  tokens = tokens - cost
else
  wait_ms = math.ceil((cost - tokens) * 1000 / rate)
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "at", tostring(now_ms))
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return {ok, wait_ms}
`

func (l *RedisLuaLimiter) bucket(key string) BucketConfig {
	if cfg, ok := l.buckets[key]; ok {
		return cfg
	}
	return l.fallback
}

// Allow charges cost tokens to key. Redis failures are logged and allowed.
func (l *RedisLuaLimiter) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	cfg := l.bucket(key)
	if !cfg.limited() {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}

	args := []any{cfg.Capacity, cfg.RefillRate, l.now().UnixMilli(), cost, cfg.idleTTL().Milliseconds()}
	reply, err := l.script.Run(ctx, l.rdb, []string{"quota:" + key}, args...).Int64Slice()
	if err != nil {
		slog.Error("provider quota check failed; allowing call", slog.String("key", key), slog.Any("error", err))
		return true, 0, fmt.Errorf("op=ratelimiter.Allow: %w", err)
	}
	if len(reply) != 2 {
		slog.Error("provider quota script returned unexpected reply", slog.String("key", key), slog.Any("reply", reply))
		return true, 0, nil
	}
	return reply[0] == 1, time.Duration(reply[1]) * time.Millisecond, nil
}
