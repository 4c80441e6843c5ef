// Package observability carries request-scoped logging state through context.
package observability

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	sessionIDKey
)

// ContextWithLogger attaches lg to ctx. A nil logger leaves ctx unchanged.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	if lg == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, lg)
}

// LoggerFromContext returns the request logger, falling back to slog.Default.
// A session id stored with ContextWithSessionID is added as an attribute.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	lg := slog.Default()
	if v, ok := ctx.Value(loggerKey).(*slog.Logger); ok && v != nil {
		lg = v
	}
	if sid := SessionIDFromContext(ctx); sid != "" {
		lg = lg.With(slog.String("session_id", sid))
	}
	return lg
}

// ContextWithRequestID stores the HTTP request id for provider and event logs.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the stored request id or "".
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// ContextWithSessionID tags ctx with the practice session being handled.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext returns the stored session id or "".
func SessionIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}
