package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerRoundTrip(t *testing.T) {
	t.Parallel()
	lg := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	base := context.Background()

	ctx := ContextWithLogger(base, lg)
	assert.Same(t, lg, LoggerFromContext(ctx))
	assert.Equal(t, base, ContextWithLogger(base, nil))
	assert.Same(t, slog.Default(), LoggerFromContext(base))
}

func TestRequestAndSessionIDs(t *testing.T) {
	t.Parallel()
	base := context.Background()
	assert.Empty(t, RequestIDFromContext(base))
	assert.Empty(t, SessionIDFromContext(base))
	assert.Equal(t, base, ContextWithRequestID(base, ""))
	assert.Equal(t, base, ContextWithSessionID(base, ""))

	ctx := ContextWithSessionID(ContextWithRequestID(base, "01HZX"), "sess-1")
	assert.Equal(t, "01HZX", RequestIDFromContext(ctx))
	assert.Equal(t, "sess-1", SessionIDFromContext(ctx))
}

func TestLoggerFromContext_AddsSessionID(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	lg := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := ContextWithSessionID(ContextWithLogger(context.Background(), lg), "sess-9")

	LoggerFromContext(ctx).Info("hello")
	assert.Contains(t, buf.String(), `"session_id":"sess-9"`)
}
