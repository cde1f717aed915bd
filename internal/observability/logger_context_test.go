package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextWithLoggerAndLoggerFromContext(t *testing.T) {
	lg := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	base := context.Background()

	ctx := ContextWithLogger(base, lg)
	assert.NotEqual(t, base, ctx)
	assert.Same(t, lg, LoggerFromContext(ctx))

	assert.Equal(t, base, ContextWithLogger(base, nil))
	assert.NotNil(t, LoggerFromContext(base))
}

func TestRequestID(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))

	base := context.Background()
	assert.Equal(t, base, ContextWithRequestID(base, ""))
}

func TestWithSession_AddsLoggerField(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx = WithSession(ctx, "sess-1")
	LoggerFromContext(ctx).Info("turn")

	assert.Equal(t, "sess-1", SessionIDFromContext(ctx))
	assert.Contains(t, buf.String(), `"session_id":"sess-1"`)
	assert.Equal(t, "", SessionIDFromContext(context.Background()))
}
