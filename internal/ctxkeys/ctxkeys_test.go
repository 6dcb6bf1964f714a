package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	_, ok := RequestID(ctx)
	assert.False(t, ok)

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithOperation(ctx, "GENERATE_REPLY")

	id, ok := RequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)

	trace, ok := TraceID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "trace-1", trace)

	op, ok := Operation(ctx)
	assert.True(t, ok)
	assert.Equal(t, "GENERATE_REPLY", op)
}

func TestContextKeys_EmptyValue(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	_, ok := RequestID(ctx)
	assert.False(t, ok)
}
