package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("openai")

	assert.Equal(t, ErrUpstreamError, GetErrorCode(err))
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, root)
	assert.Equal(t, "[UPSTREAM_ERROR] upstream failed: root", err.Error())
	assert.Equal(t, "openai", err.Provider)
}

func TestError_WrappedLookup(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrMissingCredential, "missing key")
	wrapped := fmt.Errorf("generate: %w", inner)

	got, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Same(t, inner, got)
	assert.Equal(t, ErrMissingCredential, GetErrorCode(wrapped))
	assert.False(t, IsRetryable(wrapped))
}

func TestError_PlainErrors(t *testing.T) {
	t.Parallel()

	plain := errors.New("boom")
	_, ok := AsError(plain)
	assert.False(t, ok)
	assert.Equal(t, ErrorCode(""), GetErrorCode(plain))
	assert.Equal(t, "[INVALID_REQUEST] bad", NewError(ErrInvalidRequest, "bad").Error())
}
