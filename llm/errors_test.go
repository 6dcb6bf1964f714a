package llm

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/BaSui01/replybroker/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKind_Terminal(t *testing.T) {
	terminal := map[ErrorKind]bool{
		KindInvalidCredential: true,
		KindQuotaExceeded:     true,
		KindRateLimited:       true,
		KindMissingCredential: true,
	}
	for _, k := range AllKinds() {
		t.Run(string(k), func(t *testing.T) {
			assert.Equal(t, terminal[k], k.Terminal())
		})
	}
}

func TestError_Retryable(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want bool
	}{
		{"network", &Error{Kind: KindNetworkError}, true},
		{"malformed", &Error{Kind: KindMalformedResponse}, true},
		{"unknown 5xx", &Error{Kind: KindUnknown, HTTPStatus: 502}, true},
		{"unknown 4xx", &Error{Kind: KindUnknown, HTTPStatus: 418}, false},
		{"content filtered", &Error{Kind: KindContentFiltered}, false},
		{"truncated", &Error{Kind: KindTruncatedOutput}, false},
		{"invalid credential", &Error{Kind: KindInvalidCredential, HTTPStatus: 401}, false},
		{"rate limited", &Error{Kind: KindRateLimited, HTTPStatus: 429}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Retryable())
		})
	}
}

func TestError_TerminalKindsNeverRetryable(t *testing.T) {
	for _, k := range AllKinds() {
		if !k.Terminal() {
			continue
		}
		for _, status := range []int{0, 400, 401, 429, 500, 503} {
			e := &Error{Kind: k, HTTPStatus: status}
			assert.False(t, e.Retryable(), "kind=%s status=%d", k, status)
		}
	}
}

func TestError_ErrorString(t *testing.T) {
	e := &Error{Kind: KindRateLimited, Message: "slow down", HTTPStatus: 429}
	assert.Equal(t, "rate_limited: slow down (status=429)", e.Error())

	e = NewError(KindMissingCredential, "no key", "")
	assert.Equal(t, "missing_credential: no key", e.Error())
}

func TestError_ToTypesError(t *testing.T) {
	e := &Error{Kind: KindQuotaExceeded, Message: "額度不足", Detail: `{"error":"quota"}`, Provider: "openai"}
	te := e.ToTypesError()

	assert.Equal(t, types.ErrQuotaExceeded, te.Code)
	assert.Equal(t, "額度不足", te.Message)
	assert.Equal(t, http.StatusPaymentRequired, te.HTTPStatus)
	assert.Equal(t, "openai", te.Provider)
	assert.False(t, te.Retryable)
	assert.NotContains(t, te.Message, "quota")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))

	wrapped := fmt.Errorf("call: %w", NewError(KindRateLimited, "x", ""))
	assert.Equal(t, KindRateLimited, KindOf(wrapped))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "gemini"))

	orig := NewError(KindContentFiltered, "blocked", "SAFETY")
	got := Wrap(fmt.Errorf("outer: %w", orig), "gemini")
	require.NotNil(t, got)
	assert.Same(t, orig, got)

	plain := Wrap(errors.New("socket closed"), "claude")
	assert.Equal(t, KindUnknown, plain.Kind)
	assert.Equal(t, "claude", plain.Provider)
	assert.Equal(t, "socket closed", plain.Detail)
}

func TestErrorKind_CodeAndStatusCoverAllKinds(t *testing.T) {
	for _, k := range AllKinds() {
		assert.NotEmpty(t, k.Code(), string(k))
		assert.GreaterOrEqual(t, k.HTTPStatus(), 400, string(k))
	}
}
