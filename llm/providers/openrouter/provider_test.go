package openrouter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/BaSui01/replybroker/llm"
	"github.com/BaSui01/replybroker/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var validKey = "sk-or-v1-" + strings.Repeat("f", 40)

func TestOpenRouterProvider_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer "+validKey, r.Header.Get("Authorization"))
		assert.Equal(t, "https://github.com/SR0725/threads-helper", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "Threads Viral Detector", r.Header.Get("X-Title"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "x-ai/grok-code-fast-1", body["model"])

		_, _ = w.Write([]byte(`{"choices":[{"finish_reason":"stop","message":{"content":"笑死"}}]}`))
	}))
	defer srv.Close()

	desc := llm.OpenRouterModel(llm.DefaultModelID, "Grok Code Fast 1", false)
	cfg := providers.OpenRouterConfig{BaseProviderConfig: providers.BaseProviderConfig{BaseURL: srv.URL}}
	p := NewOpenRouterProvider(cfg, desc, zap.NewNop(), providers.WithHTTPClient(srv.Client()))

	text, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: validKey})
	require.NoError(t, err)
	assert.Equal(t, "笑死", text)
	assert.Equal(t, desc, p.Descriptor())
}

func TestOpenRouterProvider_InsufficientBalance(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"Insufficient credits","code":402}}`))
	}))
	defer srv.Close()

	cfg := providers.OpenRouterConfig{BaseProviderConfig: providers.BaseProviderConfig{BaseURL: srv.URL}}
	p := NewOpenRouterProvider(cfg, llm.OpenRouterModel("openai/gpt-5.2", "OpenAI GPT-5.2", true), nil,
		providers.WithHTTPClient(srv.Client()))

	_, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: validKey})
	assert.Equal(t, llm.KindQuotaExceeded, llm.KindOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenRouterProvider_NeverProbes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"choices":[{"finish_reason":"stop","message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	cfg := providers.OpenRouterConfig{BaseProviderConfig: providers.BaseProviderConfig{BaseURL: srv.URL, Probe: true}}
	p := NewOpenRouterProvider(cfg, llm.OpenRouterModel("a/b", "AB", false), nil, providers.WithHTTPClient(srv.Client()))
	_, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: validKey})
	require.NoError(t, err)
}
