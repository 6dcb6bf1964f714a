package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/replybroker/llm"
	"github.com/BaSui01/replybroker/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var validKey = "AIza" + strings.Repeat("x", 35)

func newTestProvider(srv *httptest.Server, sleeps *[]time.Duration, probe bool) *GeminiProvider {
	desc := llm.ModelDescriptor{ID: llm.LegacyGeminiModelID, DisplayName: "Google Gemini 1.5 Flash", Vendor: llm.VendorGemini, SupportsVision: true}
	cfg := providers.GeminiConfig{BaseProviderConfig: providers.BaseProviderConfig{BaseURL: srv.URL, Probe: probe}}
	return NewGeminiProvider(cfg, desc, zap.NewNop(),
		providers.WithHTTPClient(srv.Client()),
		providers.WithSleeper(func(_ context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return nil
		}))
}

func candidate(text, finish string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
			"finishReason": finish,
		}},
	})
	return string(b)
}

func TestCall_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, validKey, r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body geminiRequest
		require.NoError(t, json.Unmarshal(raw, &body))

		assert.Equal(t, 0.7, body.GenerationConfig.Temperature)
		assert.Equal(t, 40, body.GenerationConfig.TopK)
		assert.Equal(t, 0.95, body.GenerationConfig.TopP)
		assert.Equal(t, 200, body.GenerationConfig.MaxOutputTokens)
		require.NotNil(t, body.SystemInstruction)
		assert.Equal(t, providers.SystemInstruction, body.SystemInstruction.Parts[0].Text)

		require.Len(t, body.Contents, 1)
		parts := body.Contents[0].Parts
		require.Len(t, parts, 2)
		assert.Contains(t, parts[0].Text, "貼文內容：「今天好累」")
		require.NotNil(t, parts[1].FileData)
		assert.Equal(t, "image/png", parts[1].FileData.MIMEType)
		assert.Equal(t, "https://img/a.png", parts[1].FileData.FileURI)

		_, _ = w.Write([]byte(candidate("辛苦了\n早點休息", "STOP")))
	}))
	defer srv.Close()

	var sleeps []time.Duration
	p := newTestProvider(srv, &sleeps, false)
	text, err := p.Call(context.Background(), &llm.ReplyRequest{
		PostText: "今天好累", StylePrompt: "溫暖", Credential: validKey,
		Images: []llm.Image{{URL: "https://img/a.png", MIMEType: "image/png"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "辛苦了 早點休息", text)
}

func TestCall_RetryThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(candidate("好", "STOP")))
	}))
	defer srv.Close()

	var sleeps []time.Duration
	p := newTestProvider(srv, &sleeps, false)
	text, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: validKey})

	require.NoError(t, err)
	assert.Equal(t, "好", text)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeps)
}

func TestCall_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   llm.ErrorKind
		calls  int32
	}{
		{"invalid key", 400, `{"error":{"code":400,"message":"API key not valid.","status":"INVALID_ARGUMENT","details":[{"reason":"API_KEY_INVALID"}]}}`, llm.KindInvalidCredential, 1},
		{"unauthorized", 401, `{}`, llm.KindInvalidCredential, 1},
		{"quota", 403, `{"error":{"message":"Quota exceeded for quota metric"}}`, llm.KindQuotaExceeded, 1},
		{"rate limited", 429, `{"error":{"status":"RESOURCE_EXHAUSTED"}}`, llm.KindRateLimited, 1},
		{"server error exhausts", 503, `unavailable`, llm.KindNetworkError, 3},
		{"safety", 200, candidate("", "SAFETY"), llm.KindContentFiltered, 1},
		{"max tokens", 200, candidate("半", "MAX_TOKENS"), llm.KindTruncatedOutput, 1},
		{"prompt blocked", 200, `{"promptFeedback":{"blockReason":"SAFETY"}}`, llm.KindContentFiltered, 1},
		{"no candidates", 200, `{}`, llm.KindMalformedResponse, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var sleeps []time.Duration
			p := newTestProvider(srv, &sleeps, false)
			_, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: validKey})

			require.Error(t, err)
			assert.Equal(t, tt.want, llm.KindOf(err))
			assert.Equal(t, tt.calls, calls.Load())
		})
	}
}

func TestCall_CredentialShape(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
	defer srv.Close()

	var sleeps []time.Duration
	p := newTestProvider(srv, &sleeps, true)
	for _, key := range []string{"", "AIzaShort", "sk-" + strings.Repeat("x", 40)} {
		_, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: key})
		assert.Equal(t, llm.KindInvalidCredential, llm.KindOf(err), key)
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestCall_ProbeTreats404AsReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			assert.Equal(t, "/v1beta/models", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(candidate("ok", "STOP")))
	}))
	defer srv.Close()

	var sleeps []time.Duration
	p := newTestProvider(srv, &sleeps, true)
	text, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: validKey})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestNewGeminiProvider_Defaults(t *testing.T) {
	p := NewGeminiProvider(providers.GeminiConfig{}, llm.ModelDescriptor{ID: "gemini-1.5-flash"}, nil)
	assert.Equal(t, defaultBaseURL, p.cfg.BaseURL)
	assert.Equal(t, defaultModel, p.cfg.Model)
	assert.Equal(t, "gemini-1.5-flash", p.Descriptor().ID)
}
