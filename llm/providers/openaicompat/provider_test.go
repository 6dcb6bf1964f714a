package openaicompat

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

var validKey = "sk-" + strings.Repeat("k", 30)

type delays struct{ got []time.Duration }

func (d *delays) sleep(_ context.Context, dur time.Duration) error {
	d.got = append(d.got, dur)
	return nil
}

func okBody(content, finish string) string {
	b, _ := json.Marshal(map[string]any{
		"id":    "chatcmpl-1",
		"model": "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": finish,
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func newTestProvider(t *testing.T, srv *httptest.Server, d *delays, mutate func(*Config)) *Provider {
	t.Helper()
	cfg := Config{
		ProviderName:     "openai",
		BaseURL:          srv.URL,
		Model:            "gpt-4o",
		ProbePath:        "/v1/models",
		CredentialPrefix: "sk-",
		CredentialMinLen: 20,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	desc := llm.ModelDescriptor{ID: "gpt-4o", DisplayName: "OpenAI GPT-4o", Vendor: llm.VendorOpenAI, SupportsVision: true}
	return New(cfg, desc, zap.NewNop(),
		providers.WithHTTPClient(srv.Client()),
		providers.WithSleeper(d.sleep))
}

func TestNew_Defaults(t *testing.T) {
	desc := llm.OpenRouterModel("x/y", "XY", false)
	p := New(Config{ProviderName: "openrouter"}, desc, nil)
	require.NotNil(t, p)
	assert.Equal(t, "/v1/chat/completions", p.Cfg.EndpointPath)
	assert.Equal(t, "x/y", p.Cfg.Model)
	assert.Equal(t, desc, p.Descriptor())
	assert.NotNil(t, p.Client)
	assert.NotNil(t, p.Logger)
}

func TestCall_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer "+validKey, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))

		assert.Equal(t, "gpt-4o", body["model"])
		assert.Equal(t, float64(200), body["max_tokens"])
		assert.Equal(t, 0.7, body["temperature"])
		assert.Equal(t, 0.95, body["top_p"])
		assert.Contains(t, body, "frequency_penalty")
		assert.Contains(t, body, "presence_penalty")

		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		sys := msgs[0].(map[string]any)
		assert.Equal(t, "system", sys["role"])
		assert.Equal(t, providers.SystemInstruction, sys["content"])
		user := msgs[1].(map[string]any)
		assert.Equal(t, "user", user["role"])
		assert.Contains(t, user["content"], "午餐吃什麼好猶豫")

		_, _ = w.Write([]byte(okBody("「附近那間拉麵店你吃過了嗎？」", "stop")))
	}))
	defer srv.Close()

	p := newTestProvider(t, srv, &delays{}, nil)
	text, err := p.Call(context.Background(), &llm.ReplyRequest{
		PostText: "午餐吃什麼好猶豫", StylePrompt: "提問", Credential: validKey,
	})
	require.NoError(t, err)
	assert.Equal(t, "附近那間拉麵店你吃過了嗎？", text)
}

func TestCall_ImagesBecomeContentParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var generic struct {
			Messages []struct {
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(raw, &generic))
		require.Len(t, generic.Messages, 2)
		var parts []ContentPart
		require.NoError(t, json.Unmarshal(generic.Messages[1].Content, &parts))
		require.Len(t, parts, 3)
		assert.Equal(t, "text", parts[0].Type)
		assert.Equal(t, "image_url", parts[1].Type)
		assert.Equal(t, "https://img/1.jpg", parts[1].ImageURL.URL)
		assert.Equal(t, "https://img/2.jpg", parts[2].ImageURL.URL)
		_, _ = w.Write([]byte(okBody("好看", "stop")))
	}))
	defer srv.Close()

	p := newTestProvider(t, srv, &delays{}, nil)
	_, err := p.Call(context.Background(), &llm.ReplyRequest{
		PostText: "看圖", Credential: validKey,
		Images: []llm.Image{{URL: "https://img/1.jpg"}, {URL: "https://img/2.jpg"}, {URL: "https://img/3.jpg"}},
	})
	require.NoError(t, err)
}

func TestCall_RetriesServerErrorsWithLinearBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		_, _ = w.Write([]byte(okBody("成功了", "stop")))
	}))
	defer srv.Close()

	d := &delays{}
	p := newTestProvider(t, srv, d, nil)
	text, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: validKey})

	require.NoError(t, err)
	assert.Equal(t, "成功了", text)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, d.got)
}

func TestCall_UnauthorizedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	d := &delays{}
	p := newTestProvider(t, srv, d, nil)
	_, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: validKey})

	require.Error(t, err)
	assert.Equal(t, llm.KindInvalidCredential, llm.KindOf(err))
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, d.got)
}

func TestCall_BadCredentialShapeMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv, &delays{}, func(c *Config) { c.Base.Probe = true })
	_, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: "nope"})

	assert.Equal(t, llm.KindInvalidCredential, llm.KindOf(err))
	assert.Equal(t, int32(0), calls.Load())
}

func TestCall_FinishReasons(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   llm.ErrorKind
		nCalls int32
	}{
		{"content filter", okBody("", "content_filter"), llm.KindContentFiltered, 1},
		{"length", okBody("半句話", "length"), llm.KindTruncatedOutput, 1},
		{"error envelope", `{"error":{"message":"provider returned error","code":502}}`, llm.KindUnknown, 1},
		{"no choices", `{"choices":[]}`, llm.KindMalformedResponse, 3},
		{"empty text", okBody("  ", "stop"), llm.KindMalformedResponse, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := newTestProvider(t, srv, &delays{}, nil)
			_, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: validKey})
			assert.Equal(t, tt.want, llm.KindOf(err))
			assert.Equal(t, tt.nCalls, calls.Load())
		})
	}
}

func TestCall_ProbeFailureStopsBeforeCompletion(t *testing.T) {
	var completions atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/models" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		completions.Add(1)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv, &delays{}, func(c *Config) { c.Base.Probe = true })
	_, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: validKey})

	assert.Equal(t, llm.KindNetworkError, llm.KindOf(err))
	assert.Equal(t, int32(0), completions.Load())
}

func TestCall_ExtraHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yes", r.Header.Get("X-Extra"))
		_, _ = w.Write([]byte(okBody("ok", "stop")))
	}))
	defer srv.Close()

	p := newTestProvider(t, srv, &delays{}, func(c *Config) {
		c.BuildHeaders = func(r *http.Request) { r.Header.Set("X-Extra", "yes") }
	})
	_, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: validKey})
	require.NoError(t, err)
}
