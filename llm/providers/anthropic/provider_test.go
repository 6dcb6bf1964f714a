package claude

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

var validKey = "sk-ant-" + strings.Repeat("a", 40)

func newTestProvider(srv *httptest.Server, sleeps *[]time.Duration) *ClaudeProvider {
	desc := llm.ModelDescriptor{ID: llm.LegacyClaudeModelID, DisplayName: "Claude 3 Haiku", Vendor: llm.VendorClaude, SupportsVision: true}
	cfg := providers.ClaudeConfig{BaseProviderConfig: providers.BaseProviderConfig{BaseURL: srv.URL}}
	return NewClaudeProvider(cfg, desc, zap.NewNop(),
		providers.WithHTTPClient(srv.Client()),
		providers.WithSleeper(func(_ context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return nil
		}))
}

func message(stop string, content ...map[string]any) string {
	b, _ := json.Marshal(map[string]any{
		"id": "msg_1", "type": "message", "role": "assistant",
		"content": content, "stop_reason": stop,
	})
	return string(b)
}

func TestCall_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, validKey, r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.Empty(t, r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body claudeRequest
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "claude-3-haiku-20240307", body.Model)
		assert.Equal(t, 200, body.MaxTokens)
		assert.Equal(t, providers.SystemInstruction, body.System)
		require.Len(t, body.Messages, 1)
		content := body.Messages[0].Content
		require.Len(t, content, 2)
		assert.Equal(t, "text", content[0].Type)
		assert.Equal(t, "image", content[1].Type)
		require.NotNil(t, content[1].Source)
		assert.Equal(t, "url", content[1].Source.Type)
		assert.Equal(t, "https://img/x.jpg", content[1].Source.URL)

		_, _ = w.Write([]byte(message("end_turn",
			map[string]any{"type": "thinking", "text": "hmm"},
			map[string]any{"type": "text", "text": "\"真的很有感\""},
		)))
	}))
	defer srv.Close()

	var sleeps []time.Duration
	p := newTestProvider(srv, &sleeps)
	text, err := p.Call(context.Background(), &llm.ReplyRequest{
		PostText: "x", Credential: validKey, Images: []llm.Image{{URL: "https://img/x.jpg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "真的很有感", text)
}

func TestCall_StopReasons(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   llm.ErrorKind
		wantOK bool
		nCalls int32
	}{
		{"stop sequence is normal", message("stop_sequence", map[string]any{"type": "text", "text": "ok"}), "", true, 1},
		{"max tokens", message("max_tokens", map[string]any{"type": "text", "text": "半"}), llm.KindTruncatedOutput, false, 1},
		{"refusal", message("refusal"), llm.KindContentFiltered, false, 1},
		{"error envelope", `{"type":"error","error":{"type":"api_error","message":"oops"}}`, llm.KindUnknown, false, 1},
		{"no text block", message("end_turn", map[string]any{"type": "tool_use"}), llm.KindMalformedResponse, false, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var sleeps []time.Duration
			p := newTestProvider(srv, &sleeps)
			_, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: validKey})
			if tt.wantOK {
				require.NoError(t, err)
			} else {
				assert.Equal(t, tt.want, llm.KindOf(err))
			}
			assert.Equal(t, tt.nCalls, calls.Load())
		})
	}
}

func TestCall_OverloadedRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(529)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
			return
		}
		_, _ = w.Write([]byte(message("end_turn", map[string]any{"type": "text", "text": "ok"})))
	}))
	defer srv.Close()

	var sleeps []time.Duration
	p := newTestProvider(srv, &sleeps)
	_, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: validKey})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeps)
}

func TestCall_CredentialShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	var sleeps []time.Duration
	p := newTestProvider(srv, &sleeps)
	_, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: "sk-" + strings.Repeat("a", 40)})
	assert.Equal(t, llm.KindInvalidCredential, llm.KindOf(err))
}
