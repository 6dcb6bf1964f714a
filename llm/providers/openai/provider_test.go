package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BaSui01/replybroker/llm"
	"github.com/BaSui01/replybroker/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewOpenAIProvider_Defaults(t *testing.T) {
	p := NewOpenAIProvider(providers.OpenAIConfig{}, llm.ModelDescriptor{ID: llm.LegacyOpenAIModelID}, nil)
	assert.Equal(t, defaultBaseURL, p.Cfg.BaseURL)
	assert.Equal(t, "gpt-4o", p.Cfg.Model)
	assert.Equal(t, "/v1/models", p.Cfg.ProbePath)
	assert.Equal(t, "sk-", p.Cfg.CredentialPrefix)
	assert.Equal(t, "openai", p.Cfg.ProviderName)
}

func TestOpenAIProvider_OrganizationHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "org-123", r.Header.Get("OpenAI-Organization"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer sk-"))
		_, _ = w.Write([]byte(`{"choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"哈哈"}}]}`))
	}))
	defer srv.Close()

	cfg := providers.OpenAIConfig{
		BaseProviderConfig: providers.BaseProviderConfig{BaseURL: srv.URL},
		Organization:       "org-123",
	}
	p := NewOpenAIProvider(cfg, llm.ModelDescriptor{ID: llm.LegacyOpenAIModelID}, zap.NewNop(),
		providers.WithHTTPClient(srv.Client()))

	text, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: "sk-" + strings.Repeat("z", 40)})
	require.NoError(t, err)
	assert.Equal(t, "哈哈", text)
}

func TestOpenAIProvider_QuotaOn403(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	cfg := providers.OpenAIConfig{BaseProviderConfig: providers.BaseProviderConfig{BaseURL: srv.URL}}
	p := NewOpenAIProvider(cfg, llm.ModelDescriptor{ID: llm.LegacyOpenAIModelID}, nil,
		providers.WithHTTPClient(srv.Client()))

	_, err := p.Call(context.Background(), &llm.ReplyRequest{PostText: "x", Credential: "sk-" + strings.Repeat("z", 40)})
	assert.Equal(t, llm.KindQuotaExceeded, llm.KindOf(err))
}
