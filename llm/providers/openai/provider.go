package openai

import (
	"net/http"

	"github.com/BaSui01/replybroker/llm"
	"github.com/BaSui01/replybroker/llm/providers"
	"github.com/BaSui01/replybroker/llm/providers/openaicompat"
	"go.uber.org/zap"
)

const (
	defaultBaseURL   = "https://api.openai.com"
	defaultModel     = "gpt-4o"
	credentialPrefix = providers.OpenAIKeyPrefix
	credentialMinLen = providers.OpenAIKeyMinLen
)

// OpenAIProvider 直连 OpenAI Chat Completions API。
type OpenAIProvider struct {
	*openaicompat.Provider
}

// NewOpenAIProvider 创建 OpenAI Provider
func NewOpenAIProvider(cfg providers.OpenAIConfig, desc llm.ModelDescriptor, logger *zap.Logger, opts ...providers.Option) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	var buildHeaders func(*http.Request)
	if cfg.Organization != "" {
		org := cfg.Organization
		buildHeaders = func(r *http.Request) { r.Header.Set("OpenAI-Organization", org) }
	}

	return &OpenAIProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:     string(llm.VendorOpenAI),
			BaseURL:          cfg.BaseURL,
			Model:            cfg.Model,
			ProbePath:        "/v1/models",
			CredentialPrefix: credentialPrefix,
			CredentialMinLen: credentialMinLen,
			BuildHeaders:     buildHeaders,
			Base:             cfg.BaseProviderConfig,
		}, desc, logger, opts...),
	}
}

var _ llm.Provider = (*OpenAIProvider)(nil)
