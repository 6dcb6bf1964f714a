package openrouter

import (
	"net/http"

	"github.com/BaSui01/replybroker/llm"
	"github.com/BaSui01/replybroker/llm/providers"
	"github.com/BaSui01/replybroker/llm/providers/openaicompat"
	"go.uber.org/zap"
)

const (
	defaultBaseURL   = "https://openrouter.ai"
	endpointPath     = "/api/v1/chat/completions"
	defaultReferer   = "https://github.com/SR0725/threads-helper"
	defaultTitle     = "Threads Viral Detector"
	credentialPrefix = providers.OpenRouterKeyPrefix
	credentialMinLen = providers.OpenRouterKeyMinLen
)

// OpenRouterProvider 经 OpenRouter 聚合网关调用任意上游模型。
// 上游模型名即模型 ID，不做探测（聚合网关本身始终可达）。
type OpenRouterProvider struct {
	*openaicompat.Provider
}

// NewOpenRouterProvider 创建 OpenRouter Provider
func NewOpenRouterProvider(cfg providers.OpenRouterConfig, desc llm.ModelDescriptor, logger *zap.Logger, opts ...providers.Option) *OpenRouterProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Referer == "" {
		cfg.Referer = defaultReferer
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	referer, title := cfg.Referer, cfg.Title

	return &OpenRouterProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:     string(llm.VendorOpenRouter),
			BaseURL:          cfg.BaseURL,
			Model:            desc.ID,
			EndpointPath:     endpointPath,
			CredentialPrefix: credentialPrefix,
			CredentialMinLen: credentialMinLen,
			BuildHeaders: func(r *http.Request) {
				r.Header.Set("HTTP-Referer", referer)
				r.Header.Set("X-Title", title)
			},
			Base: cfg.BaseProviderConfig,
		}, desc, logger, opts...),
	}
}

var _ llm.Provider = (*OpenRouterProvider)(nil)
