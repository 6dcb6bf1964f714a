// =============================================================================
// 🔌 OpenAI-Compatible Provider Base
// =============================================================================
// OpenAI 与 OpenRouter 共用的 chat-completions 实现。
// 各厂商包只覆盖差异部分（名称、BaseURL、密钥格式、请求头）。
// =============================================================================

package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/BaSui01/replybroker/llm"
	"github.com/BaSui01/replybroker/llm/providers"
	"go.uber.org/zap"
)

// Config holds the configuration for an OpenAI-compatible provider.
type Config struct {
	// ProviderName is the vendor tag used in errors and logs.
	ProviderName string

	// BaseURL is the base URL for the provider's API.
	BaseURL string

	// Model is the upstream model name sent in the request body.
	Model string

	// EndpointPath is the chat completions endpoint path. Defaults to "/v1/chat/completions".
	EndpointPath string

	// ProbePath is appended to BaseURL for the reachability probe. Empty disables probing.
	ProbePath string

	// CredentialPrefix and CredentialMinLen describe the accepted key shape.
	CredentialPrefix string
	CredentialMinLen int

	// BuildHeaders sets extra headers after the bearer token.
	BuildHeaders func(req *http.Request)

	// Base carries timeout and probe switches.
	Base providers.BaseProviderConfig
}

// Provider is the shared implementation for OpenAI-style vendors.
type Provider struct {
	Cfg     Config
	Desc    llm.ModelDescriptor
	Client  *http.Client
	Retrier *providers.Retrier
	Logger  *zap.Logger
}

// New creates a new OpenAI-compatible provider.
func New(cfg Config, desc llm.ModelDescriptor, logger *zap.Logger, opts ...providers.Option) *Provider {
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.Model == "" {
		cfg.Model = desc.ID
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := providers.BuildOptions(opts...)
	logger = logger.With(zap.String("provider", cfg.ProviderName), zap.String("model", desc.ID))
	return &Provider{
		Cfg:     cfg,
		Desc:    desc,
		Client:  o.Client,
		Retrier: providers.NewRetrier(cfg.ProviderName, o, logger),
		Logger:  logger,
	}
}

// Descriptor returns the model descriptor.
func (p *Provider) Descriptor() llm.ModelDescriptor { return p.Desc }

func (p *Provider) endpoint(path string) string {
	return strings.TrimRight(p.Cfg.BaseURL, "/") + path
}

// Call validates the credential, optionally probes the host and runs the
// completion under the shared retry policy.
func (p *Provider) Call(ctx context.Context, req *llm.ReplyRequest) (string, error) {
	if e := providers.CheckCredentialShape(req.Credential, p.Cfg.CredentialPrefix, p.Cfg.CredentialMinLen, p.Cfg.ProviderName); e != nil {
		return "", e
	}
	if p.Cfg.Base.Probe && p.Cfg.ProbePath != "" {
		if e := providers.Probe(ctx, p.Client, p.endpoint(p.Cfg.ProbePath), p.Cfg.ProviderName); e != nil {
			return "", e
		}
	}

	body := BuildRequest(p.Cfg.Model, req)
	apiKey := strings.TrimSpace(req.Credential)
	headers := func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+apiKey)
		if p.Cfg.BuildHeaders != nil {
			p.Cfg.BuildHeaders(r)
		}
	}

	return p.Retrier.Do(ctx, p.Desc.ID, func(ctx context.Context, attempt int) (string, error) {
		raw, e := providers.PostJSON(ctx, p.Client, p.endpoint(p.Cfg.EndpointPath), body, headers,
			p.Cfg.Base.RequestTimeoutOrDefault(), p.Cfg.ProviderName)
		if e != nil {
			return "", e
		}
		return ParseResponse(raw, p.Cfg.ProviderName)
	})
}

// BuildRequest 构造 chat-completions 请求体。有图片时用户消息变为多段内容。
func BuildRequest(model string, req *llm.ReplyRequest) Request {
	prompt := providers.FormatPrompt(req.PostText, req.StylePrompt)

	var userContent any = prompt
	if images := providers.LimitImages(req.Images); len(images) > 0 {
		parts := []ContentPart{{Type: "text", Text: prompt}}
		for _, img := range images {
			parts = append(parts, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: img.URL}})
		}
		userContent = parts
	}

	return Request{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: providers.SystemInstruction},
			{Role: "user", Content: userContent},
		},
		MaxTokens:        providers.MaxOutputTokens,
		Temperature:      providers.Temperature,
		TopP:             providers.TopP,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
	}
}

// ParseResponse 解析响应，把非正常 finish_reason 转为对应错误。
func ParseResponse(raw []byte, provider string) (string, error) {
	if e := providers.EnvelopeError(raw, provider); e != nil {
		return "", e
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", providers.ResponseError(llm.KindMalformedResponse, provider, fmt.Sprintf("decode response: %v", err))
	}
	if len(resp.Choices) == 0 {
		return "", providers.ResponseError(llm.KindMalformedResponse, provider, "response has no choices")
	}

	choice := resp.Choices[0]
	switch choice.FinishReason {
	case "content_filter":
		return "", providers.ResponseError(llm.KindContentFiltered, provider, "finish_reason=content_filter")
	case "length":
		return "", providers.ResponseError(llm.KindTruncatedOutput, provider, "finish_reason=length")
	}
	return providers.FinishText(choice.Message.Content, provider)
}
