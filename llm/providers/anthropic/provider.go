package claude

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

const (
	defaultBaseURL          = "https://api.anthropic.com"
	defaultModel            = "claude-3-haiku-20240307"
	defaultAnthropicVersion = "2023-06-01"
	credentialPrefix        = providers.ClaudeKeyPrefix
	credentialMinLen        = providers.ClaudeKeyMinLen
	providerName            = string(llm.VendorClaude)
)

// ClaudeProvider 实现 Anthropic Claude 的适配器
// 与 OpenAI 格式的差异：
// 1. 使用 x-api-key 与 anthropic-version 请求头
// 2. system 单独传递，content 为分段数组
// 3. stop_reason 为 max_tokens 时视为截断
type ClaudeProvider struct {
	cfg     providers.ClaudeConfig
	desc    llm.ModelDescriptor
	client  *http.Client
	retrier *providers.Retrier
	logger  *zap.Logger
}

// NewClaudeProvider 创建 Claude Provider
func NewClaudeProvider(cfg providers.ClaudeConfig, desc llm.ModelDescriptor, logger *zap.Logger, opts ...providers.Option) *ClaudeProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.AnthropicVersion == "" {
		cfg.AnthropicVersion = defaultAnthropicVersion
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := providers.BuildOptions(opts...)
	logger = logger.With(zap.String("provider", providerName), zap.String("model", desc.ID))

	return &ClaudeProvider{
		cfg:     cfg,
		desc:    desc,
		client:  o.Client,
		retrier: providers.NewRetrier(providerName, o, logger),
		logger:  logger,
	}
}

var _ llm.Provider = (*ClaudeProvider)(nil)

func (p *ClaudeProvider) Descriptor() llm.ModelDescriptor { return p.desc }

func (p *ClaudeProvider) baseURL() string { return strings.TrimRight(p.cfg.BaseURL, "/") }

func (p *ClaudeProvider) Call(ctx context.Context, req *llm.ReplyRequest) (string, error) {
	if e := providers.CheckCredentialShape(req.Credential, credentialPrefix, credentialMinLen, providerName); e != nil {
		return "", e
	}
	if p.cfg.Probe {
		if e := providers.Probe(ctx, p.client, p.baseURL(), providerName); e != nil {
			return "", e
		}
	}

	body := buildRequest(p.cfg.Model, req)
	apiKey := strings.TrimSpace(req.Credential)
	version := p.cfg.AnthropicVersion
	headers := func(r *http.Request) {
		r.Header.Set("x-api-key", apiKey)
		r.Header.Set("anthropic-version", version)
	}

	return p.retrier.Do(ctx, p.desc.ID, func(ctx context.Context, attempt int) (string, error) {
		raw, e := providers.PostJSON(ctx, p.client, p.baseURL()+"/v1/messages", body, headers,
			p.cfg.RequestTimeoutOrDefault(), providerName)
		if e != nil {
			return "", e
		}
		return parseResponse(raw)
	})
}

func buildRequest(model string, req *llm.ReplyRequest) claudeRequest {
	content := []claudeContent{{Type: "text", Text: providers.FormatPrompt(req.PostText, req.StylePrompt)}}
	for _, img := range providers.LimitImages(req.Images) {
		content = append(content, claudeContent{
			Type:   "image",
			Source: &claudeImageSource{Type: "url", URL: img.URL},
		})
	}
	return claudeRequest{
		Model:       model,
		System:      providers.SystemInstruction,
		Messages:    []claudeMessage{{Role: "user", Content: content}},
		MaxTokens:   providers.MaxOutputTokens,
		Temperature: providers.Temperature,
		TopP:        providers.TopP,
	}
}

func parseResponse(raw []byte) (string, error) {
	var resp claudeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", providers.ResponseError(llm.KindMalformedResponse, providerName, fmt.Sprintf("decode response: %v", err))
	}
	if resp.Type == "error" || resp.Error != nil {
		detail := "error envelope"
		if resp.Error != nil {
			detail = resp.Error.Type + ": " + resp.Error.Message
		}
		return "", providers.ResponseError(llm.KindUnknown, providerName, detail)
	}

	switch resp.StopReason {
	case "max_tokens":
		return "", providers.ResponseError(llm.KindTruncatedOutput, providerName, "stop_reason=max_tokens")
	case "refusal":
		return "", providers.ResponseError(llm.KindContentFiltered, providerName, "stop_reason=refusal")
	}

	for _, c := range resp.Content {
		if c.Type == "text" {
			return providers.FinishText(c.Text, providerName)
		}
	}
	return "", providers.ResponseError(llm.KindMalformedResponse, providerName, "response has no text content")
}
