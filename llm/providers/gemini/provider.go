package gemini

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
	defaultBaseURL   = "https://generativelanguage.googleapis.com"
	defaultModel     = "gemini-1.5-flash"
	credentialPrefix = providers.GeminiKeyPrefix
	credentialMinLen = providers.GeminiKeyMinLen
	providerName     = string(llm.VendorGemini)
)

// GeminiProvider 实现 Google Gemini 的适配器
// Gemini API 特点：
// 1. 使用 x-goog-api-key 请求头认证
// 2. 请求体为 contents + generationConfig，系统指令单独传递
// 3. 安全拦截体现在 finishReason 与 promptFeedback 中
type GeminiProvider struct {
	cfg     providers.GeminiConfig
	desc    llm.ModelDescriptor
	client  *http.Client
	retrier *providers.Retrier
	logger  *zap.Logger
}

// NewGeminiProvider 创建 Gemini Provider
func NewGeminiProvider(cfg providers.GeminiConfig, desc llm.ModelDescriptor, logger *zap.Logger, opts ...providers.Option) *GeminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := providers.BuildOptions(opts...)
	logger = logger.With(zap.String("provider", providerName), zap.String("model", desc.ID))

	return &GeminiProvider{
		cfg:     cfg,
		desc:    desc,
		client:  o.Client,
		retrier: providers.NewRetrier(providerName, o, logger),
		logger:  logger,
	}
}

var _ llm.Provider = (*GeminiProvider)(nil)

func (p *GeminiProvider) Descriptor() llm.ModelDescriptor { return p.desc }

func (p *GeminiProvider) baseURL() string { return strings.TrimRight(p.cfg.BaseURL, "/") }

func (p *GeminiProvider) Call(ctx context.Context, req *llm.ReplyRequest) (string, error) {
	if e := providers.CheckCredentialShape(req.Credential, credentialPrefix, credentialMinLen, providerName); e != nil {
		return "", e
	}
	if p.cfg.Probe {
		if e := providers.Probe(ctx, p.client, p.baseURL()+"/v1beta/models", providerName); e != nil {
			return "", e
		}
	}

	body := buildRequest(req)
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL(), p.cfg.Model)
	apiKey := strings.TrimSpace(req.Credential)
	headers := func(r *http.Request) { r.Header.Set("x-goog-api-key", apiKey) }

	return p.retrier.Do(ctx, p.desc.ID, func(ctx context.Context, attempt int) (string, error) {
		raw, e := providers.PostJSON(ctx, p.client, endpoint, body, headers, p.cfg.RequestTimeoutOrDefault(), providerName)
		if e != nil {
			return "", e
		}
		return parseResponse(raw)
	})
}

func buildRequest(req *llm.ReplyRequest) geminiRequest {
	parts := []geminiPart{{Text: providers.FormatPrompt(req.PostText, req.StylePrompt)}}
	for _, img := range providers.LimitImages(req.Images) {
		mime := img.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, geminiPart{FileData: &geminiFileData{MIMEType: mime, FileURI: img.URL}})
	}

	return geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: providers.SystemInstruction}}},
		Contents:          []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     providers.Temperature,
			TopK:            providers.TopK,
			TopP:            providers.TopP,
			MaxOutputTokens: providers.MaxOutputTokens,
		},
	}
}

// finishReason 中表示安全拦截的取值
var blockedReasons = map[string]bool{
	"SAFETY":             true,
	"RECITATION":         true,
	"BLOCKLIST":          true,
	"PROHIBITED_CONTENT": true,
	"SPII":               true,
}

func parseResponse(raw []byte) (string, error) {
	if e := providers.EnvelopeError(raw, providerName); e != nil {
		return "", e
	}
	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", providers.ResponseError(llm.KindMalformedResponse, providerName, fmt.Sprintf("decode response: %v", err))
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", providers.ResponseError(llm.KindContentFiltered, providerName, "blockReason="+resp.PromptFeedback.BlockReason)
		}
		return "", providers.ResponseError(llm.KindMalformedResponse, providerName, "response has no candidates")
	}

	cand := resp.Candidates[0]
	switch {
	case blockedReasons[cand.FinishReason]:
		return "", providers.ResponseError(llm.KindContentFiltered, providerName, "finishReason="+cand.FinishReason)
	case cand.FinishReason == "MAX_TOKENS":
		return "", providers.ResponseError(llm.KindTruncatedOutput, providerName, "finishReason=MAX_TOKENS")
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}
	return providers.FinishText(sb.String(), providerName)
}
