package llm

import (
	"context"
	"fmt"
	"strings"
)

// Vendor 是适配器变体标签（封闭集合）。
type Vendor string

const (
	VendorGemini     Vendor = "gemini"
	VendorOpenAI     Vendor = "openai"
	VendorClaude     Vendor = "claude"
	VendorOpenRouter Vendor = "openrouter"
)

// Vendors 返回全部厂商，顺序固定。
func Vendors() []Vendor {
	return []Vendor{VendorGemini, VendorOpenAI, VendorClaude, VendorOpenRouter}
}

// ParseVendor 解析厂商名，兼容 anthropic / google 别名。
func ParseVendor(s string) (Vendor, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gemini", "google":
		return VendorGemini, true
	case "openai":
		return VendorOpenAI, true
	case "claude", "anthropic":
		return VendorClaude, true
	case "openrouter":
		return VendorOpenRouter, true
	}
	return "", false
}

// DisplayName 返回厂商的人类可读名称。
func (v Vendor) DisplayName() string {
	switch v {
	case VendorGemini:
		return "Gemini"
	case VendorOpenAI:
		return "OpenAI"
	case VendorClaude:
		return "Claude"
	case VendorOpenRouter:
		return "OpenRouter"
	}
	return string(v)
}

// ModelDescriptor 描述一个已注册模型。构造后不可变。
type ModelDescriptor struct {
	ID                 string `json:"id"`
	DisplayName        string `json:"display_name"`
	Vendor             Vendor `json:"vendor"`
	IsFree             bool   `json:"is_free"`
	RequiresCredential bool   `json:"requires_credential"`
	SupportsVision     bool   `json:"supports_vision"`
}

// Image 是随请求转发给视觉模型的图片引用。
type Image struct {
	URL      string `json:"url"`
	MIMEType string `json:"mime_type,omitempty"`
}

// ReplyRequest 单次调用的输入，不持久化。
type ReplyRequest struct {
	PostText    string
	StylePrompt string
	Credential  string
	Images      []Image
}

// ReplyResult 恰好是 Ok 或 Err 之一。
type ReplyResult struct {
	Text string
	Err  *Error
}

// Ok 构造成功结果。
func Ok(text string) ReplyResult { return ReplyResult{Text: text} }

// Failed 构造失败结果；nil 视为 Unknown。
func Failed(err *Error) ReplyResult {
	if err == nil {
		err = NewError(KindUnknown, "unknown failure", "")
	}
	return ReplyResult{Err: err}
}

// IsOk 报告是否成功。
func (r ReplyResult) IsOk() bool { return r.Err == nil }

// Provider 是厂商适配器的统一契约：只有一个 Call。
// 返回的文本已经过 NormalizeReply；失败时返回 *Error。
type Provider interface {
	// Descriptor 返回该适配器对应的模型描述
	Descriptor() ModelDescriptor

	// Call 执行带重试的 HTTP 调用
	Call(ctx context.Context, req *ReplyRequest) (string, error)
}

// Invoke 调用适配器并折叠为 ReplyResult，任何错误都会被分类包装。
// 适配器 panic 同样转为 KindUnknown，不会击穿请求 goroutine。
func Invoke(ctx context.Context, p Provider, req *ReplyRequest) (res ReplyResult) {
	vendor := string(p.Descriptor().Vendor)
	defer func() {
		if v := recover(); v != nil {
			e := NewError(KindUnknown, "provider call panicked", fmt.Sprintf("panic: %v", v))
			e.Provider = vendor
			res = Failed(e)
		}
	}()

	text, err := p.Call(ctx, req)
	if err != nil {
		return Failed(Wrap(err, vendor))
	}
	return Ok(text)
}
