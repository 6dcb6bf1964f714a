package api

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/BaSui01/replybroker/llm"
	"github.com/BaSui01/replybroker/prompt"
	"github.com/BaSui01/replybroker/reply"
	"github.com/BaSui01/replybroker/settings"
	"github.com/BaSui01/replybroker/types"
)

// =============================================================================
// 📨 消息信封
// =============================================================================

// MessageType 消息类型，HTTP 消息端点与 websocket 共用
type MessageType string

const (
	TypeGenerateReply MessageType = "GENERATE_REPLY"
	TypeAnalyzePost   MessageType = "ANALYZE_POST"
	TypeAPIKeyStatus  MessageType = "API_KEY_STATUS"
)

// Valid 是否为已知消息类型
func (t MessageType) Valid() bool {
	switch t {
	case TypeGenerateReply, TypeAnalyzePost, TypeAPIKeyStatus:
		return true
	}
	return false
}

// Envelope 入站消息。ID 由客户端生成，原样回带，用于在 websocket 上配对请求与响应。
type Envelope struct {
	Type MessageType     `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ReplyEnvelope 出站消息
type ReplyEnvelope struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id,omitempty"`
	Data any         `json:"data"`
}

// =============================================================================
// ✍️ GENERATE_REPLY
// =============================================================================

// GenerateReplyOptions 生成选项
type GenerateReplyOptions struct {
	UseKaomoji       bool   `json:"useKaomoji"`
	IsSelfPost       bool   `json:"isSelfPost"`
	DynamicStyleName string `json:"dynamicStyleName,omitempty"`
	// merged 模式的长度档位: short, medium, long
	Length string `json:"length,omitempty"`
}

// GenerateReplyRequest GENERATE_REPLY 请求体
type GenerateReplyRequest struct {
	PostText       string               `json:"postText"`
	ContextText    string               `json:"contextText,omitempty"`
	Style          string               `json:"style"`
	Prompt         string               `json:"prompt,omitempty"`
	Model          string               `json:"model,omitempty"`
	Tone           string               `json:"tone,omitempty"`
	Strategy       string               `json:"strategy,omitempty"`
	CustomExamples string               `json:"customExamples,omitempty"`
	Images         []string             `json:"images,omitempty"`
	Mode           string               `json:"mode,omitempty"`
	Options        GenerateReplyOptions `json:"options"`
}

// Validate 校验请求
func (r *GenerateReplyRequest) Validate() *types.Error {
	if strings.TrimSpace(r.PostText) == "" {
		return types.NewError(types.ErrInvalidRequest, "postText is required")
	}
	switch reply.Mode(r.Mode) {
	case reply.ModeStandard, reply.ModeMerged:
	default:
		return types.NewError(types.ErrInvalidRequest, "unsupported mode: "+r.Mode)
	}
	for _, img := range r.Images {
		if strings.TrimSpace(img) == "" {
			return types.NewError(types.ErrInvalidRequest, "images must not contain empty entries")
		}
	}
	return nil
}

// ToReplyRequest 转换为编排器请求
func (r *GenerateReplyRequest) ToReplyRequest() reply.Request {
	var images []llm.Image
	for _, u := range r.Images {
		images = append(images, llm.Image{URL: strings.TrimSpace(u)})
	}
	return reply.Request{
		PostText:       r.PostText,
		ContextText:    r.ContextText,
		Style:          r.Style,
		Prompt:         r.Prompt,
		Model:          strings.TrimSpace(r.Model),
		Tone:           r.Tone,
		Strategy:       r.Strategy,
		CustomExamples: r.CustomExamples,
		Images:         images,
		Mode:           reply.Mode(r.Mode),
		Options: reply.RequestOptions{
			UseKaomoji:       r.Options.UseKaomoji,
			IsSelfPost:       r.Options.IsSelfPost,
			DynamicStyleName: r.Options.DynamicStyleName,
			Length:           prompt.ParseLength(r.Options.Length),
		},
	}
}

// GenerateReplyResponse GENERATE_REPLY 响应；Error 面向用户，DebugInfo 保存上游原始信息
type GenerateReplyResponse struct {
	Success   bool          `json:"success"`
	Reply     string        `json:"reply,omitempty"`
	Style     string        `json:"style,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Model     string        `json:"model,omitempty"`
	Error     string        `json:"error,omitempty"`
	DebugInfo string        `json:"debugInfo,omitempty"`
	ErrorKind llm.ErrorKind `json:"errorKind,omitempty"`
}

// NewGenerateReplyResponse 由编排结果构造响应
func NewGenerateReplyResponse(res reply.Result) GenerateReplyResponse {
	if !res.OK() {
		return GenerateReplyResponse{
			Model:     res.Model,
			Error:     res.Err.Message,
			DebugInfo: res.Err.Detail,
			ErrorKind: res.Err.Kind,
		}
	}
	return GenerateReplyResponse{
		Success: true,
		Reply:   res.Reply,
		Style:   res.Style,
		Reason:  res.Reason,
		Model:   res.Model,
	}
}

// MaxBatchItems 单次批量生成的条数上限
const MaxBatchItems = 20

// BatchReplyRequest 批量生成请求
type BatchReplyRequest struct {
	Items []GenerateReplyRequest `json:"items"`
}

// Validate 校验条数与每一条请求，错误信息带上序号
func (r *BatchReplyRequest) Validate() *types.Error {
	if len(r.Items) == 0 {
		return types.NewError(types.ErrInvalidRequest, "items must not be empty")
	}
	if len(r.Items) > MaxBatchItems {
		return types.NewError(types.ErrInvalidRequest, "too many items in batch")
	}
	for i := range r.Items {
		if err := r.Items[i].Validate(); err != nil {
			err.Message = "items[" + strconv.Itoa(i) + "]: " + err.Message
			return err
		}
	}
	return nil
}

// BatchReplyItem 批量中的单条结果
type BatchReplyItem struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	GenerateReplyResponse
}

// BatchReplyResponse 批量生成响应
type BatchReplyResponse struct {
	Items     []BatchReplyItem `json:"items"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// NewBatchReplyResponse 由批量结果构造响应
func NewBatchReplyResponse(items []reply.BatchItem) BatchReplyResponse {
	out := BatchReplyResponse{Items: make([]BatchReplyItem, 0, len(items))}
	for _, it := range items {
		resp := NewGenerateReplyResponse(it.Result)
		if resp.Success {
			out.Succeeded++
		} else {
			out.Failed++
		}
		out.Items = append(out.Items, BatchReplyItem{ID: it.ID, Index: it.Index, GenerateReplyResponse: resp})
	}
	return out
}

// =============================================================================
// 🔍 ANALYZE_POST
// =============================================================================

// AnalyzePostRequest ANALYZE_POST 请求体
type AnalyzePostRequest struct {
	PostText    string `json:"postText"`
	ContextText string `json:"contextText,omitempty"`
	StylesList  string `json:"stylesList"`
	Model       string `json:"model,omitempty"`
}

// Validate 校验请求
func (r *AnalyzePostRequest) Validate() *types.Error {
	if strings.TrimSpace(r.PostText) == "" {
		return types.NewError(types.ErrInvalidRequest, "postText is required")
	}
	return nil
}

// ToAnalyzeRequest 转换为分析器请求
func (r *AnalyzePostRequest) ToAnalyzeRequest() reply.AnalyzeRequest {
	return reply.AnalyzeRequest{
		PostText:    r.PostText,
		ContextText: r.ContextText,
		StylesList:  r.StylesList,
		Model:       strings.TrimSpace(r.Model),
	}
}

// AnalyzePostResponse ANALYZE_POST 响应；analysis 为模型原文，其余为解析结果
type AnalyzePostResponse struct {
	Success   bool          `json:"success"`
	Analysis  string        `json:"analysis,omitempty"`
	Style     string        `json:"style,omitempty"`
	Strategy  string        `json:"strategy,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Dynamic   bool          `json:"dynamic,omitempty"`
	StyleID   string        `json:"styleId,omitempty"`
	Fallback  bool          `json:"fallback,omitempty"`
	Model     string        `json:"model,omitempty"`
	Error     string        `json:"error,omitempty"`
	DebugInfo string        `json:"debugInfo,omitempty"`
	ErrorKind llm.ErrorKind `json:"errorKind,omitempty"`
}

// NewAnalyzePostResponse 由分析结果构造响应
func NewAnalyzePostResponse(res reply.AnalyzeResult) AnalyzePostResponse {
	if !res.OK() {
		return AnalyzePostResponse{
			Model:     res.Model,
			Error:     res.Err.Message,
			DebugInfo: res.Err.Detail,
			ErrorKind: res.Err.Kind,
		}
	}
	a := res.Analysis
	return AnalyzePostResponse{
		Success:  true,
		Analysis: a.Raw,
		Style:    a.Style,
		Strategy: a.Strategy,
		Reason:   a.Reason,
		Dynamic:  a.Dynamic,
		StyleID:  a.StyleID,
		Fallback: a.Fallback,
		Model:    res.Model,
	}
}

// =============================================================================
// 🔑 API_KEY_STATUS 与设置
// =============================================================================

// APIKeyStatusResponse 只含是否配置的布尔位，从不返回密钥
type APIKeyStatusResponse = settings.KeyStatus

// SetCredentialRequest 写入厂商密钥
type SetCredentialRequest struct {
	APIKey string `json:"apiKey"`
}

// SetDefaultModelRequest 设置默认模型
type SetDefaultModelRequest struct {
	Model string `json:"model"`
}

// ModelListResponse 模型目录
type ModelListResponse struct {
	Models       []llm.ModelDescriptor `json:"models"`
	DefaultModel string                `json:"defaultModel"`
}

// UsageResponse 最近的用量记录
type UsageResponse struct {
	Entries []settings.UsageEntry `json:"entries"`
}
