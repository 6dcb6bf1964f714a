package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/BaSui01/replybroker/types"
)

// ErrorKind 是 ErrorClassifier 的输出，封闭枚举。
// 下游一律按 Kind 分支，不再对错误文本做子串匹配。
type ErrorKind string

const (
	KindInvalidCredential ErrorKind = "invalid_credential" // 密钥格式错误 / 401 / 被拒
	KindQuotaExceeded     ErrorKind = "quota_exceeded"     // 额度用尽 / 余额不足
	KindRateLimited       ErrorKind = "rate_limited"       // 429
	KindNetworkError      ErrorKind = "network_error"      // 超时、连接失败、5xx
	KindContentFiltered   ErrorKind = "content_filtered"   // 安全过滤
	KindTruncatedOutput   ErrorKind = "truncated_output"   // 输出被截断
	KindMalformedResponse ErrorKind = "malformed_response" // 响应无法解析或无文本
	KindMissingCredential ErrorKind = "missing_credential" // 未配置密钥，不发请求
	KindUnknown           ErrorKind = "unknown"
)

// AllKinds 返回全部错误类型，顺序固定。
func AllKinds() []ErrorKind {
	return []ErrorKind{
		KindInvalidCredential, KindQuotaExceeded, KindRateLimited, KindNetworkError,
		KindContentFiltered, KindTruncatedOutput, KindMalformedResponse,
		KindMissingCredential, KindUnknown,
	}
}

// Terminal 报告该类错误是否首次出现即终止重试。
func (k ErrorKind) Terminal() bool {
	switch k {
	case KindInvalidCredential, KindQuotaExceeded, KindRateLimited, KindMissingCredential:
		return true
	}
	return false
}

// Code 将错误类型映射到 API 层错误码。
func (k ErrorKind) Code() types.ErrorCode {
	switch k {
	case KindInvalidCredential:
		return types.ErrInvalidCredential
	case KindQuotaExceeded:
		return types.ErrQuotaExceeded
	case KindRateLimited:
		return types.ErrRateLimited
	case KindNetworkError:
		return types.ErrUpstreamError
	case KindContentFiltered:
		return types.ErrContentFiltered
	case KindTruncatedOutput:
		return types.ErrTruncatedOutput
	case KindMalformedResponse:
		return types.ErrMalformedResponse
	case KindMissingCredential:
		return types.ErrMissingCredential
	default:
		return types.ErrInternalError
	}
}

// HTTPStatus 返回 API 层对外使用的状态码。
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindInvalidCredential:
		return http.StatusUnauthorized
	case KindQuotaExceeded:
		return http.StatusPaymentRequired
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindNetworkError, KindMalformedResponse:
		return http.StatusBadGateway
	case KindContentFiltered, KindTruncatedOutput:
		return http.StatusUnprocessableEntity
	case KindMissingCredential:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// Error 是适配器边界上的分类错误。
// Message 面向用户，Detail 保存原始上游信息，两者从不合并。
type Error struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Provider   string    `json:"provider,omitempty"`
}

func (e *Error) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s: %s (status=%d)", e.Kind, e.Message, e.HTTPStatus)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable 报告重试循环是否应继续。
// 只有瞬时错误会重试：网络错误、解析失败、上游 5xx 的未知错误。
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetworkError, KindMalformedResponse:
		return true
	case KindUnknown:
		return e.HTTPStatus >= http.StatusInternalServerError
	}
	return false
}

// ToTypesError 转换为 API 层错误。
func (e *Error) ToTypesError() *types.Error {
	return types.NewError(e.Kind.Code(), e.Message).
		WithHTTPStatus(e.Kind.HTTPStatus()).
		WithRetryable(e.Retryable()).
		WithProvider(e.Provider)
}

// NewError 构造分类错误。
func NewError(kind ErrorKind, message, detail string) *Error {
	return &Error{Kind: kind, Message: message, Detail: detail}
}

// AsError 从错误链中取出 *Error。
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf 返回错误类型；非分类错误一律视为 Unknown。
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// Wrap 把任意错误包装成分类错误，已分类的原样返回。
func Wrap(err error, provider string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}
	return &Error{Kind: KindUnknown, Message: err.Error(), Detail: err.Error(), Provider: provider}
}
