package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/replybroker/llm"
)

// maxDetailBytes 限制 Detail 中保留的原始响应长度
const maxDetailBytes = 2048

// 响应体中表示密钥无效或额度不足的标记（已转小写）
var (
	invalidKeyMarkers = []string{"api_key_invalid", "invalid_api_key", "api key not valid", "invalid x-api-key", "incorrect api key", "invalid api key"}
	quotaMarkers      = []string{"quota", "insufficient_quota", "billing", "credit", "balance"}
)

// ClassifyHTTPError 是唯一的 HTTP 错误分类点。
// 根据状态码与响应体产出带类型的 llm.Error，下游只按 Kind 分支。
func ClassifyHTTPError(status int, body []byte, provider string) *llm.Error {
	kind := classifyStatus(status, errorMarkers(body))
	return &llm.Error{
		Kind:       kind,
		Message:    llm.UserMessage(llm.LangZhTW, kind, vendorName(provider)),
		Detail:     fmt.Sprintf("HTTP %d: %s", status, truncate(body)),
		HTTPStatus: status,
		Provider:   provider,
	}
}

func classifyStatus(status int, markers string) llm.ErrorKind {
	switch {
	case status == http.StatusBadRequest && containsAny(markers, invalidKeyMarkers):
		return llm.KindInvalidCredential
	case status == http.StatusUnauthorized:
		return llm.KindInvalidCredential
	case status == http.StatusPaymentRequired:
		return llm.KindQuotaExceeded
	case status == http.StatusForbidden && containsAny(markers, quotaMarkers):
		return llm.KindQuotaExceeded
	case status == http.StatusForbidden:
		return llm.KindInvalidCredential
	case status == http.StatusTooManyRequests:
		return llm.KindRateLimited
	case status >= http.StatusInternalServerError:
		return llm.KindNetworkError
	}
	return llm.KindUnknown
}

// errorMarkers 提取响应体中用于判断的字段，转小写后拼接。
// JSON 解析失败时退回整个响应体。
func errorMarkers(body []byte) string {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Error) == 0 {
		return strings.ToLower(string(body))
	}
	var obj struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
		Status  string `json:"status"`
		Details []struct {
			Reason string `json:"reason"`
		} `json:"details"`
	}
	if err := json.Unmarshal(env.Error, &obj); err != nil {
		// error 字段是字符串
		return strings.ToLower(string(env.Error))
	}
	parts := []string{obj.Message, obj.Type, obj.Status, fmt.Sprint(obj.Code)}
	for _, d := range obj.Details {
		parts = append(parts, d.Reason)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// ReadErrorMessage 读取响应体中的错误消息
// 尝试解析 JSON 错误响应，失败则回退到原始文本
func ReadErrorMessage(body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return errResp.Error.Message
	}
	return truncate(body)
}

// CheckCredentialShape 本地校验密钥格式，不合格时不发任何请求。
func CheckCredentialShape(credential, prefix string, minLen int, provider string) *llm.Error {
	credential = strings.TrimSpace(credential)
	if strings.HasPrefix(credential, prefix) && len(credential) >= minLen {
		return nil
	}
	return &llm.Error{
		Kind:     llm.KindInvalidCredential,
		Message:  llm.UserMessage(llm.LangZhTW, llm.KindInvalidCredential, vendorName(provider)),
		Detail:   fmt.Sprintf("credential must start with %q and be at least %d characters", prefix, minLen),
		Provider: provider,
	}
}

// Probe 对厂商主机做轻量连通性探测。
// 任何非 5xx 响应（包括 401/404）都视为网络可达。
func Probe(ctx context.Context, client *http.Client, url, provider string) *llm.Error {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NetworkError(provider, fmt.Sprintf("build probe request: %v", err))
	}
	resp, err := client.Do(req)
	if err != nil {
		return NetworkError(provider, fmt.Sprintf("probe %s: %v", url, err))
	}
	defer SafeCloseBody(resp.Body)
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDetailBytes))

	if resp.StatusCode >= http.StatusInternalServerError {
		e := NetworkError(provider, fmt.Sprintf("probe %s: HTTP %d", url, resp.StatusCode))
		e.HTTPStatus = resp.StatusCode
		return e
	}
	return nil
}

// PostJSON 在硬超时下发送 JSON 请求。
// 超时与连接失败归类为 NetworkError，>=400 交给 ClassifyHTTPError。
func PostJSON(ctx context.Context, client *http.Client, url string, payload any, headers func(*http.Request), timeout time.Duration, provider string) ([]byte, *llm.Error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, llm.NewError(llm.KindUnknown, "failed to marshal request", err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, llm.NewError(llm.KindUnknown, "failed to create request", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if headers != nil {
		headers(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NetworkError(provider, fmt.Sprintf("request timed out after %s", timeout))
		}
		return nil, NetworkError(provider, err.Error())
	}
	defer SafeCloseBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NetworkError(provider, fmt.Sprintf("read response: %v", err))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, ClassifyHTTPError(resp.StatusCode, body, provider)
	}
	return body, nil
}

// NetworkError 构造网络类错误。
func NetworkError(provider, detail string) *llm.Error {
	return &llm.Error{
		Kind:     llm.KindNetworkError,
		Message:  llm.UserMessage(llm.LangZhTW, llm.KindNetworkError, vendorName(provider)),
		Detail:   detail,
		Provider: provider,
	}
}

// ResponseError 构造成功响应体内的语义错误（过滤、截断、格式错误等）。
func ResponseError(kind llm.ErrorKind, provider, detail string) *llm.Error {
	return &llm.Error{
		Kind:     kind,
		Message:  llm.UserMessage(llm.LangZhTW, kind, vendorName(provider)),
		Detail:   detail,
		Provider: provider,
	}
}

// EnvelopeError 检查 2xx 响应中的 error 对象，存在时返回 Unknown。
func EnvelopeError(body []byte, provider string) *llm.Error {
	var env struct {
		Error *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return nil
	}
	if env.Error.Message == "" && env.Error.Type == "" && env.Error.Code == nil {
		return nil
	}
	return ResponseError(llm.KindUnknown, provider, ReadErrorMessage(body))
}

// FinishText 统一收尾：归一化文本，空文本视为格式错误。
func FinishText(raw, provider string) (string, error) {
	text := llm.NormalizeReply(raw)
	if text == "" {
		return "", ResponseError(llm.KindMalformedResponse, provider, "response contained no text")
	}
	return text, nil
}

// SafeCloseBody 安全关闭 HTTP 响应体并忽略错误
func SafeCloseBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}

func vendorName(provider string) string {
	if v, ok := llm.ParseVendor(provider); ok {
		return v.DisplayName()
	}
	return provider
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func truncate(body []byte) string {
	if len(body) > maxDetailBytes {
		return string(body[:maxDetailBytes]) + "..."
	}
	return string(body)
}
