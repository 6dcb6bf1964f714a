package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/replybroker/internal/ctxkeys"
	"github.com/BaSui01/replybroker/types"
	"go.uber.org/zap"
)

// =============================================================================
// 📦 统一响应信封
// =============================================================================

const (
	// maxBodyBytes 请求体上限，图片只以 URL 传入
	maxBodyBytes = 1 << 20

	// requestIDHeader 由 RequestID 中间件在进入 handler 前写入响应头
	requestIDHeader = "X-Request-ID"
)

// Response 所有 REST 端点共用的响应信封
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorInfo 失败时的错误体，provider 指出是哪个厂商的调用失败
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Provider  string `json:"provider,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// statusByCode 错误码没有显式 HTTP 状态时的默认映射，未列出的按 500 处理
var statusByCode = map[types.ErrorCode]int{
	types.ErrInvalidRequest:     http.StatusBadRequest,
	types.ErrAuthentication:     http.StatusUnauthorized,
	types.ErrUnauthorized:       http.StatusUnauthorized,
	types.ErrInvalidCredential:  http.StatusUnauthorized,
	types.ErrForbidden:          http.StatusForbidden,
	types.ErrNotFound:           http.StatusNotFound,
	types.ErrModelNotFound:      http.StatusNotFound,
	types.ErrRateLimited:        http.StatusTooManyRequests,
	types.ErrQuotaExceeded:      http.StatusPaymentRequired,
	types.ErrMissingCredential:  http.StatusPreconditionFailed,
	types.ErrContentFiltered:    http.StatusUnprocessableEntity,
	types.ErrTruncatedOutput:    http.StatusUnprocessableEntity,
	types.ErrUpstreamError:      http.StatusBadGateway,
	types.ErrMalformedResponse:  http.StatusBadGateway,
	types.ErrUpstreamTimeout:    http.StatusGatewayTimeout,
	types.ErrServiceUnavailable: http.StatusServiceUnavailable,
	types.ErrInternalError:      http.StatusInternalServerError,
}

func statusFor(err *types.Error) int {
	if err.HTTPStatus != 0 {
		return err.HTTPStatus
	}
	if status, ok := statusByCode[err.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteJSON 写 JSON 响应；编码失败时状态行已发出，只能丢弃
func WriteJSON(w http.ResponseWriter, status int, data any) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func envelope(w http.ResponseWriter) Response {
	return Response{Timestamp: time.Now(), RequestID: w.Header().Get(requestIDHeader)}
}

// WriteSuccess 200 + success 信封
func WriteSuccess(w http.ResponseWriter, data any) {
	resp := envelope(w)
	resp.Success = true
	resp.Data = data
	WriteJSON(w, http.StatusOK, resp)
}

// WriteError 按错误码选状态写失败信封。4xx 记 warn，5xx 记 error，
// cause 只进日志不进响应。
func WriteError(w http.ResponseWriter, err *types.Error, logger *zap.Logger) {
	status := statusFor(err)

	if logger != nil {
		log := logger.Warn
		if status >= http.StatusInternalServerError {
			log = logger.Error
		}
		fields := []zap.Field{
			zap.String("code", string(err.Code)),
			zap.Int("status", status),
			zap.Bool("retryable", err.Retryable),
		}
		if err.Provider != "" {
			fields = append(fields, zap.String("provider", err.Provider))
		}
		if err.Cause != nil {
			fields = append(fields, zap.Error(err.Cause))
		}
		log(err.Message, fields...)
	}

	resp := envelope(w)
	resp.Error = &ErrorInfo{
		Code:      string(err.Code),
		Message:   err.Message,
		Provider:  err.Provider,
		Retryable: err.Retryable,
	}
	WriteJSON(w, status, resp)
}

// WriteErrorMessage 显式状态码的简写
func WriteErrorMessage(w http.ResponseWriter, status int, code types.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, types.NewError(code, message).WithHTTPStatus(status), logger)
}

// =============================================================================
// 🛡️ 请求校验
// =============================================================================

// DecodeJSONBody 严格解码：拒绝未知字段与多余内容，超过 maxBodyBytes 返回 413。
// 出错时已写好响应，调用方直接 return。
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) error {
	fail := func(status int, msg string, cause error) error {
		apiErr := types.NewError(types.ErrInvalidRequest, msg).WithHTTPStatus(status).WithCause(cause)
		WriteError(w, apiErr, logger)
		return apiErr
	}

	if r.Body == nil || r.Body == http.NoBody {
		return fail(http.StatusBadRequest, "request body is empty", nil)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil && dec.More() {
		err = errors.New("unexpected data after JSON object")
	}

	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return fail(http.StatusBadRequest, "request body is empty", nil)
	case errors.As(err, &tooLarge):
		return fail(http.StatusRequestEntityTooLarge, "request body exceeds 1 MiB", err)
	default:
		return fail(http.StatusBadRequest, "invalid JSON body", err)
	}
}

// ValidateContentType 只接受 application/json（可带参数）
func ValidateContentType(w http.ResponseWriter, r *http.Request, logger *zap.Logger) bool {
	mediaType, _, _ := strings.Cut(r.Header.Get("Content-Type"), ";")
	if strings.EqualFold(strings.TrimSpace(mediaType), "application/json") {
		return true
	}
	WriteError(w, types.NewError(types.ErrInvalidRequest, "Content-Type must be application/json"), logger)
	return false
}

// requireMethod 方法不符时写 405
func requireMethod(w http.ResponseWriter, r *http.Request, method string, logger *zap.Logger) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", logger)
	return false
}

// requestLogger 给 handler 日志带上请求 ID
func requestLogger(logger *zap.Logger, r *http.Request) *zap.Logger {
	if id, ok := ctxkeys.RequestID(r.Context()); ok {
		return logger.With(zap.String("request_id", id))
	}
	return logger
}

// =============================================================================
// 📊 状态码捕获
// =============================================================================

// ResponseWriter 记录第一次写出的状态码，供日志与追踪中间件读取
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
	Written    bool
}

func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
}

func (rw *ResponseWriter) WriteHeader(code int) {
	if rw.Written {
		return
	}
	rw.StatusCode = code
	rw.Written = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap 供 http.ResponseController 与 websocket 升级找到底层连接
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
