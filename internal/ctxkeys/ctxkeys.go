// Package ctxkeys 定义跨包传递的请求级 context 键。
package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	traceIDKey   contextKey = "trace_id"
	operationKey contextKey = "operation"
)

// WithRequestID 设置 RequestID（由 RequestID 中间件写入）
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID 获取 RequestID
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithTraceID 设置 TraceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID 获取 TraceID
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(traceIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithOperation 设置当前消息类型（GENERATE_REPLY / ANALYZE_POST / API_KEY_STATUS）
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey, op)
}

// Operation 获取当前消息类型
func Operation(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(operationKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
