package reply

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/BaSui01/replybroker/reply"

// OTelRecorder 把编排结果写成 OTel 指标，随 OTLP 导出。
// 全局 MeterProvider 为 noop 时所有记录都是空操作。
type OTelRecorder struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	tokens   metric.Int64Histogram
}

// NewOTelRecorder 使用全局 MeterProvider，需在 telemetry.Init 之后调用
func NewOTelRecorder() (*OTelRecorder, error) {
	return NewOTelRecorderWith(otel.GetMeterProvider())
}

// NewOTelRecorderWith 使用指定的 MeterProvider
func NewOTelRecorderWith(mp metric.MeterProvider) (*OTelRecorder, error) {
	meter := mp.Meter(instrumentationName)

	requests, err := meter.Int64Counter("reply.requests",
		metric.WithDescription("Orchestrated reply and analysis requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("reply.duration",
		metric.WithDescription("End-to-end orchestration latency including retries"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.25, 0.5, 1, 2, 5, 10, 30, 60, 100))
	if err != nil {
		return nil, err
	}
	tokens, err := meter.Int64Histogram("reply.prompt_tokens",
		metric.WithDescription("Estimated prompt size"),
		metric.WithUnit("{token}"),
		metric.WithExplicitBucketBoundaries(64, 128, 256, 512, 1024, 2048, 4096))
	if err != nil {
		return nil, err
	}
	return &OTelRecorder{requests: requests, duration: duration, tokens: tokens}, nil
}

// RecordReply implements Recorder.
func (r *OTelRecorder) RecordReply(operation, model, status string, duration time.Duration, promptTokens int) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("reply.operation", operation),
		attribute.String("reply.model", model),
		attribute.String("reply.status", status),
	)
	r.requests.Add(ctx, 1, attrs)
	r.duration.Record(ctx, duration.Seconds(), attrs)
	if promptTokens > 0 {
		r.tokens.Record(ctx, int64(promptTokens), metric.WithAttributes(attribute.String("reply.operation", operation)))
	}
}
