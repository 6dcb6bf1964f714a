// =============================================================================
// ReplyBroker OpenTelemetry 装配
// =============================================================================
// 遥测关闭时不创建 exporter，全局 provider 保持 noop，
// reply 与 llm/providers 里的 span 自动退化为空操作。
// 传播器无论开关都会安装，入站 traceparent 始终能被中间件解析。
// =============================================================================

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/BaSui01/replybroker/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

// defaultServiceName 配置未给出服务名时使用
const defaultServiceName = "replybroker"

// Providers 持有 SDK provider，关闭遥测时两者为 nil
type Providers struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Option 初始化选项
type Option func(*options)

type options struct {
	serviceVersion string
	environment    string
}

// WithServiceVersion 覆盖 service.version，默认取构建信息
func WithServiceVersion(v string) Option {
	return func(o *options) {
		if v != "" {
			o.serviceVersion = v
		}
	}
}

// WithEnvironment 设置 deployment.environment
func WithEnvironment(env string) Option {
	return func(o *options) { o.environment = env }
}

// Init 按配置装配 traces 与 metrics。Enabled 为 false 时不连接任何外部服务。
func Init(cfg config.TelemetryConfig, logger *zap.Logger, opts ...Option) (*Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "telemetry"))

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		logger.Info("telemetry disabled")
		return &Providers{}, nil
	}

	o := options{serviceVersion: buildVersion()}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	res, err := newResource(ctx, cfg, o)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	p := &Providers{
		tp: sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(rootSampler(cfg.SampleRate))),
		),
		mp: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
			sdkmetric.WithResource(res),
		),
	}
	otel.SetTracerProvider(p.tp)
	otel.SetMeterProvider(p.mp)

	logger.Info("telemetry enabled",
		zap.String("endpoint", cfg.OTLPEndpoint),
		zap.String("service_version", o.serviceVersion),
		zap.Float64("sample_rate", cfg.SampleRate),
	)
	return p, nil
}

func newResource(ctx context.Context, cfg config.TelemetryConfig, o options) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}
	opts := []resource.Option{
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(o.serviceVersion),
		),
	}
	if o.environment != "" {
		opts = append(opts, resource.WithAttributes(semconv.DeploymentEnvironmentKey.String(o.environment)))
	}
	res, err := resource.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}
	return res, nil
}

// rootSampler 没有父 span 时的采样策略，两端取值直接用常量采样器
func rootSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Enabled 是否装配了真实 SDK
func (p *Providers) Enabled() bool {
	return p != nil && p.tp != nil
}

// Shutdown 刷出缓冲的 span 与指标，nil 或 noop 时为空操作
func (p *Providers) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	var errs []error
	if err := p.tp.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// buildVersion 读取主模块版本，本地构建返回 "dev"
func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}
