package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/replybroker/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Sleeper 在重试之间等待，ctx 取消时提前返回错误。
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep 是默认的 Sleeper。
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Attempt 是一次尝试，返回已归一化的文本或分类错误。
type Attempt func(ctx context.Context, attempt int) (string, error)

// Retrier 执行线性退避重试：最多 MaxAttempts 次，第 n 次失败后等待 n × RetryStep。
// 终止类错误（密钥无效、额度不足、限流）首次出现即返回，
// 内容过滤与截断也不重试。
type Retrier struct {
	provider string
	sleep    Sleeper
	observer AttemptObserver
	logger   *zap.Logger
}

// NewRetrier 创建重试器。
func NewRetrier(provider string, opts Options, logger *zap.Logger) *Retrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = ContextSleep
	}
	return &Retrier{
		provider: provider,
		sleep:    sleep,
		observer: opts.Observer,
		logger:   logger.With(zap.String("component", "retrier"), zap.String("provider", provider)),
	}
}

var tracer = otel.Tracer("github.com/BaSui01/replybroker/llm/providers")

// Do 执行 fn 直到成功、遇到不可重试错误或次数用尽。
// 返回的错误总是 *llm.Error。
func (r *Retrier) Do(ctx context.Context, model string, fn Attempt) (string, error) {
	ctx, span := tracer.Start(ctx, "provider.call")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", r.provider),
		attribute.String("llm.model", model),
	)

	var lastErr *llm.Error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		start := time.Now()
		text, err := fn(ctx, attempt)
		elapsed := time.Since(start)

		if err == nil {
			r.observe(attempt, "", elapsed)
			span.SetAttributes(attribute.Int("llm.attempts", attempt))
			return text, nil
		}

		lastErr = llm.Wrap(err, r.provider)
		r.observe(attempt, lastErr.Kind, elapsed)

		if !lastErr.Retryable() {
			r.logger.Debug("attempt failed, not retrying",
				zap.String("model", model),
				zap.Int("attempt", attempt),
				zap.String("kind", string(lastErr.Kind)),
				zap.Int("status", lastErr.HTTPStatus))
			break
		}
		if attempt == MaxAttempts {
			break
		}

		delay := RetryDelay(attempt)
		r.logger.Warn("attempt failed, will retry",
			zap.String("model", model),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("kind", string(lastErr.Kind)),
			zap.Int("status", lastErr.HTTPStatus))

		if err := r.sleep(ctx, delay); err != nil {
			lastErr = NetworkError(r.provider, fmt.Sprintf("retry aborted: %v (last: %s)", err, lastErr.Detail))
			break
		}
	}

	span.SetStatus(codes.Error, string(lastErr.Kind))
	span.SetAttributes(attribute.String("llm.error_kind", string(lastErr.Kind)))
	return "", lastErr
}

func (r *Retrier) observe(attempt int, kind llm.ErrorKind, elapsed time.Duration) {
	if r.observer != nil {
		r.observer(r.provider, attempt, kind, elapsed)
	}
}
