package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/replybroker/llm"
)

// =============================================================================
// 📊 Prometheus 指标
// =============================================================================

// 上游最坏情况约 3×30s 加两次退避，桶上限留出余量
var (
	replyBuckets   = []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 100}
	attemptBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30}
	sizeBuckets    = prometheus.ExponentialBuckets(100, 10, 8)
)

// Collector 汇总 HTTP、编排、上游尝试、设置缓存与连接池指标
type Collector struct {
	http struct {
		requests *prometheus.CounterVec
		duration *prometheus.HistogramVec
		reqSize  *prometheus.HistogramVec
		respSize *prometheus.HistogramVec
	}
	reply struct {
		total    *prometheus.CounterVec
		duration *prometheus.HistogramVec
		tokens   *prometheus.HistogramVec
	}
	upstream struct {
		attempts *prometheus.CounterVec
		duration *prometheus.HistogramVec
	}
	cacheLookups *prometheus.CounterVec
	dbConns      *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector 在默认 Registry 上注册，/metrics 端点直接暴露
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer, namespace, logger)
}

// NewCollectorWith 在指定 Registerer 上注册，同一 namespace 只能注册一次
func NewCollectorWith(reg prometheus.Registerer, namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := promauto.With(reg)
	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.http.requests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by method, route and status class",
	}, []string{"method", "path", "status"})
	c.http.duration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help: "HTTP request latency", Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
	c.http.reqSize = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_size_bytes",
		Help: "HTTP request body size", Buckets: sizeBuckets,
	}, []string{"method", "path"})
	c.http.respSize = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "response_size_bytes",
		Help: "HTTP response body size", Buckets: sizeBuckets,
	}, []string{"method", "path"})

	c.reply.total = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "replies_total",
		Help: "Orchestrated reply and analysis requests by outcome",
	}, []string{"operation", "model", "status"})
	c.reply.duration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "reply_duration_seconds",
		Help: "End-to-end orchestration latency including retries", Buckets: replyBuckets,
	}, []string{"operation", "model"})
	c.reply.tokens = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "prompt_tokens",
		Help: "Estimated prompt size", Buckets: prometheus.ExponentialBuckets(32, 2, 8),
	}, []string{"operation"})

	c.upstream.attempts = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "provider", Name: "attempts_total",
		Help: "Upstream vendor call attempts by ordinal and result",
	}, []string{"provider", "attempt", "result"})
	c.upstream.duration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "provider", Name: "attempt_duration_seconds",
		Help: "Latency of a single upstream attempt", Buckets: attemptBuckets,
	}, []string{"provider"})

	c.cacheLookups = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "cache_lookups_total",
		Help: "Read-through cache lookups by result",
	}, []string{"cache", "result"})
	c.dbConns = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "db_connections",
		Help: "Database pool connections by state",
	}, []string{"database", "state"})

	c.logger.Debug("metrics registered", zap.String("namespace", namespace))
	return c
}

// RecordHTTPRequest 由 HTTP 中间件调用，path 需先归一化
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.http.requests.WithLabelValues(method, path, statusClass(status)).Inc()
	c.http.duration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.http.reqSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.http.respSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordReply 实现 reply.Recorder
func (c *Collector) RecordReply(operation, model, status string, duration time.Duration, promptTokens int) {
	c.reply.total.WithLabelValues(operation, model, status).Inc()
	c.reply.duration.WithLabelValues(operation, model).Observe(duration.Seconds())
	if promptTokens > 0 {
		c.reply.tokens.WithLabelValues(operation).Observe(float64(promptTokens))
	}
}

// ObserveAttempt 签名与 providers.AttemptObserver 一致，kind 为空表示成功
func (c *Collector) ObserveAttempt(provider string, attempt int, kind llm.ErrorKind, elapsed time.Duration) {
	result := "ok"
	if kind != "" {
		result = string(kind)
	}
	c.upstream.attempts.WithLabelValues(provider, attemptLabel(attempt), result).Inc()
	c.upstream.duration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// RecordCacheHit 读穿缓存命中
func (c *Collector) RecordCacheHit(cache string) {
	c.cacheLookups.WithLabelValues(cache, "hit").Inc()
}

// RecordCacheMiss 读穿缓存未命中，包括 Redis 故障
func (c *Collector) RecordCacheMiss(cache string) {
	c.cacheLookups.WithLabelValues(cache, "miss").Inc()
}

// RecordDBConnections 由连接池统计循环定期调用
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConns.WithLabelValues(database, "open").Set(float64(open))
	c.dbConns.WithLabelValues(database, "idle").Set(float64(idle))
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}

// attemptLabel 重试上限是 3，更大的序号合并，限制标签基数
func attemptLabel(attempt int) string {
	switch {
	case attempt <= 1:
		return "1"
	case attempt == 2:
		return "2"
	default:
		return "3+"
	}
}
