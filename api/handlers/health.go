package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// readyTimeout 就绪检查的总超时
const readyTimeout = 5 * time.Second

// 聚合状态
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthCheck 健康检查接口
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// OptionalCheck 失败时只把状态降为 degraded，不会让就绪探针失败。
// 设置缓存就是这种依赖：Redis 不可用时直接读后端。
type OptionalCheck interface {
	HealthCheck
	Optional() bool
}

// ServiceHealthResponse 健康状态响应
type ServiceHealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个检查结果
type CheckResult struct {
	Status   string `json:"status"` // "pass", "fail"
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency,omitempty"`
}

// HealthHandler 存活、就绪与版本端点
type HealthHandler struct {
	logger  *zap.Logger
	started time.Time

	mu     sync.RWMutex
	checks []HealthCheck
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		logger:  logger.With(zap.String("component", "health")),
		started: time.Now(),
	}
}

// RegisterCheck 注册就绪检查
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// HandleHealth GET /health，进程存活即返回 200
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ServiceHealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Uptime:    time.Since(h.started).Truncate(time.Second).String(),
	})
}

// HandleHealthz GET /healthz，Kubernetes 存活探针
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ServiceHealthResponse{Status: StatusHealthy, Timestamp: time.Now()})
}

// HandleReady GET /ready 与 /readyz。
// 所有检查并发执行；必需检查失败返回 503，只有可选检查失败返回 200 + degraded。
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	h.mu.RLock()
	checks := append([]HealthCheck(nil), h.checks...)
	h.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			results[i] = h.run(ctx, check)
			return nil
		})
	}
	_ = g.Wait()

	resp := ServiceHealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult, len(checks)),
	}
	for i, check := range checks {
		res := results[i]
		resp.Checks[check.Name()] = res
		if res.Status == "pass" {
			continue
		}
		if res.Optional {
			if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
			continue
		}
		resp.Status = StatusUnhealthy
	}

	status := http.StatusOK
	if resp.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, resp)
}

func (h *HealthHandler) run(ctx context.Context, check HealthCheck) CheckResult {
	start := time.Now()
	err := check.Check(ctx)
	latency := time.Since(start)

	res := CheckResult{Status: "pass", Latency: latency.String()}
	if oc, ok := check.(OptionalCheck); ok {
		res.Optional = oc.Optional()
	}
	if err != nil {
		res.Status = "fail"
		res.Message = err.Error()
		h.logger.Warn("health check failed",
			zap.String("check", check.Name()),
			zap.Bool("optional", res.Optional),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
	}
	return res
}

// HandleVersion GET /version
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, map[string]string{
			"version":    version,
			"build_time": buildTime,
			"git_commit": gitCommit,
		})
	}
}

// =============================================================================
// 🔧 函数式检查
// =============================================================================

type funcCheck struct {
	name     string
	optional bool
	fn       func(ctx context.Context) error
}

// NewCheck 必需检查：database 用连接池 Ping，models 用注册表 EnsureReady
func NewCheck(name string, fn func(ctx context.Context) error) HealthCheck {
	return &funcCheck{name: name, fn: fn}
}

// NewOptionalCheck 可选检查，用于 redis 这类加速层
func NewOptionalCheck(name string, fn func(ctx context.Context) error) HealthCheck {
	return &funcCheck{name: name, optional: true, fn: fn}
}

func (c *funcCheck) Name() string                    { return c.name }
func (c *funcCheck) Optional() bool                  { return c.optional }
func (c *funcCheck) Check(ctx context.Context) error { return c.fn(ctx) }
