package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/replybroker/api/handlers"
	"github.com/BaSui01/replybroker/config"
	"github.com/BaSui01/replybroker/internal/cache"
	"github.com/BaSui01/replybroker/internal/database"
	"github.com/BaSui01/replybroker/internal/metrics"
	"github.com/BaSui01/replybroker/internal/migration"
	"github.com/BaSui01/replybroker/internal/pool"
	"github.com/BaSui01/replybroker/internal/server"
	"github.com/BaSui01/replybroker/internal/telemetry"
	"github.com/BaSui01/replybroker/llm"
	"github.com/BaSui01/replybroker/llm/factory"
	"github.com/BaSui01/replybroker/llm/providers"
	"github.com/BaSui01/replybroker/reply"
	"github.com/BaSui01/replybroker/settings"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 ReplyBroker 的主服务器
type Server struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger

	// 基础设施
	otel      *telemetry.Providers
	db        *database.PoolManager
	cache     *cache.Manager
	collector *metrics.Collector

	// 领域服务
	settings     *settings.Service
	usage        *settings.UsageLog
	registry     *llm.Registry
	orchestrator *reply.Orchestrator
	analyzer     *reply.Analyzer

	// Handlers
	healthHandler   *handlers.HealthHandler
	replyHandler    *handlers.ReplyHandler
	modelsHandler   *handlers.ModelsHandler
	settingsHandler *handlers.SettingsHandler
	wsHandler       *handlers.WSHandler

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	reloader *config.Reloader

	// 后台任务（限流清理、连接池指标）的生命周期
	bgCancel context.CancelFunc
	wg       sync.WaitGroup

	// 测试注入
	providerOpts []providers.Option
	metricsNS    string
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, configPath string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		metricsNS:  "replybroker",
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 遥测，失败不阻止启动
	otelProviders, err := telemetry.Init(s.cfg.Telemetry, s.logger,
		telemetry.WithServiceVersion(Version),
		telemetry.WithEnvironment(s.cfg.Telemetry.Environment),
	)
	if err != nil {
		s.logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	s.otel = otelProviders

	// 2. 存储、领域服务与 handlers
	if err := s.initServices(); err != nil {
		return fmt.Errorf("failed to init services: %w", err)
	}

	// 3. 配置热重载
	if err := s.initReloader(); err != nil {
		return fmt.Errorf("failed to init config reloader: %w", err)
	}

	// 4. HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 5. Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Int("models", s.registry.Len()),
		zap.Bool("hot_reload_enabled", s.configPath != ""),
	)
	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initServices 按依赖顺序组装：存储 → 设置 → 注册表 → 编排器 → handlers
func (s *Server) initServices() error {
	bgCtx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.collector = metrics.NewCollector(s.metricsNS, s.logger)

	if err := s.initStorage(bgCtx); err != nil {
		return err
	}

	// 接口参数必须传无类型 nil，否则 NewFromConfig 会把空指针当成可用后端
	var (
		db    settings.DB
		store settings.Cache
	)
	if s.db != nil {
		db = s.db
	}
	if s.cache != nil {
		store = s.cache
	}
	svc, err := settings.NewFromConfig(s.cfg, db, store, s.logger)
	if err != nil {
		return fmt.Errorf("failed to init settings: %w", err)
	}
	s.settings = svc
	if svc.OnCacheLookup(func(hit bool) {
		if hit {
			s.collector.RecordCacheHit("settings")
		} else {
			s.collector.RecordCacheMiss("settings")
		}
	}) {
		s.logger.Info("settings read-through cache enabled", zap.Duration("ttl", s.cfg.Settings.CacheTTL))
	}

	registry, err := llm.NewRegistry(s.providerBuilder(), s.logger)
	if err != nil {
		return fmt.Errorf("failed to init model registry: %w", err)
	}
	s.registry = registry

	recorders := []reply.Recorder{s.collector}
	if s.otel.Enabled() {
		otelRec, err := reply.NewOTelRecorder()
		if err != nil {
			s.logger.Warn("otel reply metrics unavailable", zap.Error(err))
		} else {
			recorders = append(recorders, otelRec)
		}
	}
	if s.db != nil {
		s.usage = settings.NewUsageLog(s.db, s.logger)
		recorders = append(recorders, s.usage)
	}
	orch, err := reply.New(registry, svc, s.logger,
		reply.WithLanguage(llm.ParseLanguage(s.cfg.LLM.Language)),
		reply.WithRecorder(reply.Recorders(recorders...)),
	)
	if err != nil {
		return fmt.Errorf("failed to init orchestrator: %w", err)
	}
	s.orchestrator = orch
	s.analyzer = reply.NewAnalyzer(orch)

	s.initHandlers()
	return nil
}

// initStorage 按配置打开数据库与 Redis；database 后端启动时执行迁移
func (s *Server) initStorage(ctx context.Context) error {
	if s.cfg.Settings.Backend == config.SettingsBackendDatabase {
		if err := s.migrateUp(); err != nil {
			return err
		}
		pm, err := database.Open(s.cfg.Database, s.logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		s.db = pm
		s.wg.Add(1)
		go s.dbStatsLoop(ctx)
	}

	if s.cfg.Settings.CacheEnabled {
		cm, err := cache.NewManager(cacheConfig(s.cfg.Redis, s.cfg.Settings), s.logger)
		if err != nil {
			// 缓存只是加速层，不可用时直接读后端
			s.logger.Warn("redis not available, settings cache disabled", zap.Error(err))
		} else {
			s.cache = cm
		}
	}
	return nil
}

func (s *Server) migrateUp() error {
	m, err := migration.NewMigratorFromDatabaseConfig(s.cfg.Database, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()
	if err := m.Up(context.Background()); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// dbStatsLoop 周期性上报连接池指标
func (s *Server) dbStatsLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		st := s.db.GetStats()
		s.collector.RecordDBConnections("settings", st.OpenConnections, st.Idle)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// providerBuilder 每次重建都读当前配置，热重载后的厂商配置在下一次 EnsureReady 生效
func (s *Server) providerBuilder() llm.Builder {
	opts := append([]providers.Option{providers.WithAttemptObserver(s.collector.ObserveAttempt)}, s.providerOpts...)
	return func() ([]llm.Provider, error) {
		cfg := s.currentConfig()
		return factory.Builder(factory.Catalog(extraModels(cfg.LLM)), vendorConfigs(cfg.LLM), s.logger, opts...)()
	}
}

func (s *Server) currentConfig() *config.Config {
	if s.reloader != nil {
		return s.reloader.Config()
	}
	return s.cfg
}

// initHandlers 初始化所有 handlers 与健康检查
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NewCheck("models", func(context.Context) error {
		return s.registry.EnsureReady()
	}))
	if s.db != nil {
		s.healthHandler.RegisterCheck(handlers.NewCheck("database", s.db.Ping))
	}
	if s.cache != nil {
		s.healthHandler.RegisterCheck(handlers.NewOptionalCheck("redis", s.cache.Ping))
	}

	s.replyHandler = handlers.NewReplyHandler(s.orchestrator, s.analyzer, s.settings, s.cfg.LLM.BatchLimit, s.logger)
	s.modelsHandler = handlers.NewModelsHandler(s.registry, s.settings, s.logger)

	var usage handlers.UsageSource
	if s.usage != nil {
		usage = s.usage
	}
	s.settingsHandler = handlers.NewSettingsHandler(s.settings, s.registry, usage, s.logger)

	limit := s.cfg.LLM.BatchLimit
	if limit <= 0 {
		limit = reply.DefaultBatchLimit
	}
	s.wsHandler = handlers.NewWSHandler(s.replyHandler, s.cfg.Server.CORSAllowedOrigins,
		pool.Config{MaxWorkers: limit, QueueSize: 4 * limit}, s.logger)

	s.logger.Info("Handlers initialized")
}

// initReloader 配置文件变更时刷新 static 设置并清空注册表
func (s *Server) initReloader() error {
	s.reloader = config.NewReloader(s.cfg, s.configPath, s.logger)
	s.reloader.OnReload(func(_, next *config.Config, changes []config.ConfigChange) {
		if s.settings.Reload(context.Background(), next.LLM) {
			s.logger.Info("static credentials refreshed")
		}
		s.registry.Clear()
		s.logger.Info("model registry cleared after reload", zap.Int("changes", len(changes)))
	})
	return s.reloader.Start(context.Background())
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// skipAuthPaths 健康检查与版本端点不鉴权
var skipAuthPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version"}

// routes 注册所有路由
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// 回复与分析
	mux.HandleFunc("/api/v1/replies", s.replyHandler.HandleGenerate)
	mux.HandleFunc("/api/v1/replies/batch", s.replyHandler.HandleBatch)
	mux.HandleFunc("/api/v1/analyses", s.replyHandler.HandleAnalyze)
	mux.HandleFunc("/api/v1/api-keys/status", s.replyHandler.HandleKeyStatus)
	mux.HandleFunc("/api/v1/messages", s.replyHandler.HandleMessage)
	mux.Handle("/api/v1/ws", s.wsHandler)

	// 模型与设置
	mux.HandleFunc("/api/v1/models", s.modelsHandler.HandleList)
	mux.HandleFunc("/api/v1/settings/credentials/{vendor}", s.settingsHandler.HandleCredential)
	mux.HandleFunc("/api/v1/settings/default-model", s.settingsHandler.HandleDefaultModel)
	mux.HandleFunc("/api/v1/usage", s.settingsHandler.HandleUsage)

	return mux
}

// Handler 返回带完整中间件链的 HTTP handler
func (s *Server) Handler(ctx context.Context) http.Handler {
	sc := s.cfg.Server
	chain := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		MetricsMiddleware(s.collector),
		RequestLogger(s.logger),
		CORS(sc.CORSAllowedOrigins),
	}
	if sc.JWT.Enabled {
		chain = append(chain,
			JWTAuth(sc.JWT, skipAuthPaths, s.logger),
			TenantRateLimiter(ctx, sc.RateLimitRPS, sc.RateLimitBurst, s.logger),
		)
	} else {
		chain = append(chain,
			RateLimiter(ctx, sc.RateLimitRPS, sc.RateLimitBurst, s.logger),
			APIKeyAuth(sc.APIKeys, skipAuthPaths, sc.AllowQueryAPIKey, s.logger),
		)
	}
	return Chain(s.routes(), chain...)
}

// startHTTPServer 启动 API 服务器
func (s *Server) startHTTPServer() error {
	bgCtx, cancel := context.WithCancel(context.Background())
	prev := s.bgCancel
	s.bgCancel = func() {
		cancel()
		if prev != nil {
			prev()
		}
	}

	s.httpManager = server.NewManager(s.Handler(bgCtx), server.FromServerConfig(s.cfg.Server, s.cfg.Server.HTTPPort), s.logger)
	s.httpManager.OnShutdown(s.wsHandler.Shutdown)
	if err := s.httpManager.Start(); err != nil {
		return err
	}
	s.logger.Info("HTTP server started", zap.String("addr", s.httpManager.ListenAddr()))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 在独立端口暴露 /metrics，端口为 0 时不启动
func (s *Server) startMetricsServer() error {
	if s.cfg.Server.MetricsPort == 0 {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsManager = server.NewManager(mux, server.FromServerConfig(s.cfg.Server, s.cfg.Server.MetricsPort), s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}
	s.logger.Info("Metrics server started", zap.String("addr", s.metricsManager.ListenAddr()))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown 优雅关闭：停止接收请求 → 停止热重载 → 关闭后台任务 → 关闭存储 → 刷新遥测
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
	defer cancel()

	// 1. HTTP 服务器（WaitForShutdown 已关闭时是空操作）
	if s.httpManager != nil && s.httpManager.IsRunning() {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	if s.wsHandler != nil {
		s.wsHandler.Shutdown()
	}

	// 2. 热重载
	if s.reloader != nil {
		if err := s.reloader.Stop(); err != nil {
			s.logger.Error("config reloader shutdown error", zap.Error(err))
		}
	}

	// 3. 后台任务
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.wg.Wait()

	// 4. Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 5. 存储
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Error("storage shutdown error", zap.Error(err))
	}

	// 6. 遥测最后关闭，保证前面的 span 被导出
	if s.otel != nil {
		if err := s.otel.Shutdown(ctx); err != nil {
			s.logger.Error("telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.cfg.Server.ShutdownTimeout > 0 {
		return s.cfg.Server.ShutdownTimeout
	}
	return 15 * time.Second
}

// =============================================================================
// 🔄 配置映射
// =============================================================================

// vendorConfigs 把 llm 配置段映射为适配器配置
func vendorConfigs(c config.LLMConfig) factory.VendorConfigs {
	base := func(v config.VendorConfig) providers.BaseProviderConfig {
		return providers.BaseProviderConfig{BaseURL: v.BaseURL, Model: v.Model, Probe: c.ProbeEnabled}
	}
	return factory.VendorConfigs{
		Gemini: providers.GeminiConfig{BaseProviderConfig: base(c.Gemini)},
		OpenAI: providers.OpenAIConfig{BaseProviderConfig: base(c.OpenAI)},
		Claude: providers.ClaudeConfig{BaseProviderConfig: base(c.Claude)},
		OpenRouter: providers.OpenRouterConfig{
			BaseProviderConfig: providers.BaseProviderConfig{BaseURL: c.OpenRouter.BaseURL, Probe: c.ProbeEnabled},
			Referer:            c.OpenRouter.Referer,
			Title:              c.OpenRouter.Title,
		},
	}
}

// extraModels 配置中追加的 OpenRouter 模型
func extraModels(c config.LLMConfig) []llm.ModelDescriptor {
	out := make([]llm.ModelDescriptor, 0, len(c.OpenRouter.ExtraModels))
	for _, m := range c.OpenRouter.ExtraModels {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		out = append(out, llm.OpenRouterModel(m.ID, name, m.Vision))
	}
	return out
}

// cacheConfig 设置缓存使用的 Redis 配置
func cacheConfig(r config.RedisConfig, st config.SettingsConfig) cache.Config {
	cc := cache.DefaultConfig()
	cc.Addr = r.Addr
	cc.Password = r.Password
	cc.DB = r.DB
	cc.TLS = r.TLS
	if r.KeyPrefix != "" {
		cc.KeyPrefix = r.KeyPrefix
	}
	if r.PoolSize > 0 {
		cc.PoolSize = r.PoolSize
	}
	if r.MinIdleConns > 0 {
		cc.MinIdleConns = r.MinIdleConns
	}
	if st.CacheTTL > 0 {
		cc.DefaultTTL = st.CacheTTL
	}
	return cc
}
