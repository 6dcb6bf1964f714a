package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/replybroker/config"
)

// =============================================================================
// 🌐 HTTP 服务器管理器
// =============================================================================

type state int

const (
	stateIdle state = iota
	stateRunning
	stateClosed
)

// Config 服务器配置
type Config struct {
	// 监听地址
	Addr string `yaml:"addr" json:"addr"`

	// 读取整个请求的超时
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout"`

	// 读取请求头的超时
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" json:"read_header_timeout"`

	// 写入超时，需覆盖一次带重试的厂商调用
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`

	// 空闲超时
	IdleTimeout time.Duration `yaml:"idle_timeout" json:"idle_timeout"`

	// 最大请求头大小
	MaxHeaderBytes int `yaml:"max_header_bytes" json:"max_header_bytes"`

	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig 返回默认服务器配置
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10,
		ShutdownTimeout:   15 * time.Second,
	}
}

// FromServerConfig 由服务配置生成指定端口的服务器配置，零值沿用默认。
// 空闲超时取读取超时的两倍。
func FromServerConfig(sc config.ServerConfig, port int) Config {
	cfg := DefaultConfig()
	cfg.Addr = fmt.Sprintf(":%d", port)
	if sc.ReadTimeout > 0 {
		cfg.ReadTimeout = sc.ReadTimeout
		cfg.IdleTimeout = 2 * sc.ReadTimeout
	}
	if sc.WriteTimeout > 0 {
		cfg.WriteTimeout = sc.WriteTimeout
	}
	if sc.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = sc.ShutdownTimeout
	}
	return cfg
}

// Manager 管理单个 http.Server 的启动、异步错误与优雅关闭
type Manager struct {
	server *http.Server
	config Config
	logger *zap.Logger
	errCh  chan error

	mu       sync.RWMutex
	state    state
	listener net.Listener
}

// NewManager 创建服务器管理器
func NewManager(handler http.Handler, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		},
		config: cfg,
		logger: logger.With(zap.String("component", "http_server"), zap.String("addr", cfg.Addr)),
		errCh:  make(chan error, 1),
	}
}

// OnShutdown 注册关闭钩子。http.Server.Shutdown 不等待被劫持的连接（websocket），
// 这些连接需要在钩子里自行关闭。
func (m *Manager) OnShutdown(fn func()) {
	m.server.RegisterOnShutdown(fn)
}

// Start 监听端口并在后台提供服务（非阻塞）
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case stateRunning:
		return fmt.Errorf("server already started")
	case stateClosed:
		return fmt.Errorf("server is closed")
	}

	listener, err := net.Listen("tcp", m.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.config.Addr, err)
	}
	m.listener = listener
	m.state = stateRunning
	m.logger.Info("starting HTTP server", zap.String("listen", listener.Addr().String()))

	go func() {
		err := m.server.Serve(listener)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return
		}
		m.logger.Error("HTTP server failed", zap.Error(err))
		select {
		case m.errCh <- err:
		default:
		}
	}()
	return nil
}

// Shutdown 优雅关闭；重复调用或未启动时为空操作
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state
	m.state = stateClosed
	if prev != stateRunning {
		return nil
	}

	m.logger.Info("shutting down HTTP server")
	ctx, cancel := context.WithTimeout(ctx, m.config.ShutdownTimeout)
	defer cancel()

	if err := m.server.Shutdown(ctx); err != nil {
		m.logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}
	m.logger.Info("HTTP server stopped")
	return nil
}

// WaitForShutdown 阻塞到收到 SIGINT/SIGTERM 或服务异常退出，然后关闭服务器
func (m *Manager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		m.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-m.errCh:
		m.logger.Error("server exited unexpectedly", zap.Error(err))
	}

	if err := m.Shutdown(context.Background()); err != nil {
		m.logger.Error("shutdown error", zap.Error(err))
	}
}

// Errors 返回 Serve 的异步错误
func (m *Manager) Errors() <-chan error {
	return m.errCh
}

// Addr 返回配置的监听地址
func (m *Manager) Addr() string {
	return m.config.Addr
}

// ListenAddr 返回实际监听地址（端口为 0 时由系统分配），未启动时为空
func (m *Manager) ListenAddr() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

// IsRunning 已启动且未关闭
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == stateRunning
}
