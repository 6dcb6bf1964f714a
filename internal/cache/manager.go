package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/replybroker/internal/tlsutil"
)

// =============================================================================
// 💾 Redis 缓存管理器
// =============================================================================

const (
	pingTimeout = 5 * time.Second
	// scanBatch 每轮 SCAN 取回的键数提示
	scanBatch = 100
)

var (
	// ErrCacheMiss 缓存未命中
	ErrCacheMiss = errors.New("cache miss")
	// ErrClosed 管理器已关闭
	ErrClosed = errors.New("cache manager is closed")
)

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// Config 缓存配置
type Config struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`

	// 键前缀，多个实例共用一个 Redis 时用来隔离
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`

	// Set 未给出 TTL 时使用
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl"`

	MaxRetries   int `yaml:"max_retries" json:"max_retries"`
	PoolSize     int `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// 后台 PING 间隔，0 表示关闭
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`

	TLS bool `yaml:"tls" json:"tls"`
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		KeyPrefix:           "replybroker:",
		DefaultTTL:          5 * time.Minute,
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

func (c Config) options() *redis.Options {
	opts := &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		MaxRetries:   c.MaxRetries,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
	if c.TLS {
		opts.TLSConfig = tlsutil.RedisTLSConfig(c.Addr)
	}
	return opts
}

// Manager 持有 Redis 客户端，所有键自动加 KeyPrefix
type Manager struct {
	client *redis.Client
	config Config
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	stop   chan struct{}
	done   chan struct{}
}

// NewManager 连接 Redis，PING 不通时返回错误
func NewManager(config Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(config.options())
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}

	m := &Manager{
		client: client,
		config: config,
		logger: logger.With(zap.String("component", "cache")),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if config.HealthCheckInterval > 0 {
		go m.watch(config.HealthCheckInterval)
	} else {
		close(m.done)
	}

	m.logger.Info("redis cache connected",
		zap.String("addr", config.Addr),
		zap.String("key_prefix", config.KeyPrefix),
		zap.Bool("tls", config.TLS),
	)
	return m, nil
}

func (m *Manager) key(k string) string {
	return m.config.KeyPrefix + k
}

// guard 持读锁执行 fn，关闭后直接返回 ErrClosed
func (m *Manager) guard(fn func() error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return fn()
}

// Get 读取键值，未命中返回 ErrCacheMiss
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	var val string
	err := m.guard(func() error {
		v, err := m.client.Get(ctx, m.key(key)).Result()
		switch {
		case errors.Is(err, redis.Nil):
			return ErrCacheMiss
		case err != nil:
			return fmt.Errorf("cache get %q: %w", key, err)
		}
		val = v
		return nil
	})
	return val, err
}

// Set 写入键值，ttl 为 0 时使用 DefaultTTL。
// 空字符串也会写入，表示“已确认未配置”。
func (m *Manager) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}
	return m.guard(func() error {
		if err := m.client.Set(ctx, m.key(key), value, ttl).Err(); err != nil {
			return fmt.Errorf("cache set %q: %w", key, err)
		}
		return nil
	})
}

// Delete 删除若干键，不存在的键忽略
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = m.key(k)
	}
	return m.guard(func() error {
		if err := m.client.Del(ctx, full...).Err(); err != nil {
			return fmt.Errorf("cache delete: %w", err)
		}
		return nil
	})
}

// DeletePrefix 用 SCAN 删除 KeyPrefix+prefix 开头的所有键，返回删除数量。
// 不使用 KEYS，避免大库上阻塞 Redis。
func (m *Manager) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var deleted int
	err := m.guard(func() error {
		iter := m.client.Scan(ctx, 0, m.key(prefix)+"*", scanBatch).Iterator()
		batch := make([]string, 0, scanBatch)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			n, err := m.client.Del(ctx, batch...).Result()
			if err != nil {
				return err
			}
			deleted += int(n)
			batch = batch[:0]
			return nil
		}
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == scanBatch {
				if err := flush(); err != nil {
					return fmt.Errorf("cache delete prefix %q: %w", prefix, err)
				}
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("cache scan prefix %q: %w", prefix, err)
		}
		if err := flush(); err != nil {
			return fmt.Errorf("cache delete prefix %q: %w", prefix, err)
		}
		return nil
	})
	if err == nil && deleted > 0 {
		m.logger.Debug("cache keys purged", zap.String("prefix", prefix), zap.Int("deleted", deleted))
	}
	return deleted, err
}

// Ping 就绪检查使用
func (m *Manager) Ping(ctx context.Context) error {
	return m.guard(func() error {
		return m.client.Ping(ctx).Err()
	})
}

// Close 停止后台检查并关闭连接，可重复调用
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.stop)
	m.mu.Unlock()

	<-m.done
	m.logger.Info("redis cache closed")
	return m.client.Close()
}

// watch 周期性 PING，只记录状态变化
func (m *Manager) watch(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
			err := m.client.Ping(ctx).Err()
			cancel()
			switch {
			case err != nil && healthy:
				m.logger.Warn("redis unreachable, settings reads fall back to backend", zap.Error(err))
			case err == nil && !healthy:
				m.logger.Info("redis reachable again")
			}
			healthy = err == nil
		}
	}
}
