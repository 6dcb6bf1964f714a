package settings

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/replybroker/internal/cache"
	"github.com/BaSui01/replybroker/llm"
)

// Cache 读穿缓存所需的最小接口，*cache.Manager 满足该接口
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

const (
	settingsKeyPrefix   = "settings:"
	credentialKeyPrefix = settingsKeyPrefix + "credential:"
	defaultModelKey     = settingsKeyPrefix + "default_model"
)

// CachedSource 在任意 Source 前加 Redis 读穿缓存；写入后失效对应键。
// 缓存故障只记录日志并回落到底层 Source。
type CachedSource struct {
	next   Source
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger

	onLookup func(hit bool)
}

// NewCachedSource 包装 next
func NewCachedSource(next Source, c Cache, ttl time.Duration, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "settings_cache")),
	}
}

// OnLookup 注册命中回调，用于指标采集；需在开始服务前调用
func (c *CachedSource) OnLookup(fn func(hit bool)) {
	c.onLookup = fn
}

func (c *CachedSource) lookup(hit bool) {
	if c.onLookup != nil {
		c.onLookup(hit)
	}
}

func credentialKey(v llm.Vendor) string { return credentialKeyPrefix + string(v) }

// Credential implements Source.
func (c *CachedSource) Credential(ctx context.Context, vendor llm.Vendor) (string, error) {
	return c.readThrough(ctx, credentialKey(vendor), func() (string, error) {
		return c.next.Credential(ctx, vendor)
	})
}

// DefaultModel implements Source.
func (c *CachedSource) DefaultModel(ctx context.Context) (string, error) {
	return c.readThrough(ctx, defaultModelKey, func() (string, error) {
		return c.next.DefaultModel(ctx)
	})
}

func (c *CachedSource) readThrough(ctx context.Context, key string, load func() (string, error)) (string, error) {
	val, err := c.cache.Get(ctx, key)
	if err == nil {
		c.lookup(true)
		return val, nil
	}
	c.lookup(false)
	if !cache.IsCacheMiss(err) {
		c.logger.Warn("settings cache read failed", zap.String("key", key), zap.Error(err))
	}

	val, err = load()
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, key, val, c.ttl); err != nil {
		c.logger.Warn("settings cache write failed", zap.String("key", key), zap.Error(err))
	}
	return val, nil
}

// Writable 报告底层后端是否可写
func (c *CachedSource) Writable() bool {
	_, ok := c.next.(Writer)
	return ok
}

func (c *CachedSource) writer() (Writer, error) {
	w, ok := c.next.(Writer)
	if !ok {
		return nil, ErrReadOnly
	}
	return w, nil
}

func (c *CachedSource) invalidate(ctx context.Context, key string) {
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.Warn("settings cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

// Purge 丢弃全部缓存的设置键，底层后端整体变化（配置热重载）后调用
func (c *CachedSource) Purge(ctx context.Context) {
	n, err := c.cache.DeletePrefix(ctx, settingsKeyPrefix)
	if err != nil {
		c.logger.Warn("settings cache purge failed", zap.Error(err))
		return
	}
	c.logger.Info("settings cache purged", zap.Int("keys", n))
}

// SetCredential implements Writer.
func (c *CachedSource) SetCredential(ctx context.Context, vendor llm.Vendor, key string) error {
	w, err := c.writer()
	if err != nil {
		return err
	}
	if err := w.SetCredential(ctx, vendor, key); err != nil {
		return err
	}
	c.invalidate(ctx, credentialKey(vendor))
	return nil
}

// DeleteCredential implements Writer.
func (c *CachedSource) DeleteCredential(ctx context.Context, vendor llm.Vendor) error {
	w, err := c.writer()
	if err != nil {
		return err
	}
	if err := w.DeleteCredential(ctx, vendor); err != nil {
		return err
	}
	c.invalidate(ctx, credentialKey(vendor))
	return nil
}

// SetDefaultModel implements Writer.
func (c *CachedSource) SetDefaultModel(ctx context.Context, modelID string) error {
	w, err := c.writer()
	if err != nil {
		return err
	}
	if err := w.SetDefaultModel(ctx, modelID); err != nil {
		return err
	}
	c.invalidate(ctx, defaultModelKey)
	return nil
}
