package config

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 🔄 配置重载
// =============================================================================

// ConfigChange 描述一个叶子字段的变化，敏感字段的值已脱敏
type ConfigChange struct {
	Path     string `json:"path"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// ReloadCallback 在新配置生效后调用
type ReloadCallback func(oldConfig, newConfig *Config, changes []ConfigChange)

// Reloader 持有当前配置，文件变更时重新加载、校验并通知订阅者。
// 加载或校验失败时保留旧配置。
type Reloader struct {
	mu        sync.RWMutex
	config    *Config
	path      string
	envPrefix string
	callbacks []ReloadCallback
	watcher   *FileWatcher
	logger    *zap.Logger
}

// NewReloader 以已加载的配置创建重载器
func NewReloader(cfg *Config, path string, logger *zap.Logger) *Reloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reloader{
		config:    cfg,
		path:      path,
		envPrefix: DefaultEnvPrefix,
		logger:    logger.With(zap.String("component", "config_reloader")),
	}
}

// Config 返回当前配置，调用方不得修改
func (r *Reloader) Config() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// OnReload 注册重载回调
func (r *Reloader) OnReload(cb ReloadCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

// Start 监听配置文件；没有配置路径时什么也不做
func (r *Reloader) Start(ctx context.Context, opts ...WatcherOption) error {
	if r.path == "" {
		return nil
	}
	opts = append([]WatcherOption{WithWatcherLogger(r.logger), WithDebounceDelay(500 * time.Millisecond)}, opts...)
	w, err := NewFileWatcher([]string{r.path}, opts...)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.OnChange(func(evt FileEvent) {
		if evt.Op == FileOpRemove {
			r.logger.Warn("config file removed, keeping current config", zap.String("path", evt.Path))
			return
		}
		if err := r.Reload(); err != nil {
			r.logger.Error("config reload failed", zap.Error(err))
		}
	})
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	r.mu.Lock()
	r.watcher = w
	r.mu.Unlock()
	return nil
}

// Stop 停止监听
func (r *Reloader) Stop() error {
	r.mu.Lock()
	w := r.watcher
	r.watcher = nil
	r.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Stop()
}

// Reload 从文件重新加载配置并通知订阅者
func (r *Reloader) Reload() error {
	next, err := NewLoader().WithConfigPath(r.path).WithEnvPrefix(r.envPrefix).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid config, keeping current: %w", err)
	}

	r.mu.Lock()
	prev := r.config
	r.config = next
	callbacks := append([]ReloadCallback(nil), r.callbacks...)
	r.mu.Unlock()

	changes := DiffConfigs(prev, next)
	for _, c := range changes {
		r.logger.Info("configuration changed",
			zap.String("path", c.Path),
			zap.Any("old_value", c.OldValue),
			zap.Any("new_value", c.NewValue))
	}

	for _, cb := range callbacks {
		r.notify(cb, prev, next, changes)
	}
	r.logger.Info("configuration reloaded", zap.Int("changes", len(changes)))
	return nil
}

// notify 隔离回调 panic，单个订阅者失败不影响其他订阅者
func (r *Reloader) notify(cb ReloadCallback, prev, next *Config, changes []ConfigChange) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("reload callback panicked", zap.Any("panic", rec))
		}
	}()
	cb(prev, next, changes)
}

// DiffConfigs 比较两份配置的叶子字段，路径形如 LLM.OpenRouter.APIKey
func DiffConfigs(oldConfig, newConfig *Config) []ConfigChange {
	var changes []ConfigChange
	if oldConfig == nil || newConfig == nil {
		return changes
	}
	compareStructs("", reflect.ValueOf(oldConfig).Elem(), reflect.ValueOf(newConfig).Elem(), &changes)
	return changes
}

func compareStructs(prefix string, oldVal, newVal reflect.Value, changes *[]ConfigChange) {
	t := oldVal.Type()
	for i := 0; i < oldVal.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		path := field.Name
		if prefix != "" {
			path = prefix + "." + field.Name
		}

		oldField, newField := oldVal.Field(i), newVal.Field(i)
		if oldField.Kind() == reflect.Struct {
			compareStructs(path, oldField, newField, changes)
			continue
		}
		if reflect.DeepEqual(oldField.Interface(), newField.Interface()) {
			continue
		}

		change := ConfigChange{Path: path, OldValue: oldField.Interface(), NewValue: newField.Interface()}
		if isSensitive(field.Name) {
			change.OldValue, change.NewValue = redacted, redacted
		}
		*changes = append(*changes, change)
	}
}

const redacted = "[REDACTED]"

var sensitiveKeys = []string{"password", "apikey", "secret", "token", "credential", "publickey"}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, k := range sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
