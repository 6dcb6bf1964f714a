package llm

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Builder 产出一整套适配器，用于初始化与重建注册表。
type Builder func() ([]Provider, error)

// Registry 是模型 ID 到适配器的映射。
// 读多写少；写操作总是整表替换，从不局部修改。
type Registry struct {
	providers map[string]Provider
	order     []string
	build     Builder
	logger    *zap.Logger
	mu        sync.RWMutex
}

// NewRegistry 创建注册表并立即用 build 填充。
func NewRegistry(build Builder, logger *zap.Logger) (*Registry, error) {
	if build == nil {
		return nil, fmt.Errorf("registry builder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		providers: make(map[string]Provider),
		build:     build,
		logger:    logger.With(zap.String("component", "provider_registry")),
	}
	if err := r.rebuild(); err != nil {
		return nil, err
	}
	return r, nil
}

// EnsureReady 在注册表为空时重建，非空时什么也不做。
// 可重复调用；并发调用只会触发一次重建。
func (r *Registry) EnsureReady() error {
	if r.Len() > 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.providers) > 0 {
		return nil
	}
	r.logger.Warn("registry empty, rebuilding")
	return r.rebuildLocked()
}

// Replace 用一整套适配器替换当前内容。ID 重复时拒绝且不做任何修改。
func (r *Registry) Replace(providers []Provider) error {
	next, order, err := index(providers)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers, r.order = next, order
	return nil
}

// Clear 清空注册表，下一次 EnsureReady 会重建。
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = make(map[string]Provider)
	r.order = nil
}

// Resolve 按模型 ID 查找适配器。
func (r *Registry) Resolve(modelID string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[modelID]
	return p, ok
}

// Descriptor 返回模型描述。
func (r *Registry) Descriptor(modelID string) (ModelDescriptor, bool) {
	p, ok := r.Resolve(modelID)
	if !ok {
		return ModelDescriptor{}, false
	}
	return p.Descriptor(), true
}

// Descriptors 按注册顺序返回全部模型描述。
func (r *Registry) Descriptors() []ModelDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id].Descriptor())
	}
	return out
}

// IDs 返回排序后的模型 ID。
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len 返回已注册的适配器数量。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

func (r *Registry) rebuild() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuildLocked()
}

func (r *Registry) rebuildLocked() error {
	providers, err := r.build()
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}
	next, order, err := index(providers)
	if err != nil {
		return err
	}
	r.providers, r.order = next, order
	r.logger.Info("registry built", zap.Strings("models", order))
	return nil
}

func index(providers []Provider) (map[string]Provider, []string, error) {
	next := make(map[string]Provider, len(providers))
	order := make([]string, 0, len(providers))
	for _, p := range providers {
		id := p.Descriptor().ID
		if id == "" {
			return nil, nil, fmt.Errorf("provider with empty model id")
		}
		if _, dup := next[id]; dup {
			return nil, nil, fmt.Errorf("duplicate model id %q", id)
		}
		next[id] = p
		order = append(order, id)
	}
	return next, order, nil
}
