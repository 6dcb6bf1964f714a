package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/replybroker/config"
	"github.com/BaSui01/replybroker/llm"
)

// =============================================================================
// 🔑 设置存储
// =============================================================================

var (
	// ErrReadOnly 当前后端不支持写入（static 后端）
	ErrReadOnly = errors.New("settings backend is read-only")
	// ErrEmptyValue 写入空值
	ErrEmptyValue = errors.New("value must not be empty")
)

// Source 按厂商读取密钥，读取默认模型。未配置时返回空串和 nil。
type Source interface {
	Credential(ctx context.Context, vendor llm.Vendor) (string, error)
	DefaultModel(ctx context.Context) (string, error)
}

// Writer 可写后端
type Writer interface {
	SetCredential(ctx context.Context, vendor llm.Vendor, key string) error
	DeleteCredential(ctx context.Context, vendor llm.Vendor) error
	SetDefaultModel(ctx context.Context, modelID string) error
}

// KeyStatus 各厂商密钥是否已配置，不含密钥本身
type KeyStatus struct {
	// HasAPIKey 仅表示 Gemini 密钥，保留给旧客户端
	HasAPIKey bool       `json:"hasApiKey"`
	APIKeys   VendorKeys `json:"apiKeys"`
}

// VendorKeys 每个厂商一个布尔位
type VendorKeys struct {
	Gemini     bool `json:"gemini"`
	OpenAI     bool `json:"openai"`
	Claude     bool `json:"claude"`
	OpenRouter bool `json:"openrouter"`
}

func (k *VendorKeys) set(v llm.Vendor, present bool) {
	switch v {
	case llm.VendorGemini:
		k.Gemini = present
	case llm.VendorOpenAI:
		k.OpenAI = present
	case llm.VendorClaude:
		k.Claude = present
	case llm.VendorOpenRouter:
		k.OpenRouter = present
	}
}

// Service 把 Source 适配成编排器需要的按模型取密钥接口
type Service struct {
	src    Source
	static *StaticSource
	logger *zap.Logger
}

// New 创建设置服务
func New(src Source, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{src: src, logger: logger.With(zap.String("component", "settings"))}
	s.static = findStatic(src)
	return s
}

// NewFromConfig 按 settings.backend 组装后端；database 后端需要 db，
// cache 非空且开启缓存时在外层加读穿缓存
func NewFromConfig(cfg *config.Config, db DB, cache Cache, logger *zap.Logger) (*Service, error) {
	var src Source
	switch cfg.Settings.Backend {
	case config.SettingsBackendStatic, "":
		src = NewStaticSource(cfg.LLM)
	case config.SettingsBackendDatabase:
		if db == nil {
			return nil, fmt.Errorf("settings backend %q requires a database", cfg.Settings.Backend)
		}
		dbSrc, err := NewDBSource(db, cfg.LLM.DefaultModel, logger)
		if err != nil {
			return nil, err
		}
		src = dbSrc
	default:
		return nil, fmt.Errorf("unknown settings backend %q", cfg.Settings.Backend)
	}

	if cache != nil && cfg.Settings.CacheEnabled {
		src = NewCachedSource(src, cache, cfg.Settings.CacheTTL, logger)
	}
	return New(src, logger), nil
}

// GetCredential 返回模型所属厂商的密钥
func (s *Service) GetCredential(ctx context.Context, modelID string) (string, error) {
	vendor := llm.CredentialVendor(modelID)
	key, err := s.src.Credential(ctx, vendor)
	if err != nil {
		return "", fmt.Errorf("read %s credential: %w", vendor, err)
	}
	return strings.TrimSpace(key), nil
}

// GetDefaultModel 返回默认模型 ID
func (s *Service) GetDefaultModel(ctx context.Context) (string, error) {
	id, err := s.src.DefaultModel(ctx)
	if err != nil {
		return "", fmt.Errorf("read default model: %w", err)
	}
	return strings.TrimSpace(id), nil
}

// Status 汇总每个厂商密钥是否存在
func (s *Service) Status(ctx context.Context) (KeyStatus, error) {
	var st KeyStatus
	for _, v := range llm.Vendors() {
		key, err := s.src.Credential(ctx, v)
		if err != nil {
			return KeyStatus{}, fmt.Errorf("read %s credential: %w", v, err)
		}
		st.APIKeys.set(v, strings.TrimSpace(key) != "")
	}
	st.HasAPIKey = st.APIKeys.Gemini
	return st, nil
}

// Writable 报告后端是否支持写入
func (s *Service) Writable() bool {
	if w, ok := s.src.(interface{ Writable() bool }); ok {
		return w.Writable()
	}
	_, ok := s.src.(Writer)
	return ok
}

func (s *Service) writer() (Writer, error) {
	w, ok := s.src.(Writer)
	if !ok || !s.Writable() {
		return nil, ErrReadOnly
	}
	return w, nil
}

// SetCredential 写入厂商密钥，日志不记录密钥
func (s *Service) SetCredential(ctx context.Context, vendor llm.Vendor, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyValue
	}
	w, err := s.writer()
	if err != nil {
		return err
	}
	if err := w.SetCredential(ctx, vendor, key); err != nil {
		return err
	}
	s.logger.Info("credential updated", zap.String("vendor", string(vendor)))
	return nil
}

// DeleteCredential 删除厂商密钥
func (s *Service) DeleteCredential(ctx context.Context, vendor llm.Vendor) error {
	w, err := s.writer()
	if err != nil {
		return err
	}
	if err := w.DeleteCredential(ctx, vendor); err != nil {
		return err
	}
	s.logger.Info("credential deleted", zap.String("vendor", string(vendor)))
	return nil
}

// SetDefaultModel 写入默认模型，调用方负责确认模型已注册
func (s *Service) SetDefaultModel(ctx context.Context, modelID string) error {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return ErrEmptyValue
	}
	w, err := s.writer()
	if err != nil {
		return err
	}
	if err := w.SetDefaultModel(ctx, modelID); err != nil {
		return err
	}
	s.logger.Info("default model updated", zap.String("model", modelID))
	return nil
}

// Reload 配置文件变更后刷新 static 后端并清掉读穿缓存；其他后端返回 false
func (s *Service) Reload(ctx context.Context, cfg config.LLMConfig) bool {
	if s.static == nil {
		return false
	}
	s.static.Update(cfg)
	if c, ok := s.src.(*CachedSource); ok {
		c.Purge(ctx)
	}
	s.logger.Info("static settings reloaded")
	return true
}

// OnCacheLookup 在读穿缓存上注册命中回调；未启用缓存时返回 false
func (s *Service) OnCacheLookup(fn func(hit bool)) bool {
	c, ok := s.src.(*CachedSource)
	if !ok {
		return false
	}
	c.OnLookup(fn)
	return true
}

func findStatic(src Source) *StaticSource {
	switch v := src.(type) {
	case *StaticSource:
		return v
	case *CachedSource:
		return findStatic(v.next)
	}
	return nil
}
