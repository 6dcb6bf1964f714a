package settings

import (
	"context"
	"strings"
	"sync"

	"github.com/BaSui01/replybroker/config"
	"github.com/BaSui01/replybroker/llm"
)

// StaticSource 从配置文件与环境变量读取密钥，只读
type StaticSource struct {
	mu           sync.RWMutex
	keys         map[llm.Vendor]string
	defaultModel string
}

// NewStaticSource 从 LLM 配置创建
func NewStaticSource(cfg config.LLMConfig) *StaticSource {
	s := &StaticSource{}
	s.Update(cfg)
	return s
}

// Update 替换全部密钥与默认模型
func (s *StaticSource) Update(cfg config.LLMConfig) {
	keys := map[llm.Vendor]string{
		llm.VendorGemini:     strings.TrimSpace(cfg.Gemini.APIKey),
		llm.VendorOpenAI:     strings.TrimSpace(cfg.OpenAI.APIKey),
		llm.VendorClaude:     strings.TrimSpace(cfg.Claude.APIKey),
		llm.VendorOpenRouter: strings.TrimSpace(cfg.OpenRouter.APIKey),
	}
	s.mu.Lock()
	s.keys = keys
	s.defaultModel = strings.TrimSpace(cfg.DefaultModel)
	s.mu.Unlock()
}

// Credential implements Source.
func (s *StaticSource) Credential(_ context.Context, vendor llm.Vendor) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[vendor], nil
}

// DefaultModel implements Source.
func (s *StaticSource) DefaultModel(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultModel, nil
}
