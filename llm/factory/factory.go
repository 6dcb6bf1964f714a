// Package factory builds adapter instances from model descriptors. It imports
// all provider sub-packages and switches on the closed Vendor set, breaking
// the import cycle that would occur if this logic lived in the llm package.
package factory

import (
	"fmt"

	"github.com/BaSui01/replybroker/llm"
	"github.com/BaSui01/replybroker/llm/providers"
	claude "github.com/BaSui01/replybroker/llm/providers/anthropic"
	"github.com/BaSui01/replybroker/llm/providers/gemini"
	"github.com/BaSui01/replybroker/llm/providers/openai"
	"github.com/BaSui01/replybroker/llm/providers/openrouter"
	"go.uber.org/zap"
)

// VendorConfigs 汇总四个厂商的配置。
type VendorConfigs struct {
	Gemini     providers.GeminiConfig     `json:"gemini" yaml:"gemini"`
	OpenAI     providers.OpenAIConfig     `json:"openai" yaml:"openai"`
	Claude     providers.ClaudeConfig     `json:"claude" yaml:"claude"`
	OpenRouter providers.OpenRouterConfig `json:"openrouter" yaml:"openrouter"`
}

// NewProvider 按描述中的厂商标签创建适配器。
// 厂商集合是封闭的：新增厂商就是在这里新增一个分支。
func NewProvider(desc llm.ModelDescriptor, cfgs VendorConfigs, logger *zap.Logger, opts ...providers.Option) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch desc.Vendor {
	case llm.VendorGemini:
		return gemini.NewGeminiProvider(cfgs.Gemini, desc, logger, opts...), nil
	case llm.VendorOpenAI:
		return openai.NewOpenAIProvider(cfgs.OpenAI, desc, logger, opts...), nil
	case llm.VendorClaude:
		return claude.NewClaudeProvider(cfgs.Claude, desc, logger, opts...), nil
	case llm.VendorOpenRouter:
		return openrouter.NewOpenRouterProvider(cfgs.OpenRouter, desc, logger, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported vendor %q for model %q", desc.Vendor, desc.ID)
	}
}

// Catalog 返回内置模型加上额外的 OpenRouter 模型。
// 额外模型与内置 ID 重复时跳过。
func Catalog(extra []llm.ModelDescriptor) []llm.ModelDescriptor {
	out := llm.BuiltinModels()
	seen := make(map[string]bool, len(out)+len(extra))
	for _, d := range out {
		seen[d.ID] = true
	}
	for _, d := range extra {
		if d.ID == "" || seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out
}

// Builder 返回用于 llm.Registry 的构建函数。
func Builder(catalog []llm.ModelDescriptor, cfgs VendorConfigs, logger *zap.Logger, opts ...providers.Option) llm.Builder {
	return func() ([]llm.Provider, error) {
		out := make([]llm.Provider, 0, len(catalog))
		for _, desc := range catalog {
			p, err := NewProvider(desc, cfgs, logger, opts...)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	}
}
