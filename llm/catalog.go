package llm

import "strings"

// 默认模型与视觉回退模型。
const (
	DefaultModelID        = "x-ai/grok-code-fast-1"
	VisionFallbackModelID = "google/gemini-3-flash"
)

// 直连厂商的旧模型 ID，各自使用对应厂商的密钥。
const (
	LegacyGeminiModelID = "gemini-1.5-flash"
	LegacyOpenAIModelID = "gpt-4o"
	LegacyClaudeModelID = "claude-3-haiku"
)

// OpenRouterModel 构造经 OpenRouter 转发的模型描述。
func OpenRouterModel(id, name string, vision bool) ModelDescriptor {
	return ModelDescriptor{
		ID:                 id,
		DisplayName:        name,
		Vendor:             VendorOpenRouter,
		IsFree:             strings.Contains(id, ":free"),
		RequiresCredential: true,
		SupportsVision:     vision,
	}
}

// BuiltinModels 返回默认注册的模型目录。
func BuiltinModels() []ModelDescriptor {
	return []ModelDescriptor{
		OpenRouterModel("x-ai/grok-code-fast-1", "Grok Code Fast 1", false),
		OpenRouterModel("google/gemini-3-flash", "Google Gemini 3 Flash", true),
		OpenRouterModel("openai/gpt-5.2", "OpenAI GPT-5.2", true),
		OpenRouterModel("anthropic/claude-sonnet-4.5", "Claude Sonnet 4.5", true),
		{
			ID:                 LegacyGeminiModelID,
			DisplayName:        "Google Gemini 1.5 Flash",
			Vendor:             VendorGemini,
			IsFree:             true,
			RequiresCredential: true,
			SupportsVision:     true,
		},
		{
			ID:                 LegacyOpenAIModelID,
			DisplayName:        "OpenAI GPT-4o",
			Vendor:             VendorOpenAI,
			RequiresCredential: true,
			SupportsVision:     true,
		},
		{
			ID:                 LegacyClaudeModelID,
			DisplayName:        "Claude 3 Haiku",
			Vendor:             VendorClaude,
			RequiresCredential: true,
			SupportsVision:     true,
		},
	}
}

// CredentialVendor 返回某模型 ID 应使用哪个厂商的密钥。
// 旧的直连 ID 用各自厂商的密钥，其余全部走 OpenRouter。
func CredentialVendor(modelID string) Vendor {
	switch modelID {
	case LegacyGeminiModelID:
		return VendorGemini
	case LegacyOpenAIModelID:
		return VendorOpenAI
	case LegacyClaudeModelID:
		return VendorClaude
	}
	return VendorOpenRouter
}
