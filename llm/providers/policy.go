package providers

import (
	"fmt"
	"time"

	"github.com/BaSui01/replybroker/llm"
)

// =============================================================================
// 📐 调用策略（所有厂商共用，集中为具名常量）
// =============================================================================

const (
	// MaxAttempts 单次调用的最大尝试次数（含首次）
	MaxAttempts = 3
	// RetryStep 重试间隔步长，第 n 次失败后等待 n × RetryStep
	RetryStep = 2 * time.Second
	// RequestTimeout 单次 HTTP 请求的硬超时
	RequestTimeout = 30 * time.Second
	// ProbeTimeout 连通性探测超时
	ProbeTimeout = 8 * time.Second

	Temperature     = 0.7
	TopP            = 0.95
	TopK            = 40 // 仅 Gemini
	MaxOutputTokens = 200

	// MaxImages 每次调用最多转发的图片数
	MaxImages = 2
)

// 各厂商密钥的格式要求：前缀与最短长度
const (
	GeminiKeyPrefix     = "AIza"
	GeminiKeyMinLen     = 30
	OpenAIKeyPrefix     = "sk-"
	OpenAIKeyMinLen     = 20
	ClaudeKeyPrefix     = "sk-ant-"
	ClaudeKeyMinLen     = 30
	OpenRouterKeyPrefix = "sk-or-"
	OpenRouterKeyMinLen = 20
)

// ValidateCredential 按厂商校验密钥格式，设置写入前与适配器调用前共用
func ValidateCredential(vendor llm.Vendor, credential string) *llm.Error {
	switch vendor {
	case llm.VendorGemini:
		return CheckCredentialShape(credential, GeminiKeyPrefix, GeminiKeyMinLen, string(vendor))
	case llm.VendorOpenAI:
		return CheckCredentialShape(credential, OpenAIKeyPrefix, OpenAIKeyMinLen, string(vendor))
	case llm.VendorClaude:
		return CheckCredentialShape(credential, ClaudeKeyPrefix, ClaudeKeyMinLen, string(vendor))
	case llm.VendorOpenRouter:
		return CheckCredentialShape(credential, OpenRouterKeyPrefix, OpenRouterKeyMinLen, string(vendor))
	}
	return llm.NewError(llm.KindUnknown, "unknown vendor: "+string(vendor), "")
}

// SystemInstruction 是所有厂商共用的系统指令。
const SystemInstruction = "你是一個專業的社群媒體回覆助手，專門為 Threads 平台生成合適的回覆。請根據用戶提供的風格指示和貼文內容，生成一個簡潔、相關且符合指定風格的回覆。"

const promptTemplate = `%s

貼文內容：「%s」

請根據以上指示生成一個合適的回覆。回覆應該：
1. 簡潔有力（1-2句話）
2. 與貼文內容相關
3. 符合指定的風格
4. 使用繁體中文
5. 避免過度使用表情符號

請直接提供回覆內容，不需要額外說明：`

// FormatPrompt 把风格指示与贴文组装成发给厂商的用户消息。
func FormatPrompt(postText, stylePrompt string) string {
	return fmt.Sprintf(promptTemplate, stylePrompt, postText)
}

// LimitImages 截取前 MaxImages 张有效图片。
func LimitImages(images []llm.Image) []llm.Image {
	out := make([]llm.Image, 0, MaxImages)
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		out = append(out, img)
		if len(out) == MaxImages {
			break
		}
	}
	return out
}

// RetryDelay 返回第 attempt 次失败后的等待时间。
func RetryDelay(attempt int) time.Duration {
	return time.Duration(attempt) * RetryStep
}
