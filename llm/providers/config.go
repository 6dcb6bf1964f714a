package providers

import "time"

// BaseProviderConfig 所有 Provider 共享的基础配置字段。
// 密钥不在这里：每次调用由 ReplyRequest.Credential 携带。
type BaseProviderConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Probe 为 true 时每次调用前先做连通性探测
	Probe bool `json:"probe,omitempty" yaml:"probe,omitempty"`
}

// RequestTimeoutOrDefault 返回单次请求超时。
func (c BaseProviderConfig) RequestTimeoutOrDefault() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return RequestTimeout
}

// OpenAIConfig OpenAI Provider 配置
type OpenAIConfig struct {
	BaseProviderConfig `yaml:",inline"`
	Organization       string `json:"organization,omitempty" yaml:"organization,omitempty"`
}

// ClaudeConfig Claude Provider 配置
type ClaudeConfig struct {
	BaseProviderConfig `yaml:",inline"`
	AnthropicVersion   string `json:"anthropic_version,omitempty" yaml:"anthropic_version,omitempty"`
}

// GeminiConfig Gemini Provider 配置
type GeminiConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// OpenRouterConfig OpenRouter Provider 配置
type OpenRouterConfig struct {
	BaseProviderConfig `yaml:",inline"`
	Referer            string `json:"referer,omitempty" yaml:"referer,omitempty"`
	Title              string `json:"title,omitempty" yaml:"title,omitempty"`
}
