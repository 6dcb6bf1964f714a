package tokenizer

import "strings"

// Counter 统计提示词的 token 数。
type Counter interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// Name 返回计数器名称，用于日志.
	Name() string
}

// ForModel 返回适合该模型 ID 的计数器。
// OpenRouter 风格的 "vendor/model" 取斜杠后的部分匹配编码表；
// tiktoken 初始化失败时自动退回 CJK 估算。
func ForModel(modelID string) Counter {
	name := modelID
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return &fallbackCounter{
		primary:  NewTiktokenCounter(name),
		fallback: NewEstimator(),
	}
}

// Count 是忽略错误的便捷函数，估算失败时返回 0。
func Count(c Counter, text string) int {
	n, err := c.CountTokens(text)
	if err != nil {
		return 0
	}
	return n
}

type fallbackCounter struct {
	primary  Counter
	fallback Counter
}

func (f *fallbackCounter) CountTokens(text string) (int, error) {
	n, err := f.primary.CountTokens(text)
	if err == nil {
		return n, nil
	}
	return f.fallback.CountTokens(text)
}

func (f *fallbackCounter) Name() string {
	return f.primary.Name() + "|" + f.fallback.Name()
}
