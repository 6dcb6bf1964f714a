// Package tokenizer 估算提示词的 token 数，
// 优先使用 tiktoken 精确计数，不可用时退回 CJK 感知的字符估算。
package tokenizer
