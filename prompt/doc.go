// Package prompt 构建发给模型的提示词：回复提示词（风格策略表 + 规则组合）、
// 分析提示词、分析与生成合并的提示词，以及主文/留言的上下文标注。
// 所有构建函数都是纯函数，不做 I/O，也不含随机性。
package prompt
