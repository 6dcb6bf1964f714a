// Package factory 按模型描述创建厂商适配器，
// 并为 llm.Registry 提供整表构建函数。
package factory
