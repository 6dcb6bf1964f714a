// Package config 提供 ReplyBroker 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，
// FileWatcher 轮询配置文件，Reloader 在文件变更时重新加载并通知订阅者。
package config
