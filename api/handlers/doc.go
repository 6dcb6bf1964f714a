// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 replybroker HTTP API 的请求处理器实现。

# 概述

handlers 包实现回复生成、帖文分析、密钥状态、模型目录、设置写入、
用量查询与健康检查端点，以及统一的响应/错误处理。
消息端点与 websocket 共用 ReplyHandler.Dispatch，三种消息类型
（GENERATE_REPLY、ANALYZE_POST、API_KEY_STATUS）只有一处实现。

# 核心类型

  - ReplyHandler：单条/批量回复、分析、密钥状态与消息信封分发
  - WSHandler：websocket 长连接，每个连接一个有界工作池
  - ModelsHandler：已注册模型目录与当前默认模型
  - SettingsHandler：写入/删除厂商密钥、设置默认模型、读取用量日志
  - HealthHandler：服务健康检查（/health, /healthz, /ready, /version）
  - Response：统一 JSON 响应结构（success + data + error + timestamp）

# 状态码

REST 回复端点的响应体始终是消息契约本身，失败时状态码由错误类型决定，
未注册的模型返回 404。消息端点与 websocket 总是把结果装在信封 data 里，
只有信封本身不合法时才返回错误。
*/
package handlers
