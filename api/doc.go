// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

// Package api 定义 replybroker 对外的消息契约。
//
// 三种消息 GENERATE_REPLY、ANALYZE_POST、API_KEY_STATUS 既可以走各自的
// REST 端点，也可以装进 Envelope 经 /api/v1/messages 或 websocket 投递：
//
//	{"type": "GENERATE_REPLY", "id": "42", "data": {"postText": "...", "style": "casual"}}
//
// 响应体保持扩展端使用的形状：success 加上 reply/analysis，失败时 error 为
// 本地化的用户提示，debugInfo 为上游原始信息。密钥状态只包含布尔位。
//
// 鉴权：除健康检查外的端点需要 X-API-Key 头，或在启用 JWT 时使用
// Authorization: Bearer。
package api
