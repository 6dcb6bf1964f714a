// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 claude 提供 Anthropic Claude 直连的 Provider 适配实现，
请求 Anthropic Messages API（/v1/messages）。

# 核心结构体

  - ClaudeProvider：独立实现 llm.Provider（未嵌入 openaicompat）

# 协议差异

  - 认证使用 x-api-key 请求头（非 Bearer Token），并附带 anthropic-version
  - system 单独传递到 system 字段
  - 消息 content 为数组形式，图片以 {"type":"image","source":{"type":"url"}} 传递
  - 取第一个 type 为 text 的内容块；stop_reason 为 max_tokens 视为截断
*/
package claude
