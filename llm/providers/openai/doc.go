// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 openai 提供 OpenAI 直连的 Provider 适配实现，嵌入 openaicompat.Provider，
只覆盖默认 BaseURL、模型、密钥格式（sk- 前缀）与组织请求头。

# 核心结构体

  - OpenAIProvider：嵌入 openaicompat.Provider

# 支持能力

  - Chat Completions（/v1/chat/completions）
  - image_url 多段内容（视觉输入）
  - 可选连通性探测（/v1/models）
*/
package openai
