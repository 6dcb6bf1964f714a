// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 gemini 提供 Google Gemini 直连的 Provider 适配实现，
请求 generateContent 接口（/v1beta/models/{model}:generateContent）。

# 核心结构体

  - GeminiProvider：独立实现 llm.Provider，不依赖 openaicompat

# 协议差异

  - 认证使用 x-goog-api-key 请求头，密钥以 AIza 开头
  - 系统指令放在 systemInstruction，用户内容在 contents.parts
  - 图片以 fileData{mimeType,fileUri} 片段传递
  - 没有候选且 promptFeedback.blockReason 非空时视为内容过滤
  - finishReason 为 SAFETY 等时视为内容过滤，MAX_TOKENS 视为截断
*/
package gemini
