// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 是所有厂商适配器的公共基础层。各厂商子包（gemini、openai、
anthropic、openrouter）依赖本包完成密钥格式校验、连通性探测、HTTP 执行、
错误分类与重试。

# 核心类型

  - BaseProviderConfig：所有 Provider 共享的基础配置（BaseURL、Model、Timeout、Probe）
  - Retrier：线性退避重试（第 n 次失败后等待 n × RetryStep，最多 MaxAttempts 次）
  - Options / Option：HTTP 客户端、等待函数、尝试观察者的注入点

# 核心函数

  - ClassifyHTTPError：唯一的 HTTP 状态码到 llm.ErrorKind 的分类点
  - CheckCredentialShape：本地密钥格式校验，不合格时不发请求
  - Probe：8 秒超时的连通性探测，非 5xx 均视为可达
  - PostJSON：30 秒硬超时的 JSON 请求，超时归类为 NetworkError
  - FormatPrompt：组装发给厂商的用户消息

# 重试规则

  - InvalidCredential、QuotaExceeded、RateLimited 首次出现即返回
  - ContentFiltered、TruncatedOutput 从不重试
  - NetworkError、MalformedResponse、上游 5xx 重试至次数用尽
*/
package providers
