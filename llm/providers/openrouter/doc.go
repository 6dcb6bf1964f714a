/*
# 概述

包 openrouter 提供 OpenRouter 聚合网关的 Provider 适配实现。
除直连的旧模型外，目录中的所有模型都经由这里调用。

# 协议差异

  - Bearer 认证，密钥以 sk-or- 开头
  - 附带 HTTP-Referer 与 X-Title 归属请求头
  - 402（余额不足）归类为 QuotaExceeded
  - 不做连通性探测
*/
package openrouter
