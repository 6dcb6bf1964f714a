// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供回复生成的模型接入层：适配器契约、错误分类、模型目录与注册表。

# 概述

不同厂商在鉴权、请求格式与错误语义上各不相同。本包定义统一的
[Provider] 契约（只有一个 Call），由 providers 子包实现四个厂商变体，
上层编排只依赖本包的类型。

# 核心类型

  - [Provider]：厂商适配器，Descriptor + Call
  - [ModelDescriptor]：模型描述（ID、显示名、厂商、是否免费、是否支持视觉）
  - [ReplyRequest] / [ReplyResult]：单次调用的输入与结果，结果恰好是 Ok 或 Err
  - [Error] / [ErrorKind]：分类错误，Message 面向用户，Detail 保留原始信息
  - [Registry]：模型 ID 到适配器的映射，整表替换，EnsureReady 幂等重建

# 错误语义

InvalidCredential、QuotaExceeded、RateLimited、MissingCredential 为终止类错误；
NetworkError、MalformedResponse 与上游 5xx 的 Unknown 可重试；
ContentFiltered、TruncatedOutput 从不重试。

# 模型目录

[BuiltinModels] 返回默认注册的模型，[CredentialVendor] 决定某个模型
使用哪个厂商的密钥，[DefaultModelID] 与 [VisionFallbackModelID]
分别是默认模型与带图请求的视觉回退模型。
*/
package llm
