// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package reply 编排一次回复生成：解析模型（含视觉回退）、按模型取密钥、
组装提示词、调用适配器并清理模型输出。

# 状态机

每个请求依次经过 Idle → ResolvingModel → ResolvingCredential →
BuildingPrompt → Calling → PostProcessing → Done，任何一步失败都进入
Failed，并携带本地化的用户提示与独立的调试信息。

# 分析

Analyzer 复用同一套模型解析与密钥查找，要求模型输出 STYLE/STRATEGY/REASON
三行，ParseAnalysis 解析失败时回退到默认三元组。
*/
package reply
