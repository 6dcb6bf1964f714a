/*
Package types 提供 replybroker 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 llm、reply、api 等上层模块
提供统一的错误码与 context 身份传播。

# 核心类型

  - Error / ErrorCode：结构化错误，含 HTTP 状态码、Retryable、Provider 标记
  - WithTenantID / WithUserID / WithRoles：JWT 身份写入 context
  - HasIdentity / HasRole / RoleAdmin：设置写入端点的角色检查
*/
package types
