// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 ReplyBroker 服务端程序入口。

# 概述

cmd/replybroker 组装设置存储、模型注册表与回复编排器，对外提供
REST、消息信封与 websocket 三种入口，并附带数据库迁移、健康检查和
版本查询子命令。

# 核心类型

  - Server：主服务器，管理 API 与 Metrics 双端口、配置热重载及优雅关闭
  - Middleware：HTTP 中间件函数签名 func(http.Handler) http.Handler
  - statusWriter：包装 http.ResponseWriter 以捕获状态码与响应大小

# 主要能力

  - 子命令：serve、migrate（up/down/status/version/goto/force/reset）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、Metrics、
    RequestLogger、CORS，再接 RateLimiter + APIKeyAuth，或启用 JWT 时的
    JWTAuth + TenantRateLimiter
  - database 后端启动时自动执行迁移
  - 配置热重载：文件变更后刷新 static 密钥并清空模型注册表
  - 优雅关闭：停止 HTTP → 停止热重载 → 停止后台任务 → 关闭存储 → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
