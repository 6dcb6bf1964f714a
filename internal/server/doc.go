// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动、
优雅关闭与系统信号监听。

Manager 封装 net/http.Server，统一管理监听、服务、关闭与错误传播。
replybroker 用两个 Manager 分别承载 API 端口与 /metrics 端口，
FromServerConfig 把 config.ServerConfig 的超时映射到各自的 Config。

  - 非阻塞启动：Start 在后台 goroutine 中运行服务。
  - 优雅关闭：Shutdown 在配置的超时内排空请求。
  - 信号监听：WaitForShutdown 监听 SIGINT/SIGTERM 或异步服务错误。
  - 状态查询：IsRunning、Addr、ListenAddr。
*/
package server
