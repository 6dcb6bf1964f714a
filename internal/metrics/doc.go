// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 metrics 提供基于 Prometheus 的指标采集。NewCollector 注册到默认
Registry，NewCollectorWith 接受任意 Registerer，测试里用独立 Registry。

  - HTTP：请求数、耗时、请求与响应大小（由中间件记录）。
  - 编排：replies_total / reply_duration_seconds / prompt_tokens，
    Collector 实现 reply.Recorder。
  - 上游：provider_attempts_total 与单次尝试耗时，ObserveAttempt 可直接
    作为 providers.AttemptObserver 传给适配器。
  - 缓存与数据库：cache_lookups_total{result=hit|miss}，
    db_connections{state=open|idle}。
*/
package metrics
