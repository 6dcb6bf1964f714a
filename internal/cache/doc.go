// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 cache 封装 go-redis 客户端，作为设置存储的读穿缓存层。

Manager 提供 Get/Set/Delete/DeletePrefix/Ping，所有键自动加上 KeyPrefix。
DeletePrefix 通过 SCAN 分批删除，配置热重载后用它清掉整组设置键。

未命中返回 ErrCacheMiss（用 IsCacheMiss 判断，支持 %w 包装），
关闭后的调用返回 ErrClosed。Close 会等待后台 PING goroutine 退出。
*/
package cache
