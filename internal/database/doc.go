// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 database 打开设置存储所用的关系数据库，并管理 GORM 连接池。

Open 按 config.DatabaseConfig.Driver 选择方言：postgres、mysql，
或纯 Go 的 sqlite（glebarez）。PoolManager 负责连接池参数、后台探活、
事务执行与可重试错误（死锁、序列化失败、sqlite 锁冲突）的指数退避。
*/
package database
