// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 migration 管理设置存储的数据库 Schema，基于 golang-migrate。

各方言的 SQL 文件通过 embed 内嵌在 migrations/{postgres,mysql,sqlite}
目录下：000001 建立 credentials 与 preferences 表，000002 建立
reply_log 用量表。sqlite 迁移走 sqlite3（mattn）驱动，避免与
internal/database 使用的 glebarez 驱动抢占同一个注册名。

CLI 为 replybroker migrate 子命令提供 up/down/status/version/goto/
force/reset 的终端输出。
*/
package migration
