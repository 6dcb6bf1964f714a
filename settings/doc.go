/*
包 settings 保存厂商密钥与默认模型，是回复编排器的设置协作者。

三种后端实现同一个 Source 接口：

  - StaticSource：读 config.LLMConfig，只读，配置文件重载时刷新。
  - DBSource：credentials / preferences 表（gorm，postgres/mysql/sqlite），可写。
  - CachedSource：在任意后端前加 Redis 读穿缓存，写入后失效。

Service 按模型 ID 路由到厂商密钥（llm.CredentialVendor），并汇总
API_KEY_STATUS 所需的存在性标志；任何接口都不返回密钥本身。
UsageLog 把每次编排的用量写入 reply_log 表。
*/
package settings
