// Package tlsutil 为上游厂商 API 客户端和 Redis 连接提供统一的 TLS 设置（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
