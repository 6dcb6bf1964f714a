// =============================================================================
// 📦 ReplyBroker 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		LLM:       DefaultLLMConfig(),
		Settings:  DefaultSettingsConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 写超时需覆盖一次带重试的厂商调用
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    2 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
	}
}

// DefaultLLMConfig 默认模型走 OpenRouter，回复语言为繁体中文
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		DefaultModel: "x-ai/grok-code-fast-1",
		Language:     "zh-TW",
		BatchLimit:   4,
		OpenRouter: OpenRouterConfig{
			Referer: "https://github.com/BaSui01/replybroker",
			Title:   "ReplyBroker",
		},
	}
}

// DefaultSettingsConfig 默认只读 static 后端，不启用缓存
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Backend:  SettingsBackendStatic,
		CacheTTL: 5 * time.Minute,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		KeyPrefix:    "replybroker:",
	}
}

// DefaultDatabaseConfig 仅在 settings.backend=database 时使用
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "postgres",
		Host:            "localhost",
		Port:            5432,
		User:            "replybroker",
		Name:            "replybroker",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		OutputPaths:  []string{"stdout"},
		EnableCaller: true,
	}
}

// DefaultTelemetryConfig 默认关闭，打开后按 10% 采样
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "replybroker",
		SampleRate:   0.1,
	}
}
