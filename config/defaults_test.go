package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultServerConfig(), cfg.Server)
	assert.Equal(t, DefaultLLMConfig(), cfg.LLM)
	assert.Equal(t, DefaultSettingsConfig(), cfg.Settings)
	assert.Equal(t, DefaultRedisConfig(), cfg.Redis)
	assert.Equal(t, DefaultDatabaseConfig(), cfg.Database)
	assert.Equal(t, DefaultLogConfig(), cfg.Log)
	assert.Equal(t, DefaultTelemetryConfig(), cfg.Telemetry)
}

func TestDefaultServerConfig(t *testing.T) {
	c := DefaultServerConfig()
	assert.Equal(t, 8080, c.HTTPPort)
	assert.Equal(t, 9091, c.MetricsPort)
	// 写超时必须覆盖三次 30s 尝试加 2s+4s 退避
	assert.Greater(t, c.WriteTimeout, 3*30*time.Second+6*time.Second)
	assert.Empty(t, c.APIKeys)
	assert.False(t, c.JWT.Enabled)
}

func TestDefaultLLMConfig(t *testing.T) {
	c := DefaultLLMConfig()
	assert.Equal(t, "x-ai/grok-code-fast-1", c.DefaultModel)
	assert.Equal(t, "zh-TW", c.Language)
	assert.False(t, c.ProbeEnabled)
	assert.Equal(t, 4, c.BatchLimit)
	assert.Equal(t, "ReplyBroker", c.OpenRouter.Title)
	assert.Empty(t, c.OpenRouter.APIKey)
}

func TestDefaultSettingsConfig(t *testing.T) {
	c := DefaultSettingsConfig()
	assert.Equal(t, SettingsBackendStatic, c.Backend)
	assert.False(t, c.CacheEnabled)
	assert.Equal(t, 5*time.Minute, c.CacheTTL)
}

func TestDefaultStorageConfigs(t *testing.T) {
	r := DefaultRedisConfig()
	assert.Equal(t, "localhost:6379", r.Addr)
	assert.Equal(t, "replybroker:", r.KeyPrefix)

	d := DefaultDatabaseConfig()
	assert.Equal(t, "postgres", d.Driver)
	assert.Equal(t, 5432, d.Port)
	assert.Equal(t, "replybroker", d.Name)
}

func TestDefaultLogAndTelemetryConfig(t *testing.T) {
	l := DefaultLogConfig()
	assert.Equal(t, "info", l.Level)
	assert.Equal(t, []string{"stdout"}, l.OutputPaths)

	tc := DefaultTelemetryConfig()
	assert.False(t, tc.Enabled)
	assert.Equal(t, "replybroker", tc.ServiceName)
	assert.Equal(t, 0.1, tc.SampleRate)
}
