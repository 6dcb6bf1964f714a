// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "x-ai/grok-code-fast-1", cfg.LLM.DefaultModel)
	assert.Equal(t, SettingsBackendStatic, cfg.Settings.Backend)
	require.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 8888
  read_timeout: 60s
  api_keys: ["k1", "k2"]

llm:
  default_model: "google/gemini-3-flash"
  language: "en"
  probe_enabled: true
  gemini:
    api_key: "AIzaSyTestKey"
  openrouter:
    api_key: "sk-or-yaml"
    title: "Test"
    extra_models:
      - id: "meta-llama/llama-3.1-8b-instruct:free"
        name: "Llama 3.1 8B"
      - id: "qwen/qwen2.5-vl"
        name: "Qwen VL"
        vision: true

settings:
  backend: "database"
  cache_enabled: true
  cache_ttl: 1m

redis:
  addr: "redis.example.com:6379"
  password: "secret"
  db: 1

database:
  driver: "sqlite"
  name: "/tmp/replybroker.db"

log:
  level: "debug"
  format: "console"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)

	assert.Equal(t, "google/gemini-3-flash", cfg.LLM.DefaultModel)
	assert.Equal(t, "en", cfg.LLM.Language)
	assert.True(t, cfg.LLM.ProbeEnabled)
	assert.Equal(t, "AIzaSyTestKey", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, "sk-or-yaml", cfg.LLM.OpenRouter.APIKey)
	assert.Equal(t, "Test", cfg.LLM.OpenRouter.Title)
	// 未在 YAML 中出现的字段保留默认值
	assert.Equal(t, "https://github.com/BaSui01/replybroker", cfg.LLM.OpenRouter.Referer)
	require.Len(t, cfg.LLM.OpenRouter.ExtraModels, 2)
	assert.True(t, cfg.LLM.OpenRouter.ExtraModels[1].Vision)

	assert.Equal(t, SettingsBackendDatabase, cfg.Settings.Backend)
	assert.True(t, cfg.Settings.CacheEnabled)
	assert.Equal(t, time.Minute, cfg.Settings.CacheTTL)

	assert.Equal(t, "redis.example.com:6379", cfg.Redis.Addr)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "console", cfg.Log.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("REPLYBROKER_SERVER_HTTP_PORT", "7777")
	t.Setenv("REPLYBROKER_SERVER_API_KEYS", "a, b,,c")
	t.Setenv("REPLYBROKER_SERVER_RATE_LIMIT_RPS", "2.5")
	t.Setenv("REPLYBROKER_LLM_OPENROUTER_API_KEY", "sk-or-env")
	t.Setenv("REPLYBROKER_LLM_CLAUDE_BASE_URL", "http://claude.local")
	t.Setenv("REPLYBROKER_LLM_PROBE_ENABLED", "true")
	t.Setenv("REPLYBROKER_SETTINGS_CACHE_TTL", "90s")
	t.Setenv("REPLYBROKER_LOG_OUTPUT_PATHS", "stdout,/var/log/rb.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.HTTPPort)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Server.APIKeys)
	assert.Equal(t, 2.5, cfg.Server.RateLimitRPS)
	assert.Equal(t, "sk-or-env", cfg.LLM.OpenRouter.APIKey)
	assert.Equal(t, "http://claude.local", cfg.LLM.Claude.BaseURL)
	assert.True(t, cfg.LLM.ProbeEnabled)
	assert.Equal(t, 90*time.Second, cfg.Settings.CacheTTL)
	assert.Equal(t, []string{"stdout", "/var/log/rb.log"}, cfg.Log.OutputPaths)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("llm:\n  openai:\n    api_key: sk-from-yaml\n"), 0644))
	t.Setenv("REPLYBROKER_LLM_OPENAI_API_KEY", "sk-from-env")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.LLM.OpenAI.APIKey)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("RB_SERVER_HTTP_PORT", "6060")
	t.Setenv("REPLYBROKER_SERVER_HTTP_PORT", "7070")

	cfg, err := NewLoader().WithEnvPrefix("RB").Load()
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.HTTPPort)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("REPLYBROKER_SERVER_HTTP_PORT", "not-a-number")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPLYBROKER_SERVER_HTTP_PORT")
}

func TestLoader_WithValidator(t *testing.T) {
	cfg, err := NewLoader().WithValidator((*Config).Validate).Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	t.Setenv("REPLYBROKER_SETTINGS_BACKEND", "etcd")
	_, err = NewLoader().WithValidator((*Config).Validate).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown settings backend "etcd"`)
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [unclosed"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.HTTPPort = 0 }, wantErr: "invalid HTTP port"},
		{name: "port clash", mutate: func(c *Config) { c.Server.MetricsPort = c.Server.HTTPPort }, wantErr: "metrics port must differ"},
		{name: "jwt without key", mutate: func(c *Config) { c.Server.JWT.Enabled = true }, wantErr: "jwt enabled"},
		{name: "batch limit", mutate: func(c *Config) { c.LLM.BatchLimit = 0 }, wantErr: "batch_limit"},
		{name: "extra model id", mutate: func(c *Config) {
			c.LLM.OpenRouter.ExtraModels = []ModelConfig{{Name: "x"}}
		}, wantErr: "extra_models[0]"},
		{name: "database driver", mutate: func(c *Config) {
			c.Settings.Backend = SettingsBackendDatabase
			c.Database.Driver = "oracle"
		}, wantErr: `unsupported database driver "oracle"`},
		{name: "cache ttl", mutate: func(c *Config) {
			c.Settings.CacheEnabled = true
			c.Settings.CacheTTL = 0
		}, wantErr: "cache_ttl"},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "unknown log format"},
		{name: "sample rate", mutate: func(c *Config) { c.Telemetry.SampleRate = 2 }, wantErr: "sample_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.HTTPPort = -1
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
	assert.Contains(t, err.Error(), "unknown log format")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "postgres",
			cfg:  DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "rb", SSLMode: "disable"},
			want: "host=db port=5432 user=u password=p dbname=rb sslmode=disable",
		},
		{
			name: "mysql",
			cfg:  DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "rb"},
			want: "u:p@tcp(db:3306)/rb?parseTime=true",
		},
		{name: "sqlite", cfg: DatabaseConfig{Driver: "sqlite", Name: "rb.db"}, want: "rb.db"},
		{name: "unknown", cfg: DatabaseConfig{Driver: "oracle"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}

func TestLoader_InvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("llm: [bad"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), configPath)
}

func TestLoader_RejectsUnknownYAMLKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("llm:\n  defualt_model: gpt-4o\n"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defualt_model")
}

func TestLoader_EmptyFileKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, nil, 0644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
