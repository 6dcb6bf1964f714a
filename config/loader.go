// =============================================================================
// 📦 ReplyBroker 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("REPLYBROKER").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix 是环境变量前缀，例如 REPLYBROKER_LLM_OPENROUTER_API_KEY。
const DefaultEnvPrefix = "REPLYBROKER"

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 ReplyBroker 的完整配置结构
type Config struct {
	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// LLM 模型与厂商配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Settings 密钥与默认模型的存储后端
	Settings SettingsConfig `yaml:"settings" env:"SETTINGS"`

	// Redis 缓存配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 数据库配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时，需覆盖单次上游调用的重试总时长
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 访问本服务的 API Key，空表示不鉴权
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`
	// 是否允许通过 query 参数传 API Key（websocket 客户端无法设置 header）
	AllowQueryAPIKey bool `yaml:"allow_query_api_key" env:"ALLOW_QUERY_API_KEY"`
	// 允许的跨域来源
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// 每个 IP 的限流速率
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 限流突发量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// JWT 鉴权
	JWT JWTConfig `yaml:"jwt" env:"JWT"`
}

// JWTConfig JWT 鉴权配置，启用后替代 API Key 鉴权
type JWTConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// HMAC 密钥
	Secret string `yaml:"secret" env:"SECRET"`
	// RSA 公钥（PEM），设置后优先于 Secret
	PublicKey string `yaml:"public_key" env:"PUBLIC_KEY"`
	Issuer    string `yaml:"issuer" env:"ISSUER"`
	Audience  string `yaml:"audience" env:"AUDIENCE"`
}

// LLMConfig 模型与厂商配置。重试与超时策略是固定常量，不在此暴露。
type LLMConfig struct {
	// 默认模型 ID，设置存储未给出时使用
	DefaultModel string `yaml:"default_model" env:"DEFAULT_MODEL"`
	// 面向用户错误信息的语言: zh-TW, en
	Language string `yaml:"language" env:"LANGUAGE"`
	// 调用前是否做可达性探测
	ProbeEnabled bool `yaml:"probe_enabled" env:"PROBE_ENABLED"`
	// 批量生成并发上限
	BatchLimit int `yaml:"batch_limit" env:"BATCH_LIMIT"`

	Gemini     VendorConfig     `yaml:"gemini" env:"GEMINI"`
	OpenAI     VendorConfig     `yaml:"openai" env:"OPENAI"`
	Claude     VendorConfig     `yaml:"claude" env:"CLAUDE"`
	OpenRouter OpenRouterConfig `yaml:"openrouter" env:"OPENROUTER"`
}

// VendorConfig 单个厂商的连接配置
type VendorConfig struct {
	// API Key，static 设置后端使用
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 上游模型名（可选）
	Model string `yaml:"model" env:"MODEL"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key" env:"API_KEY"`
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// HTTP-Referer 头
	Referer string `yaml:"referer" env:"REFERER"`
	// X-Title 头
	Title string `yaml:"title" env:"TITLE"`
	// 额外注册的模型，只能通过 YAML 配置
	ExtraModels []ModelConfig `yaml:"extra_models" env:"-"`
}

// ModelConfig 额外模型的目录项
type ModelConfig struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Vision bool   `yaml:"vision"`
}

// SettingsConfig 设置存储配置
type SettingsConfig struct {
	// 后端: static（读配置文件）, database
	Backend string `yaml:"backend" env:"BACKEND"`
	// 是否在数据库前加 Redis 读穿缓存
	CacheEnabled bool `yaml:"cache_enabled" env:"CACHE_ENABLED"`
	// 缓存过期时间
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 托管 Redis 通常要求 TLS
	TLS bool `yaml:"tls" env:"TLS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名；sqlite 时为文件路径
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
	// 部署环境，写入 deployment.environment
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  DefaultEnvPrefix,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 严格解析 YAML：未知键视为拼写错误直接报错。
// 文件不存在或为空时保留默认值。
func (l *Loader) loadFromFile(cfg *Config) error {
	f, err := os.Open(l.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", l.configPath, err)
	}
	return nil
}

// loadFromEnv 按 env 标签逐层拼接变量名，例如 REPLYBROKER_LLM_GEMINI_API_KEY
func (l *Loader) loadFromEnv(cfg *Config) error {
	return setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段，env 标签为空或 "-" 的字段跳过
func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := range v.NumField() {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag
		field := v.Field(i)

		if field.Kind() == reflect.Struct {
			if err := setFieldsFromEnv(field, key); err != nil {
				return err
			}
			continue
		}
		raw, ok := os.LookupEnv(key)
		if !ok || raw == "" || !field.CanSet() {
			continue
		}
		if err := setFieldValue(field, raw); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setFieldValue 支持字符串、整数、time.Duration、浮点、布尔与逗号分隔的字符串切片
func setFieldValue(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	var err error
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		if n, err = strconv.ParseInt(raw, 10, field.Type().Bits()); err == nil {
			field.SetInt(n)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var n uint64
		if n, err = strconv.ParseUint(raw, 10, field.Type().Bits()); err == nil {
			field.SetUint(n)
		}
	case reflect.Float32, reflect.Float64:
		var f float64
		if f, err = strconv.ParseFloat(raw, field.Type().Bits()); err == nil {
			field.SetFloat(f)
		}
	case reflect.Bool:
		var b bool
		if b, err = strconv.ParseBool(raw); err == nil {
			field.SetBool(b)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			field.Set(reflect.ValueOf(splitList(raw)))
		}
	}
	return err
}

// splitList 逗号分隔，去掉空白与空项
func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// 支持的取值
var (
	settingsBackends = map[string]bool{SettingsBackendStatic: true, SettingsBackendDatabase: true}
	databaseDrivers  = map[string]bool{"postgres": true, "mysql": true, "sqlite": true}
	logFormats       = map[string]bool{"json": true, "console": true}
)

// 设置存储后端
const (
	SettingsBackendStatic   = "static"
	SettingsBackendDatabase = "database"
)

// Validate 验证配置，收集全部错误后一次返回
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}
	if c.Server.MetricsPort != 0 && c.Server.MetricsPort == c.Server.HTTPPort {
		errs = append(errs, "metrics port must differ from HTTP port")
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		errs = append(errs, "rate limit must not be negative")
	}
	if c.Server.JWT.Enabled && c.Server.JWT.Secret == "" && c.Server.JWT.PublicKey == "" {
		errs = append(errs, "jwt enabled but neither secret nor public_key set")
	}

	if c.LLM.BatchLimit <= 0 {
		errs = append(errs, "llm.batch_limit must be positive")
	}
	for i, m := range c.LLM.OpenRouter.ExtraModels {
		if strings.TrimSpace(m.ID) == "" {
			errs = append(errs, fmt.Sprintf("llm.openrouter.extra_models[%d]: id is required", i))
		}
	}

	if !settingsBackends[c.Settings.Backend] {
		errs = append(errs, fmt.Sprintf("unknown settings backend %q", c.Settings.Backend))
	}
	if c.Settings.Backend == SettingsBackendDatabase && !databaseDrivers[c.Database.Driver] {
		errs = append(errs, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Settings.CacheEnabled && c.Settings.CacheTTL <= 0 {
		errs = append(errs, "settings.cache_ttl must be positive when cache is enabled")
	}

	if !logFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
