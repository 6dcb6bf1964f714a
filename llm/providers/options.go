package providers

import (
	"net/http"
	"time"

	"github.com/BaSui01/replybroker/internal/tlsutil"
	"github.com/BaSui01/replybroker/llm"
)

// AttemptObserver 在每次尝试结束后被调用，kind 为空表示成功。
type AttemptObserver func(provider string, attempt int, kind llm.ErrorKind, elapsed time.Duration)

// Options 是适配器的运行时依赖。
type Options struct {
	Client   *http.Client
	Sleep    Sleeper
	Observer AttemptObserver
}

// Option 修改 Options。
type Option func(*Options)

// WithHTTPClient 替换 HTTP 客户端（测试中指向 httptest 服务器）。
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.Client = c }
}

// WithSleeper 替换重试等待函数。
func WithSleeper(s Sleeper) Option {
	return func(o *Options) { o.Sleep = s }
}

// WithAttemptObserver 注册尝试观察者，用于指标采集。
func WithAttemptObserver(fn AttemptObserver) Option {
	return func(o *Options) { o.Observer = fn }
}

// BuildOptions 应用选项并补齐默认值。
func BuildOptions(opts ...Option) Options {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Client == nil {
		// 单次请求的超时由 context 控制，这里只给一个兜底上限
		o.Client = tlsutil.SecureHTTPClient(RequestTimeout + ProbeTimeout)
	}
	if o.Sleep == nil {
		o.Sleep = ContextSleep
	}
	return o
}
