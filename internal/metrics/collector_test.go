package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/replybroker/llm"
	"github.com/BaSui01/replybroker/llm/providers"
	"github.com/BaSui01/replybroker/reply"
)

// 编译期确认签名匹配
var (
	_ reply.Recorder            = (*Collector)(nil)
	_ providers.AttemptObserver = (*Collector)(nil).ObserveAttempt
)

func newTestCollector(t *testing.T) (*prometheus.Registry, *Collector) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return reg, NewCollectorWith(reg, "rb", zap.NewNop())
}

func TestNewCollectorWith_IsolatedRegistries(t *testing.T) {
	// 同名 namespace 在不同 Registry 上互不冲突
	assert.NotPanics(t, func() {
		newTestCollector(t)
		newTestCollector(t)
	})

	reg := prometheus.NewRegistry()
	NewCollectorWith(reg, "dup", nil)
	assert.Panics(t, func() { NewCollectorWith(reg, "dup", nil) })
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	_, c := newTestCollector(t)

	c.RecordHTTPRequest("POST", "/api/v1/replies", 200, 100*time.Millisecond, 1024, 2048)
	c.RecordHTTPRequest("POST", "/api/v1/replies", 201, 50*time.Millisecond, 512, 1024)
	c.RecordHTTPRequest("POST", "/api/v1/replies", 502, 50*time.Millisecond, 512, 64)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.http.requests.WithLabelValues("POST", "/api/v1/replies", "2xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.http.requests.WithLabelValues("POST", "/api/v1/replies", "5xx")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.http.duration))
}

func TestCollector_RecordReply(t *testing.T) {
	reg, c := newTestCollector(t)

	c.RecordReply("generate", "gpt-4o", "ok", 1200*time.Millisecond, 150)
	c.RecordReply("generate", "gpt-4o", "quota_exceeded", 300*time.Millisecond, 150)
	c.RecordReply("analyze", "gpt-4o", "missing_credential", 0, 0)

	expected := `
# HELP rb_replies_total Orchestrated reply and analysis requests by outcome
# TYPE rb_replies_total counter
rb_replies_total{model="gpt-4o",operation="analyze",status="missing_credential"} 1
rb_replies_total{model="gpt-4o",operation="generate",status="ok"} 1
rb_replies_total{model="gpt-4o",operation="generate",status="quota_exceeded"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "rb_replies_total"))
	// 零 token 不计入直方图
	assert.Equal(t, 1, testutil.CollectAndCount(c.reply.tokens))
}

func TestCollector_ObserveAttempt(t *testing.T) {
	_, c := newTestCollector(t)

	c.ObserveAttempt("OpenRouter", 1, llm.KindNetworkError, 2*time.Second)
	c.ObserveAttempt("OpenRouter", 2, llm.KindNetworkError, 2*time.Second)
	c.ObserveAttempt("OpenRouter", 3, "", time.Second)
	c.ObserveAttempt("OpenRouter", 7, "", time.Second)

	attempts := c.upstream.attempts
	assert.Equal(t, float64(1), testutil.ToFloat64(attempts.WithLabelValues("OpenRouter", "1", "network_error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(attempts.WithLabelValues("OpenRouter", "2", "network_error")))
	assert.Equal(t, float64(2), testutil.ToFloat64(attempts.WithLabelValues("OpenRouter", "3+", "ok")))
}

func TestCollector_CacheAndDB(t *testing.T) {
	_, c := newTestCollector(t)

	c.RecordCacheHit("settings")
	c.RecordCacheHit("settings")
	c.RecordCacheMiss("settings")
	c.RecordDBConnections("settings", 3, 2)
	c.RecordDBConnections("settings", 4, 1)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.cacheLookups.WithLabelValues("settings", "hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.cacheLookups.WithLabelValues("settings", "miss")))
	assert.Equal(t, float64(4), testutil.ToFloat64(c.dbConns.WithLabelValues("settings", "open")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.dbConns.WithLabelValues("settings", "idle")))
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		200: "2xx", 204: "2xx", 301: "3xx", 404: "4xx", 429: "4xx", 500: "5xx", 599: "5xx", 0: "unknown", 600: "unknown",
	}
	for code, want := range tests {
		assert.Equal(t, want, statusClass(code), code)
	}
}

func TestAttemptLabel(t *testing.T) {
	assert.Equal(t, "1", attemptLabel(0))
	assert.Equal(t, "1", attemptLabel(1))
	assert.Equal(t, "2", attemptLabel(2))
	assert.Equal(t, "3+", attemptLabel(3))
	assert.Equal(t, "3+", attemptLabel(10))
}
