package reply

import (
	"context"
	"testing"

	"github.com/BaSui01/replybroker/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		style    string
		strategy string
		reason   string
		dynamic  bool
		styleID  string
		fallback bool
	}{
		{
			name:     "three lines",
			raw:      "STYLE: 提問\nSTRATEGY: 問對方想吃什麼\nREASON: 對方在尋求建議",
			style:    "提問",
			strategy: "問對方想吃什麼",
			reason:   "對方在尋求建議",
			styleID:  "question",
		},
		{
			name:     "any order",
			raw:      "REASON: 很好笑\nSTYLE: 接梗\nSTRATEGY: 順著吐槽",
			style:    "接梗",
			strategy: "順著吐槽",
			reason:   "很好笑",
			styleID:  "witty",
		},
		{
			name:     "flattened onto one line",
			raw:      "STYLE: 共鳴 STRATEGY: 分享相同經驗 REASON: 引起共感",
			style:    "共鳴",
			strategy: "分享相同經驗",
			reason:   "引起共感",
			styleID:  "relatable",
		},
		{
			name:     "custom style",
			raw:      "STYLE: Custom: 溫柔吐槽\nSTRATEGY: 輕輕虧一下\nREASON: 氣氛輕鬆",
			style:    "溫柔吐槽",
			strategy: "輕輕虧一下",
			reason:   "氣氛輕鬆",
			dynamic:  true,
		},
		{
			name:     "duplicated reason prefix",
			raw:      "STYLE: 直球\nREASON: REASON：直接給答案",
			style:    "直球",
			strategy: FallbackStrategy,
			reason:   "直接給答案",
			styleID:  "direct",
		},
		{
			name:     "lowercase keys",
			raw:      "style: 應援\nstrategy: 給鼓勵\nreason: 對方很累",
			style:    "應援",
			strategy: "給鼓勵",
			reason:   "對方很累",
			styleID:  "support",
		},
		{
			name:     "garbage",
			raw:      "I think you should reply nicely.",
			style:    FallbackStyle,
			strategy: FallbackStrategy,
			reason:   FallbackReason,
			fallback: true,
		},
		{
			name:     "empty",
			raw:      "",
			style:    FallbackStyle,
			strategy: FallbackStrategy,
			reason:   FallbackReason,
			fallback: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ParseAnalysis(tt.raw)
			assert.Equal(t, tt.raw, a.Raw)
			assert.Equal(t, tt.style, a.Style)
			assert.Equal(t, tt.strategy, a.Strategy)
			assert.Equal(t, tt.reason, a.Reason)
			assert.Equal(t, tt.dynamic, a.Dynamic)
			assert.Equal(t, tt.styleID, a.StyleID)
			assert.Equal(t, tt.fallback, a.Fallback)
		})
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	grok := &spyProvider{desc: grokDesc(), reply: "STYLE: 提問 STRATEGY: 推薦附近餐廳 REASON: 對方在尋求建議"}
	o := newTestOrchestrator(t, &memSettings{creds: map[string]string{llm.DefaultModelID: "k"}}, grok)
	a := NewAnalyzer(o)

	res := a.Analyze(context.Background(), AnalyzeRequest{PostText: "午餐吃什麼好猶豫", StylesList: "- 提問: 那如果是...？"})

	require.True(t, res.OK())
	assert.Equal(t, llm.DefaultModelID, res.Model)
	assert.Equal(t, "提問", res.Analysis.Style)
	assert.Equal(t, "question", res.Analysis.StyleID)
	assert.Equal(t, "推薦附近餐廳", res.Analysis.Strategy)
	assert.Contains(t, grok.lastRequest().StylePrompt, "### AVAILABLE STYLES\n- 提問: 那如果是...？")
}

func TestAnalyzer_UnparseableFallsBack(t *testing.T) {
	grok := &spyProvider{desc: grokDesc(), reply: "不知道耶"}
	o := newTestOrchestrator(t, &memSettings{creds: map[string]string{llm.DefaultModelID: "k"}}, grok)

	res := NewAnalyzer(o).Analyze(context.Background(), AnalyzeRequest{PostText: "x"})
	require.True(t, res.OK())
	assert.True(t, res.Analysis.Fallback)
	assert.Equal(t, FallbackStyle, res.Analysis.Style)
	assert.Equal(t, "不知道耶", res.Analysis.Raw)
}

func TestAnalyzer_MissingCredential(t *testing.T) {
	grok := &spyProvider{desc: grokDesc()}
	o := newTestOrchestrator(t, &memSettings{}, grok)

	res := NewAnalyzer(o).Analyze(context.Background(), AnalyzeRequest{PostText: "x"})
	require.False(t, res.OK())
	assert.Equal(t, llm.KindMissingCredential, res.Err.Kind)
	assert.Equal(t, int32(0), grok.calls.Load())
}

func TestAnalyzer_UpstreamError(t *testing.T) {
	grok := &spyProvider{desc: grokDesc(), err: &llm.Error{Kind: llm.KindRateLimited, Provider: "openrouter", Detail: "HTTP 429"}}
	o := newTestOrchestrator(t, &memSettings{creds: map[string]string{llm.DefaultModelID: "k"}}, grok)

	res := NewAnalyzer(o).Analyze(context.Background(), AnalyzeRequest{PostText: "x"})
	require.False(t, res.OK())
	assert.Equal(t, llm.KindRateLimited, res.Err.Kind)
	assert.Equal(t, "OpenRouter 請求過於頻繁，請稍後再試", res.Err.Message)
}
