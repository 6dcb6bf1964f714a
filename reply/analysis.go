package reply

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/BaSui01/replybroker/llm"
	"github.com/BaSui01/replybroker/llm/tokenizer"
	"github.com/BaSui01/replybroker/prompt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// 解析失败时的默认三元组。
const (
	FallbackStyle    = "Casual Insight"
	FallbackStrategy = "直接回應"
	FallbackReason   = "符合上下文語氣"
)

const customPrefix = "custom:"

var (
	analysisContent = regexp.MustCompile(`(?is)<analysis>(.*?)</analysis>`)
	reasonPrefix    = regexp.MustCompile(`(?i)^REASON[ \t]*[:：][ \t]*`)
	// 值在下一个标签或行尾处结束，换行被压平时也能切分。
	analysisFields = map[string]*regexp.Regexp{
		prompt.StyleKey:    fieldPattern(prompt.StyleKey),
		prompt.StrategyKey: fieldPattern(prompt.StrategyKey),
		prompt.ReasonKey:   fieldPattern(prompt.ReasonKey),
	}
)

func fieldPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)\b` + key + `[ \t]*[:：][ \t]*(.+?)[ \t]*(?:\b(?:STYLE|STRATEGY|REASON)[ \t]*[:：]|$)`)
}

// Analysis 是帖文分析结果。解析是尽力而为的：缺失字段以默认值补齐。
type Analysis struct {
	Raw      string `json:"analysis"`
	Style    string `json:"style"`
	Strategy string `json:"strategy"`
	Reason   string `json:"reason"`
	Dynamic  bool   `json:"dynamic"`
	StyleID  string `json:"style_id,omitempty"`
	Fallback bool   `json:"fallback"`
}

// ParseAnalysis 用宽松正则解析 STYLE/STRATEGY/REASON 三行，不假设行序。
// 总是返回完整三元组；"Custom:" 前缀表示动态风格。
func ParseAnalysis(raw string) Analysis {
	a := Analysis{Raw: raw}
	a.Style = field(raw, prompt.StyleKey)
	a.Strategy = field(raw, prompt.StrategyKey)
	a.Reason = reasonPrefix.ReplaceAllString(field(raw, prompt.ReasonKey), "")

	if strings.HasPrefix(strings.ToLower(a.Style), customPrefix) {
		a.Style = strings.TrimSpace(a.Style[len(customPrefix):])
		a.Dynamic = a.Style != ""
	}

	if a.Style == "" {
		a.Style = FallbackStyle
		a.Fallback = true
	}
	if a.Strategy == "" {
		a.Strategy = FallbackStrategy
	}
	if a.Reason == "" {
		a.Reason = FallbackReason
	}
	if !a.Dynamic && !a.Fallback {
		if s, ok := prompt.FindStyleByName(a.Style); ok {
			a.StyleID = s.ID
		}
	}
	return a
}

func field(raw, key string) string {
	m := analysisFields[key].FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return trimQuotes(m[1])
}

// AnalyzeRequest 对应 ANALYZE_POST。
type AnalyzeRequest struct {
	PostText    string
	ContextText string
	StylesList  string
	Model       string
}

// AnalyzeResult 恰好是成功或失败之一。
type AnalyzeResult struct {
	Analysis Analysis
	Model    string
	Err      *llm.Error
}

// OK 报告是否成功。
func (r AnalyzeResult) OK() bool { return r.Err == nil }

// Analyzer 是与回复生成并列的分析编排路径，共享模型解析与密钥查找。
type Analyzer struct {
	o      *Orchestrator
	logger *zap.Logger
}

// NewAnalyzer 基于编排器创建分析器。
func NewAnalyzer(o *Orchestrator) *Analyzer {
	return &Analyzer{o: o, logger: o.logger.With(zap.String("component", "analyzer"))}
}

// Analyze 让模型把帖文归入风格目录之一。
// 上游调用失败返回分类错误；输出无法解析时返回默认三元组而非失败。
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) AnalyzeResult {
	ctx, span := tracer.Start(ctx, "reply.analyze")
	defer span.End()
	start := time.Now()

	res, tokens := a.analyze(ctx, req)
	status := "ok"
	if !res.OK() {
		status = string(res.Err.Kind)
		span.SetStatus(codes.Error, status)
	} else {
		span.SetAttributes(attribute.Bool("analysis.fallback", res.Analysis.Fallback))
	}
	a.o.record("analysis", res.Model, status, time.Since(start), tokens)
	return res
}

func (a *Analyzer) analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResult, int) {
	desc, lerr := a.o.resolveModel(ctx, req.Model, false)
	if lerr != nil {
		return AnalyzeResult{Err: lerr}, 0
	}
	cred, lerr := a.o.credential(ctx, desc)
	if lerr != nil {
		return AnalyzeResult{Model: desc.ID, Err: lerr}, 0
	}

	postText := req.PostText
	if strings.TrimSpace(req.ContextText) != "" {
		postText = prompt.FrameThread(req.ContextText, req.PostText)
	}
	analysisPrompt := prompt.BuildAnalysisPrompt(postText, req.StylesList)
	tokens := tokenizer.Count(tokenizer.ForModel(desc.ID), analysisPrompt)

	provider, ok := a.o.registry.Resolve(desc.ID)
	if !ok {
		return AnalyzeResult{Model: desc.ID, Err: llm.UnknownModelError(a.o.lang, desc.ID, a.o.registry.IDs())}, tokens
	}

	out := llm.Invoke(ctx, provider, &llm.ReplyRequest{
		PostText:    postText,
		StylePrompt: analysisPrompt,
		Credential:  cred,
	})
	if !out.IsOk() {
		err := llm.Localize(out.Err, a.o.lang, "")
		a.logger.Warn("analysis failed",
			zap.String("model", desc.ID),
			zap.String("kind", string(err.Kind)),
			zap.String("detail", err.Detail))
		return AnalyzeResult{Model: desc.ID, Err: err}, tokens
	}

	parsed := ParseAnalysis(out.Text)
	if parsed.Fallback {
		a.logger.Info("analysis output not parseable, using fallback", zap.String("model", desc.ID))
	}
	return AnalyzeResult{Analysis: parsed, Model: desc.ID}, tokens
}
