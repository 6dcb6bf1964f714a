package reply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/replybroker/llm"
	"github.com/BaSui01/replybroker/llm/tokenizer"
	"github.com/BaSui01/replybroker/prompt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Mode 选择提示词组装方式。
type Mode string

const (
	ModeStandard Mode = ""
	ModeMerged   Mode = "merged"
)

// RequestOptions 对应 GENERATE_REPLY 的 options 字段。
type RequestOptions struct {
	UseKaomoji       bool
	IsSelfPost       bool
	DynamicStyleName string
	Length           prompt.Length
}

// Request 是一次回复生成请求。
type Request struct {
	PostText       string
	ContextText    string
	Style          string
	Prompt         string
	Model          string
	Tone           string
	Strategy       string
	CustomExamples string
	Images         []llm.Image
	Mode           Mode
	Options        RequestOptions
}

// Result 恰好是成功或失败之一：Err 为 nil 时 Reply 有效。
type Result struct {
	Reply    string
	Style    string
	Reason   string
	Model    string
	State    State
	FailedAt State
	Err      *llm.Error
}

// OK 报告是否成功。
func (r Result) OK() bool { return r.Err == nil }

// Orchestrator 把一次回复请求走完状态机：
// 解析模型 → 取密钥 → 组装提示词 → 调用适配器 → 清理输出。
// 除只读的注册表外不持有跨请求状态，可并发使用。
type Orchestrator struct {
	registry *llm.Registry
	settings Settings
	lang     llm.Language
	recorder Recorder
	logger   *zap.Logger
}

// New 创建编排器。
func New(registry *llm.Registry, settings Settings, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if registry == nil {
		return nil, errors.New("reply: registry is required")
	}
	if settings == nil {
		return nil, errors.New("reply: settings is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		registry: registry,
		settings: settings,
		lang:     llm.LangZhTW,
		logger:   logger.With(zap.String("component", "reply_orchestrator")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Language 返回错误信息语言。
func (o *Orchestrator) Language() llm.Language { return o.lang }

var tracer = otel.Tracer("github.com/BaSui01/replybroker/reply")

// run 跟踪单次请求的状态迁移。
type run struct {
	state  State
	logger *zap.Logger
	span   trace.Span
}

func (r *run) to(s State) {
	r.logger.Debug("state transition", zap.Stringer("from", r.state), zap.Stringer("to", s))
	r.state = s
	r.span.AddEvent(s.String())
}

// Generate 生成一条回复。失败总是以分类错误返回，不会 panic 或丢失错误。
func (o *Orchestrator) Generate(ctx context.Context, req Request) Result {
	ctx, span := tracer.Start(ctx, "reply.generate")
	defer span.End()

	start := time.Now()
	r := &run{state: StateIdle, logger: o.logger, span: span}

	res, tokens := o.generate(ctx, r, req)
	status := "ok"
	if !res.OK() {
		status = string(res.Err.Kind)
		span.SetStatus(codes.Error, status)
	}
	span.SetAttributes(attribute.String("reply.model", res.Model), attribute.String("reply.status", status))
	o.record("reply", res.Model, status, time.Since(start), tokens)
	return res
}

func (o *Orchestrator) generate(ctx context.Context, r *run, req Request) (Result, int) {
	r.to(StateResolvingModel)
	desc, lerr := o.resolveModel(ctx, req.Model, len(req.Images) > 0)
	if lerr != nil {
		return o.fail(r, "", lerr), 0
	}

	r.to(StateResolvingCredential)
	cred, lerr := o.credential(ctx, desc)
	if lerr != nil {
		return o.fail(r, desc.ID, lerr), 0
	}

	r.to(StateBuildingPrompt)
	postText := req.PostText
	if strings.TrimSpace(req.ContextText) != "" {
		postText = prompt.FrameThread(req.ContextText, req.PostText)
	}
	stylePrompt := BuildStylePrompt(req, postText)
	tokens := tokenizer.Count(tokenizer.ForModel(desc.ID), stylePrompt)

	r.to(StateCalling)
	provider, ok := o.registry.Resolve(desc.ID)
	if !ok {
		return o.fail(r, desc.ID, llm.UnknownModelError(o.lang, desc.ID, o.registry.IDs())), tokens
	}
	o.logger.Info("generating reply",
		zap.String("model", desc.ID),
		zap.String("vendor", string(desc.Vendor)),
		zap.String("style", req.Style),
		zap.Bool("merged", req.Mode == ModeMerged),
		zap.Int("images", len(req.Images)),
		zap.Int("prompt_tokens", tokens))

	out := llm.Invoke(ctx, provider, &llm.ReplyRequest{
		PostText:    postText,
		StylePrompt: stylePrompt,
		Credential:  cred,
		Images:      req.Images,
	})
	if !out.IsOk() {
		return o.fail(r, desc.ID, llm.Localize(out.Err, o.lang, "")), tokens
	}

	r.to(StatePostProcessing)
	res := Result{Model: desc.ID}
	if req.Mode == ModeMerged {
		if block := analysisContent.FindStringSubmatch(out.Text); block != nil {
			a := ParseAnalysis(block[1])
			res.Style, res.Reason = a.Style, a.Reason
		}
	}
	if res.Style == "" && res.Reason == "" {
		res.Style, res.Reason = ExtractMetadata(out.Text)
	}
	res.Reply = Clean(out.Text)
	if res.Reply == "" {
		err := llm.NewError(llm.KindMalformedResponse,
			llm.UserMessage(o.lang, llm.KindMalformedResponse, desc.DisplayName),
			"reply empty after cleaning: "+out.Text)
		err.Provider = string(desc.Vendor)
		return o.fail(r, desc.ID, err), tokens
	}

	r.to(StateDone)
	res.State = StateDone
	return res, tokens
}

// BuildStylePrompt 决定发给适配器的风格提示词：
// merged 模式用合并提示词；显式 prompt 原样使用；否则按风格表组装。
// 带有 promptFragment 的语调会前置到风格提示词。
func BuildStylePrompt(req Request, postText string) string {
	tone, _ := prompt.LookupTone(req.Tone)

	if req.Mode == ModeMerged {
		return prompt.BuildMergedPrompt(postText, prompt.DefaultStylesCatalogue(), tone, prompt.MergedOptions{
			UseKaomoji: req.Options.UseKaomoji,
			Length:     req.Options.Length,
		})
	}

	stylePrompt := req.Prompt
	if strings.TrimSpace(stylePrompt) == "" {
		stylePrompt = prompt.BuildReplyPrompt(postText, tone, req.Style, prompt.Options{
			UseKaomoji:       req.Options.UseKaomoji,
			IsSelfPost:       req.Options.IsSelfPost,
			Strategy:         req.Strategy,
			CustomExamples:   req.CustomExamples,
			DynamicStyleName: req.Options.DynamicStyleName,
		})
	}
	if tone != nil && tone.Prompt != "" {
		stylePrompt = tone.Prompt + "\n\n" + stylePrompt
	}
	return stylePrompt
}

// ResolveModel 解析目标模型：未指定时取默认模型；
// 带图片而模型不支持视觉时切换到 VisionFallbackModelID。
func (o *Orchestrator) ResolveModel(ctx context.Context, requested string, hasImages bool) (llm.ModelDescriptor, error) {
	desc, lerr := o.resolveModel(ctx, requested, hasImages)
	if lerr != nil {
		return llm.ModelDescriptor{}, lerr
	}
	return desc, nil
}

func (o *Orchestrator) resolveModel(ctx context.Context, requested string, hasImages bool) (llm.ModelDescriptor, *llm.Error) {
	if err := o.registry.EnsureReady(); err != nil {
		return llm.ModelDescriptor{}, llm.NewError(llm.KindUnknown,
			llm.UserMessage(o.lang, llm.KindUnknown, "registry"), err.Error())
	}

	modelID := strings.TrimSpace(requested)
	if modelID == "" {
		def, err := o.settings.GetDefaultModel(ctx)
		if err != nil {
			o.logger.Warn("default model lookup failed, using builtin default", zap.Error(err))
		}
		modelID = strings.TrimSpace(def)
		if modelID == "" {
			modelID = llm.DefaultModelID
		}
	}

	desc, ok := o.registry.Descriptor(modelID)
	if !ok {
		return llm.ModelDescriptor{}, llm.UnknownModelError(o.lang, modelID, o.registry.IDs())
	}

	if hasImages && !desc.SupportsVision {
		if fb, ok := o.registry.Descriptor(llm.VisionFallbackModelID); ok && fb.SupportsVision {
			o.logger.Info("model lacks vision, switching",
				zap.String("requested", desc.ID),
				zap.String("fallback", fb.ID))
			return fb, nil
		}
		o.logger.Warn("vision fallback not registered, images may be ignored", zap.String("model", desc.ID))
	}
	return desc, nil
}

// credential 只按已解析的模型取密钥；缺失时不发起任何网络调用。
func (o *Orchestrator) credential(ctx context.Context, desc llm.ModelDescriptor) (string, *llm.Error) {
	if !desc.RequiresCredential {
		return "", nil
	}
	cred, err := o.settings.GetCredential(ctx, desc.ID)
	if err != nil {
		lerr := llm.NewError(llm.KindUnknown,
			llm.UserMessage(o.lang, llm.KindUnknown, desc.DisplayName),
			fmt.Sprintf("credential lookup for %s: %v", desc.ID, err))
		return "", lerr
	}
	if strings.TrimSpace(cred) == "" {
		return "", llm.MissingCredentialError(o.lang, desc.DisplayName)
	}
	return cred, nil
}

func (o *Orchestrator) fail(r *run, model string, err *llm.Error) Result {
	failedAt := r.state
	r.to(StateFailed)
	o.logger.Warn("reply failed",
		zap.String("model", model),
		zap.Stringer("stage", failedAt),
		zap.String("kind", string(err.Kind)),
		zap.String("detail", err.Detail))
	return Result{Model: model, State: StateFailed, FailedAt: failedAt, Err: err}
}

func (o *Orchestrator) record(op, model, status string, d time.Duration, tokens int) {
	if o.recorder != nil {
		o.recorder.RecordReply(op, model, status, d, tokens)
	}
}
