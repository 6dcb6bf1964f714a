package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/replybroker/api"
	"github.com/BaSui01/replybroker/internal/ctxkeys"
	"github.com/BaSui01/replybroker/reply"
	"github.com/BaSui01/replybroker/settings"
	"github.com/BaSui01/replybroker/types"
)

// =============================================================================
// ✍️ 回复与分析 Handler
// =============================================================================

// ReplyService 回复生成，由 *reply.Orchestrator 实现
type ReplyService interface {
	Generate(ctx context.Context, req reply.Request) reply.Result
	GenerateBatch(ctx context.Context, reqs []reply.Request, limit int) []reply.BatchItem
}

// AnalysisService 帖文分析，由 *reply.Analyzer 实现
type AnalysisService interface {
	Analyze(ctx context.Context, req reply.AnalyzeRequest) reply.AnalyzeResult
}

// KeyStatusService 密钥状态，由 *settings.Service 实现
type KeyStatusService interface {
	Status(ctx context.Context) (settings.KeyStatus, error)
}

// ReplyHandler 处理三种消息，REST 端点、消息端点与 websocket 共用同一套分发
type ReplyHandler struct {
	replies    ReplyService
	analyzer   AnalysisService
	keys       KeyStatusService
	batchLimit int
	logger     *zap.Logger
}

// NewReplyHandler 创建处理器；batchLimit <= 0 时使用 reply.DefaultBatchLimit
func NewReplyHandler(replies ReplyService, analyzer AnalysisService, keys KeyStatusService, batchLimit int, logger *zap.Logger) *ReplyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchLimit <= 0 {
		batchLimit = reply.DefaultBatchLimit
	}
	return &ReplyHandler{
		replies:    replies,
		analyzer:   analyzer,
		keys:       keys,
		batchLimit: batchLimit,
		logger:     logger.With(zap.String("component", "reply_handler")),
	}
}

// HandleGenerate POST /api/v1/replies
// 成功 200；编排失败时按错误类型给出状态码，响应体仍是 GENERATE_REPLY 契约
func (h *ReplyHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(h.logger, r)
	if !requireMethod(w, r, http.MethodPost, logger) || !ValidateContentType(w, r, logger) {
		return
	}

	var req api.GenerateReplyRequest
	if err := DecodeJSONBody(w, r, &req, logger); err != nil {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err, logger)
		return
	}

	ctx := ctxkeys.WithOperation(r.Context(), string(api.TypeGenerateReply))
	res := h.replies.Generate(ctx, req.ToReplyRequest())
	WriteJSON(w, replyStatus(res), api.NewGenerateReplyResponse(res))
}

// HandleBatch POST /api/v1/replies/batch
// 每条独立成败，整体总是 200
func (h *ReplyHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(h.logger, r)
	if !requireMethod(w, r, http.MethodPost, logger) || !ValidateContentType(w, r, logger) {
		return
	}

	var req api.BatchReplyRequest
	if err := DecodeJSONBody(w, r, &req, logger); err != nil {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err, logger)
		return
	}

	reqs := make([]reply.Request, len(req.Items))
	for i := range req.Items {
		reqs[i] = req.Items[i].ToReplyRequest()
	}
	ctx := ctxkeys.WithOperation(r.Context(), string(api.TypeGenerateReply))
	resp := api.NewBatchReplyResponse(h.replies.GenerateBatch(ctx, reqs, h.batchLimit))

	logger.Info("batch generated",
		zap.Int("items", len(reqs)),
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("failed", resp.Failed))
	WriteJSON(w, http.StatusOK, resp)
}

// HandleAnalyze POST /api/v1/analyses
func (h *ReplyHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(h.logger, r)
	if !requireMethod(w, r, http.MethodPost, logger) || !ValidateContentType(w, r, logger) {
		return
	}

	var req api.AnalyzePostRequest
	if err := DecodeJSONBody(w, r, &req, logger); err != nil {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err, logger)
		return
	}

	ctx := ctxkeys.WithOperation(r.Context(), string(api.TypeAnalyzePost))
	res := h.analyzer.Analyze(ctx, req.ToAnalyzeRequest())
	status := http.StatusOK
	if !res.OK() {
		status = res.Err.Kind.HTTPStatus()
		if res.Model == "" && res.Err.HTTPStatus == http.StatusNotFound {
			status = http.StatusNotFound
		}
	}
	WriteJSON(w, status, api.NewAnalyzePostResponse(res))
}

// HandleKeyStatus GET /api/v1/api-keys/status
func (h *ReplyHandler) HandleKeyStatus(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(h.logger, r)
	if !requireMethod(w, r, http.MethodGet, logger) {
		return
	}

	st, err := h.keys.Status(r.Context())
	if err != nil {
		WriteError(w, types.NewError(types.ErrServiceUnavailable, "settings store unavailable").
			WithCause(err).WithHTTPStatus(http.StatusServiceUnavailable), logger)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}

// HandleMessage POST /api/v1/messages，请求体为消息信封，总是返回 200 的响应信封
func (h *ReplyHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(h.logger, r)
	if !requireMethod(w, r, http.MethodPost, logger) || !ValidateContentType(w, r, logger) {
		return
	}

	var env api.Envelope
	if err := DecodeJSONBody(w, r, &env, logger); err != nil {
		return
	}
	out, apiErr := h.Dispatch(r.Context(), env)
	if apiErr != nil {
		WriteError(w, apiErr, logger)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

// =============================================================================
// 📮 消息分发
// =============================================================================

// Dispatch 按类型处理一条消息。消息本身不合法（未知类型、data 无法解析、校验失败）
// 返回 *types.Error；编排失败装在响应信封的 data 里，success 为 false。
func (h *ReplyHandler) Dispatch(ctx context.Context, env api.Envelope) (api.ReplyEnvelope, *types.Error) {
	if !env.Type.Valid() {
		return api.ReplyEnvelope{}, types.NewError(types.ErrInvalidRequest, "unknown message type: "+string(env.Type))
	}
	ctx = ctxkeys.WithOperation(ctx, string(env.Type))
	out := api.ReplyEnvelope{Type: env.Type, ID: env.ID}

	switch env.Type {
	case api.TypeGenerateReply:
		var req api.GenerateReplyRequest
		if err := decodeData(env.Data, &req); err != nil {
			return api.ReplyEnvelope{}, err
		}
		if err := req.Validate(); err != nil {
			return api.ReplyEnvelope{}, err
		}
		out.Data = api.NewGenerateReplyResponse(h.replies.Generate(ctx, req.ToReplyRequest()))

	case api.TypeAnalyzePost:
		var req api.AnalyzePostRequest
		if err := decodeData(env.Data, &req); err != nil {
			return api.ReplyEnvelope{}, err
		}
		if err := req.Validate(); err != nil {
			return api.ReplyEnvelope{}, err
		}
		out.Data = api.NewAnalyzePostResponse(h.analyzer.Analyze(ctx, req.ToAnalyzeRequest()))

	case api.TypeAPIKeyStatus:
		st, err := h.keys.Status(ctx)
		if err != nil {
			return api.ReplyEnvelope{}, types.NewError(types.ErrServiceUnavailable, "settings store unavailable").WithCause(err)
		}
		out.Data = st
	}
	return out, nil
}

func decodeData(raw json.RawMessage, dst any) *types.Error {
	if len(raw) == 0 {
		return types.NewError(types.ErrInvalidRequest, "message data is required")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return types.NewError(types.ErrInvalidRequest, "invalid message data").WithCause(err)
	}
	return nil
}

// replyStatus 模型未注册返回 404，其余按错误类型映射
func replyStatus(res reply.Result) int {
	if res.OK() {
		return http.StatusOK
	}
	if res.FailedAt == reply.StateResolvingModel && res.Err.HTTPStatus == http.StatusNotFound {
		return http.StatusNotFound
	}
	return res.Err.Kind.HTTPStatus()
}
