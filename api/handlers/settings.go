package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/replybroker/api"
	"github.com/BaSui01/replybroker/llm"
	"github.com/BaSui01/replybroker/llm/providers"
	"github.com/BaSui01/replybroker/settings"
	"github.com/BaSui01/replybroker/types"
)

// =============================================================================
// 🔑 设置写入 Handler（仅 database 后端）
// =============================================================================

// SettingsStore 可写设置，由 *settings.Service 实现
type SettingsStore interface {
	Writable() bool
	SetCredential(ctx context.Context, vendor llm.Vendor, key string) error
	DeleteCredential(ctx context.Context, vendor llm.Vendor) error
	SetDefaultModel(ctx context.Context, modelID string) error
}

// UsageSource 用量日志，由 *settings.UsageLog 实现
type UsageSource interface {
	Recent(ctx context.Context, limit int) ([]settings.UsageEntry, error)
}

// SettingsHandler 密钥与默认模型的写入，以及用量查询
type SettingsHandler struct {
	store   SettingsStore
	catalog ModelCatalog
	usage   UsageSource
	logger  *zap.Logger
}

// NewSettingsHandler 创建设置处理器；usage 为 nil 时用量端点返回 404
func NewSettingsHandler(store SettingsStore, catalog ModelCatalog, usage UsageSource, logger *zap.Logger) *SettingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsHandler{
		store:   store,
		catalog: catalog,
		usage:   usage,
		logger:  logger.With(zap.String("component", "settings_handler")),
	}
}

// extractVendor 从路径取厂商（Go 1.22+ PathValue 优先，回退到路径解析）
func extractVendor(r *http.Request) (llm.Vendor, bool) {
	raw := r.PathValue("vendor")
	if raw == "" {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		raw = parts[len(parts)-1]
	}
	return llm.ParseVendor(raw)
}

// HandleCredential PUT|DELETE /api/v1/settings/credentials/{vendor}
// 响应从不回显密钥
func (h *SettingsHandler) HandleCredential(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(h.logger, r)
	vendor, ok := extractVendor(r)
	if !ok {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrNotFound, "unknown vendor", logger)
		return
	}
	if !h.ensureWritable(w, r, logger) {
		return
	}

	switch r.Method {
	case http.MethodPut:
		if !ValidateContentType(w, r, logger) {
			return
		}
		var req api.SetCredentialRequest
		if err := DecodeJSONBody(w, r, &req, logger); err != nil {
			return
		}
		key := strings.TrimSpace(req.APIKey)
		if lerr := providers.ValidateCredential(vendor, key); lerr != nil {
			WriteError(w, types.NewError(types.ErrInvalidCredential, lerr.Message).WithHTTPStatus(http.StatusBadRequest), logger)
			return
		}
		if err := h.store.SetCredential(r.Context(), vendor, key); err != nil {
			h.writeStoreError(w, err, logger)
			return
		}
		WriteSuccess(w, map[string]any{"vendor": vendor, "hasApiKey": true})

	case http.MethodDelete:
		if err := h.store.DeleteCredential(r.Context(), vendor); err != nil {
			h.writeStoreError(w, err, logger)
			return
		}
		WriteSuccess(w, map[string]any{"vendor": vendor, "hasApiKey": false})

	default:
		w.Header().Set("Allow", "PUT, DELETE")
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", logger)
	}
}

// HandleDefaultModel PUT /api/v1/settings/default-model，模型必须已注册
func (h *SettingsHandler) HandleDefaultModel(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(h.logger, r)
	if !requireMethod(w, r, http.MethodPut, logger) || !h.ensureWritable(w, r, logger) || !ValidateContentType(w, r, logger) {
		return
	}

	var req api.SetDefaultModelRequest
	if err := DecodeJSONBody(w, r, &req, logger); err != nil {
		return
	}
	model := strings.TrimSpace(req.Model)
	if err := h.catalog.EnsureReady(); err != nil {
		WriteError(w, types.NewError(types.ErrServiceUnavailable, "model registry unavailable").WithCause(err), logger)
		return
	}
	if _, ok := h.catalog.Descriptor(model); !ok {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrModelNotFound, "unsupported model: "+model, logger)
		return
	}
	if err := h.store.SetDefaultModel(r.Context(), model); err != nil {
		h.writeStoreError(w, err, logger)
		return
	}
	WriteSuccess(w, map[string]string{"defaultModel": model})
}

// HandleUsage GET /api/v1/usage?limit=N
func (h *SettingsHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(h.logger, r)
	if !requireMethod(w, r, http.MethodGet, logger) {
		return
	}
	if h.usage == nil {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrNotFound, "usage log requires the database settings backend", logger)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "limit must be a non-negative integer", logger)
			return
		}
		limit = n
	}

	entries, err := h.usage.Recent(r.Context(), limit)
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "failed to read usage log").WithCause(err), logger)
		return
	}
	if entries == nil {
		entries = []settings.UsageEntry{}
	}
	WriteSuccess(w, api.UsageResponse{Entries: entries})
}

// ensureWritable 写入前的两道检查：JWT 调用方需带 admin 角色，后端必须可写。
// API Key 鉴权不携带身份，视为运维方直接调用。
func (h *SettingsHandler) ensureWritable(w http.ResponseWriter, r *http.Request, logger *zap.Logger) bool {
	if types.HasIdentity(r.Context()) && !types.HasRole(r.Context(), types.RoleAdmin) {
		WriteErrorMessage(w, http.StatusForbidden, types.ErrForbidden, "settings changes require the admin role", logger)
		return false
	}
	if h.store.Writable() {
		return true
	}
	WriteErrorMessage(w, http.StatusConflict, types.ErrForbidden, "settings backend is read-only", logger)
	return false
}

func (h *SettingsHandler) writeStoreError(w http.ResponseWriter, err error, logger *zap.Logger) {
	switch {
	case errors.Is(err, settings.ErrReadOnly):
		WriteErrorMessage(w, http.StatusConflict, types.ErrForbidden, "settings backend is read-only", logger)
	case errors.Is(err, settings.ErrEmptyValue):
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, err.Error(), logger)
	default:
		WriteError(w, types.NewError(types.ErrInternalError, "failed to write settings").WithCause(err), logger)
	}
}
