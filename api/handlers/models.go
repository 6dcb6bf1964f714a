package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/replybroker/api"
	"github.com/BaSui01/replybroker/llm"
	"github.com/BaSui01/replybroker/types"
)

// ModelCatalog 已注册模型目录，由 *llm.Registry 实现
type ModelCatalog interface {
	EnsureReady() error
	Descriptors() []llm.ModelDescriptor
	Descriptor(modelID string) (llm.ModelDescriptor, bool)
}

// DefaultModelSource 当前默认模型，由 *settings.Service 实现
type DefaultModelSource interface {
	GetDefaultModel(ctx context.Context) (string, error)
}

// ModelsHandler 模型目录
type ModelsHandler struct {
	catalog  ModelCatalog
	defaults DefaultModelSource
	logger   *zap.Logger
}

// NewModelsHandler 创建模型目录处理器
func NewModelsHandler(catalog ModelCatalog, defaults DefaultModelSource, logger *zap.Logger) *ModelsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelsHandler{catalog: catalog, defaults: defaults, logger: logger.With(zap.String("component", "models_handler"))}
}

// HandleList GET /api/v1/models
func (h *ModelsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(h.logger, r)
	if !requireMethod(w, r, http.MethodGet, logger) {
		return
	}

	if err := h.catalog.EnsureReady(); err != nil {
		WriteError(w, types.NewError(types.ErrServiceUnavailable, "model registry unavailable").
			WithCause(err).WithHTTPStatus(http.StatusServiceUnavailable), logger)
		return
	}

	def, err := h.defaults.GetDefaultModel(r.Context())
	if err != nil {
		logger.Warn("default model lookup failed", zap.Error(err))
	}
	if def == "" {
		def = llm.DefaultModelID
	}
	WriteSuccess(w, api.ModelListResponse{Models: h.catalog.Descriptors(), DefaultModel: def})
}
