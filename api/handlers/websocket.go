package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/BaSui01/replybroker/api"
	"github.com/BaSui01/replybroker/internal/pool"
	"github.com/BaSui01/replybroker/types"
)

// =============================================================================
// 🔌 WebSocket 消息通道
// =============================================================================

const wsWriteTimeout = 10 * time.Second

// errorFrameData 无法处理的帧回给客户端的 data
type errorFrameData struct {
	Success   bool            `json:"success"`
	Error     string          `json:"error"`
	ErrorCode types.ErrorCode `json:"errorCode,omitempty"`
}

// WSHandler 长连接版本的消息端点。每个连接一个工作池，帧按到达顺序提交，
// 响应按完成顺序写回，客户端用 id 配对。
type WSHandler struct {
	dispatcher *ReplyHandler
	origins    []string
	poolCfg    pool.Config
	logger     *zap.Logger

	// base 在 Shutdown 时取消；被劫持的连接不受 http.Server.Shutdown 管理
	base     context.Context
	shutdown context.CancelFunc
}

// NewWSHandler 创建 websocket 处理器；origins 为空时只接受同源连接
func NewWSHandler(dispatcher *ReplyHandler, origins []string, poolCfg pool.Config, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &WSHandler{
		dispatcher: dispatcher,
		origins:    origins,
		poolCfg:    poolCfg,
		logger:     logger.With(zap.String("component", "ws_handler")),
		base:       base,
		shutdown:   cancel,
	}
}

// Shutdown 以 1001 关闭所有连接并拒绝新的升级请求，可重复调用
func (h *WSHandler) Shutdown() {
	h.shutdown()
}

// ServeHTTP GET /api/v1/ws
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(h.logger, r)
	if h.base.Err() != nil {
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrServiceUnavailable, "server is shutting down", logger)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		// Accept 已经写好了错误响应
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxBodyBytes)

	ctx, cancel := context.WithCancel(r.Context())
	workers := pool.New(h.poolCfg, logger)
	sess := &wsSession{conn: conn, logger: logger}

	defer conn.CloseNow()
	defer workers.Close()
	defer cancel()
	stopWatch := context.AfterFunc(h.base, func() {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	})
	defer stopWatch()

	logger.Info("websocket connected")
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Info("websocket closed by client")
			} else if !errors.Is(err, context.Canceled) {
				logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			sess.writeError(ctx, "", "", types.NewError(types.ErrInvalidRequest, "only text frames are supported"))
			continue
		}

		var env api.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			sess.writeError(ctx, "", "", types.NewError(types.ErrInvalidRequest, "invalid message envelope").WithCause(err))
			continue
		}

		err = workers.Submit(ctx, func(ctx context.Context) error {
			out, apiErr := h.dispatcher.Dispatch(ctx, env)
			if apiErr != nil {
				sess.writeError(ctx, env.Type, env.ID, apiErr)
				return apiErr
			}
			return sess.write(ctx, out)
		})
		if err != nil {
			code := types.ErrServiceUnavailable
			if errors.Is(err, pool.ErrPoolFull) {
				code = types.ErrRateLimited
			}
			sess.writeError(ctx, env.Type, env.ID, types.NewError(code, "too many in-flight messages").WithCause(err))
		}
	}
}

// wsSession 串行化同一连接上的写
type wsSession struct {
	conn   *websocket.Conn
	logger *zap.Logger
	mu     sync.Mutex
}

func (s *wsSession) write(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("marshal websocket frame failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		s.logger.Debug("websocket write failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *wsSession) writeError(ctx context.Context, typ api.MessageType, id string, apiErr *types.Error) {
	s.logger.Warn("websocket message rejected",
		zap.String("type", string(typ)),
		zap.String("id", id),
		zap.String("code", string(apiErr.Code)),
		zap.Error(apiErr))
	_ = s.write(ctx, api.ReplyEnvelope{
		Type: typ,
		ID:   id,
		Data: errorFrameData{Error: apiErr.Message, ErrorCode: apiErr.Code},
	})
}
