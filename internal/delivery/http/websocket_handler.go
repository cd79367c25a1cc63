package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/delivery/http/middleware"
	"github.com/Harsh-BH/Lumina/internal/usecase"
)

const streamPollInterval = 500 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the CORS middleware for browser clients
	},
}

// WebSocketHandler streams generation job status until the job is terminal.
type WebSocketHandler struct {
	queryUC *usecase.QueryUsecase
	logger  *zap.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(queryUC *usecase.QueryUsecase, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		queryUC: queryUC,
		logger:  logger,
	}
}

// Stream handles GET /image/:id/stream (WebSocket upgrade)
func (h *WebSocketHandler) Stream(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID format"})
		return
	}
	caller := middleware.CallerFrom(c)

	// Resolve ownership before upgrading so unknown images get a plain 404.
	if _, err := h.queryUC.GetImage(c.Request.Context(), caller, id); err != nil {
		writeError(c, h.logger, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("WebSocket connection opened", zap.String("image_id", idStr))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Drain client frames so a close from the other side stops the poll loop.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()

	for {
		image, err := h.queryUC.GetImage(ctx, caller, id)
		if err != nil {
			_ = conn.WriteJSON(gin.H{"error": err.Error()})
			return
		}

		if err := conn.WriteJSON(image); err != nil {
			h.logger.Debug("WebSocket write failed (client disconnected)", zap.Error(err))
			return
		}

		if image.Status.IsTerminal() {
			h.logger.Debug("Image reached terminal state, closing WebSocket", zap.String("image_id", idStr))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(image.Status)))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
