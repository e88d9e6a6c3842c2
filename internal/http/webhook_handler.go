package http

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"anon-relay/internal/transport"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler recibe updates de Telegram y los entrega al engine.
type WebhookHandler struct {
	logger  *zap.Logger
	handler transport.EventHandler
	secret  string
}

func NewWebhookHandler(logger *zap.Logger, handler transport.EventHandler, secret string) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{logger: logger, handler: handler, secret: secret}
}

// Receive maneja POST /telegram/webhook. Responde 200 aunque el flujo falle:
// cualquier otro status hace que Telegram reenvíe el update.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if h.secret != "" {
		got := c.GetHeader(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.logger.Warn("webhook secret mismatch", zap.String("client_ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
	}

	var update transport.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Warn("invalid webhook update", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ev, ok := transport.EventFromUpdate(update)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	// Una conexión caída no debe cancelar escrituras en curso.
	if err := h.handler.Handle(context.WithoutCancel(c.Request.Context()), ev); err != nil {
		h.logger.Error("webhook event failed",
			zap.Int64("update_id", update.UpdateID),
			zap.String("event_id", ev.ID),
			zap.String("caller", ev.CallerID),
			zap.Error(err),
		)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
