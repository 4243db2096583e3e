package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/interfaces"
	"github.com/akylbek/payment-system/payment-gate/internal/models"
	"github.com/akylbek/payment-system/payment-gate/internal/provider"
	"github.com/akylbek/payment-system/payment-gate/internal/telemetry"
)

const maxWebhookBytes = 65536

type WebhookHandler struct {
	sessions interfaces.SessionManager
}

func NewWebhookHandler(sessions interfaces.SessionManager) *WebhookHandler {
	return &WebhookHandler{sessions: sessions}
}

// HandleStripeWebhook passes the raw body and signature header to the session
// manager untouched; the signature covers the exact bytes.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		telemetry.Logger.Warn("Error reading webhook body", zap.Error(err))
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}

	status, err := h.sessions.HandleWebhook(c.Request.Context(), payload, c.GetHeader(provider.SignatureHeader))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"received": true, "status": status})
	case errors.Is(err, models.ErrSignatureInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
	case errors.Is(err, models.ErrMissingSessionID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "event has no session id"})
	case errors.Is(err, models.ErrUnsupportedEvent):
		c.JSON(http.StatusOK, gin.H{"received": true, "status": "ignored"})
	default:
		// A 5xx makes the provider redeliver the event later.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
	}
}
