package handlers

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/interfaces"
	"github.com/akylbek/payment-system/payment-gate/internal/models"
	"github.com/akylbek/payment-system/payment-gate/internal/telemetry"
)

type ProtectedActionHandler struct {
	gate interfaces.ProtectedActionGate
}

func NewProtectedActionHandler(gate interfaces.ProtectedActionGate) *ProtectedActionHandler {
	return &ProtectedActionHandler{gate: gate}
}

type protectedActionRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	AttemptKey string `json:"attempt_key"`
}

// RequestProtectedAction is re-invoked by the client until it gets 200
// (authorized) or 409 (failed). 402 carries the checkout link and a
// Retry-After hint.
func (h *ProtectedActionHandler) RequestProtectedAction(c *gin.Context) {
	var req protectedActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	outcome, err := h.gate.RequestProtectedAction(c.Request.Context(), req.AttemptKey, req.UserID)
	if err != nil {
		telemetry.Logger.Error("Error evaluating protected action",
			zap.String("user_id", req.UserID),
			zap.String("attempt_key", req.AttemptKey),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}

	switch outcome.Kind {
	case models.OutcomeAuthorized:
		c.JSON(http.StatusOK, gin.H{"authorized": true, "session_id": outcome.SessionID})
	case models.OutcomeNeedsPayment, models.OutcomePending:
		c.Header("Retry-After", retryAfterSeconds(outcome.RetryAfter))
		c.JSON(http.StatusPaymentRequired, gin.H{
			"status":       outcome.Kind,
			"session_id":   outcome.SessionID,
			"redirect_url": outcome.RedirectURL,
		})
	case models.OutcomeFailed:
		c.JSON(http.StatusConflict, gin.H{
			"status":     outcome.Kind,
			"session_id": outcome.SessionID,
			"reason":     outcome.Reason,
			"message":    outcome.Reason.Message(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
