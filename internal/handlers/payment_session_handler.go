package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/interfaces"
	"github.com/akylbek/payment-system/payment-gate/internal/models"
	"github.com/akylbek/payment-system/payment-gate/internal/telemetry"
)

type PaymentSessionHandler struct {
	ledger   interfaces.LedgerStore
	sessions interfaces.SessionManager
}

func NewPaymentSessionHandler(ledger interfaces.LedgerStore, sessions interfaces.SessionManager) *PaymentSessionHandler {
	return &PaymentSessionHandler{
		ledger:   ledger,
		sessions: sessions,
	}
}

type createSessionRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *PaymentSessionHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	checkout, err := h.sessions.CreateSession(c.Request.Context(), req.UserID)
	if err != nil {
		telemetry.Logger.Error("Error creating payment session",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id":   checkout.SessionID,
		"redirect_url": checkout.RedirectURL,
	})
}

func (h *PaymentSessionHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("id")

	session, err := h.ledger.Get(c.Request.Context(), sessionID)
	if errors.Is(err, models.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payment session"})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *PaymentSessionHandler) IsPaid(c *gin.Context) {
	sessionID := c.Param("id")

	paid, err := h.sessions.IsPaid(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "paid": paid})
}

// PaymentSuccess is the provider's redirect target after checkout. It polls
// the session once so the ledger reflects the payment without waiting for
// the webhook. Only sessions this service opened are polled.
func (h *PaymentSessionHandler) PaymentSuccess(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	if _, err := h.ledger.Get(c.Request.Context(), sessionID); err != nil {
		if !errors.Is(err, models.ErrSessionNotFound) {
			telemetry.Logger.Error("Error reading payment session",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
		writeError(c, err)
		return
	}

	status, err := h.sessions.PollStatus(c.Request.Context(), sessionID)
	if err != nil {
		telemetry.Logger.Warn("Payment status check after checkout failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"status":     status,
		"paid":       status == models.StatusPaid,
	})
}
