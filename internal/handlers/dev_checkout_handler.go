package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
	"github.com/akylbek/payment-system/payment-gate/internal/telemetry"
)

// DevCheckout is the part of the fake provider the local checkout page drives.
type DevCheckout interface {
	SetStatus(sessionID string, status models.ProviderStatus) error
	SuccessURL(sessionID string) (string, error)
}

// DevCheckoutHandler stands in for the hosted checkout page when the service
// runs against the fake provider: visiting the link pays the session.
type DevCheckoutHandler struct {
	checkout DevCheckout
}

func NewDevCheckoutHandler(checkout DevCheckout) *DevCheckoutHandler {
	return &DevCheckoutHandler{checkout: checkout}
}

func (h *DevCheckoutHandler) Pay(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.checkout.SetStatus(sessionID, models.ProviderPaid); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	target, err := h.checkout.SuccessURL(sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	telemetry.Logger.Info("Dev checkout paid", zap.String("session_id", sessionID))
	c.Redirect(http.StatusSeeOther, target)
}
