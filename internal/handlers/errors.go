package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

// writeError maps domain errors to a status code and a stable message. Raw
// error text is never sent to clients.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidUserID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
	case errors.Is(err, models.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment session not found"})
	case errors.Is(err, models.ErrProviderRejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Payment provider rejected the request"})
	case errors.Is(err, models.ErrProviderUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable"})
	case errors.Is(err, models.ErrLedgerUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment ledger unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
