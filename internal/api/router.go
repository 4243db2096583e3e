package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akylbek/payment-system/payment-gate/internal/handlers"
	"github.com/akylbek/payment-system/payment-gate/internal/interfaces"
	"github.com/akylbek/payment-system/payment-gate/internal/telemetry"
)

type Deps struct {
	Ledger   interfaces.LedgerStore
	Sessions interfaces.SessionManager
	Gate     interfaces.ProtectedActionGate
	// DevCheckout is set only when running against the fake provider.
	DevCheckout handlers.DevCheckout
}

func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "payment-gate"})
	})

	webhookHandler := handlers.NewWebhookHandler(deps.Sessions)
	r.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	actionHandler := handlers.NewProtectedActionHandler(deps.Gate)
	r.POST("/protected-actions", actionHandler.RequestProtectedAction)

	sessionHandler := handlers.NewPaymentSessionHandler(deps.Ledger, deps.Sessions)
	r.POST("/payments/sessions", sessionHandler.CreateSession)
	r.GET("/payments/sessions/:id", sessionHandler.GetSession)
	r.GET("/payments/sessions/:id/paid", sessionHandler.IsPaid)
	r.GET("/payments/success", sessionHandler.PaymentSuccess)

	if deps.DevCheckout != nil {
		devHandler := handlers.NewDevCheckoutHandler(deps.DevCheckout)
		r.GET("/dev/checkout/:id", devHandler.Pay)
	}

	return r
}
