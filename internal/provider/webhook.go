package provider

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

const (
	// SignatureHeader is the HTTP header carrying the webhook signature.
	SignatureHeader = "Stripe-Signature"
	userIDMetadata  = "user_id"
)

// parseWebhook verifies the signature and maps a checkout session event to a
// models.WebhookEvent. Verification fails closed: any parsing or signature
// problem is reported as models.ErrSignatureInvalid.
func parseWebhook(payload []byte, signature, secret string) (models.WebhookEvent, error) {
	if secret == "" {
		return models.WebhookEvent{}, fmt.Errorf("%w: webhook secret not configured", models.ErrSignatureInvalid)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return models.WebhookEvent{}, fmt.Errorf("%w: %v", models.ErrSignatureInvalid, err)
	}

	out := models.WebhookEvent{
		EventID:    event.ID,
		Type:       string(event.Type),
		RawPayload: payload,
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
	default:
		return out, fmt.Errorf("%w: %s", models.ErrUnsupportedEvent, event.Type)
	}

	if event.Data == nil {
		return out, models.ErrMissingSessionID
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return out, fmt.Errorf("%w: decode checkout session: %v", models.ErrMissingSessionID, err)
	}

	out.SessionID = sess.ID
	out.UserID = sess.Metadata[userIDMetadata]

	switch event.Type {
	case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		out.Status = models.ProviderPaid
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		out.Status = models.ProviderFailed
	case stripe.EventTypeCheckoutSessionExpired:
		out.Status = models.ProviderExpired
	default:
		out.Status = providerStatus(&sess)
	}

	if out.SessionID == "" {
		return out, models.ErrMissingSessionID
	}
	return out, nil
}

// providerStatus maps a Stripe checkout session onto a models.ProviderStatus.
func providerStatus(sess *stripe.CheckoutSession) models.ProviderStatus {
	switch sess.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid:
		return models.ProviderPaid
	case stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return models.ProviderNoPaymentRequired
	case stripe.CheckoutSessionPaymentStatusUnpaid:
		if sess.Status == stripe.CheckoutSessionStatusExpired {
			return models.ProviderExpired
		}
		return models.ProviderUnpaid
	}
	return models.ProviderError
}
