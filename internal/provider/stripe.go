// Package provider implements the payment provider client: the Stripe Checkout
// integration, a retrying decorator, and an in-process fake for local runs.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

// checkoutSessions is the subset of the Stripe checkout session client we use,
// kept as an interface so tests can swap it out.
type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	ProductName   string
	// RequestTimeout bounds each HTTP call to Stripe. Zero keeps the
	// library default.
	RequestTimeout time.Duration
}

// StripeProvider implements interfaces.PaymentProvider on Stripe Checkout.
type StripeProvider struct {
	sessions      checkoutSessions
	webhookSecret string
	currency      string
	productName   string
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	var backends *stripe.Backends
	if cfg.RequestTimeout > 0 {
		backends = stripe.NewBackends(&http.Client{Timeout: cfg.RequestTimeout})
	}
	sc := &client.API{}
	sc.Init(cfg.SecretKey, backends)
	return newStripeProvider(sc.CheckoutSessions, cfg)
}

func newStripeProvider(sessions checkoutSessions, cfg StripeConfig) *StripeProvider {
	return &StripeProvider{
		sessions:      sessions,
		webhookSecret: cfg.WebhookSecret,
		currency:      cfg.Currency,
		productName:   cfg.ProductName,
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, userID string, amount int64, successURL string) (models.CheckoutSession, error) {
	if userID == "" || amount <= 0 || successURL == "" {
		return models.CheckoutSession{}, fmt.Errorf("%w: user id, positive amount and success url are required", models.ErrProviderRejected)
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.currency),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.productName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(successURL),
	}
	params.Context = ctx
	params.AddMetadata(userIDMetadata, userID)

	sess, err := p.sessions.New(params)
	if err != nil {
		return models.CheckoutSession{}, classifyStripeError(err)
	}

	raw, _ := json.Marshal(sess)
	return models.CheckoutSession{
		SessionID:   sess.ID,
		RedirectURL: sess.URL,
		RawPayload:  raw,
	}, nil
}

func (p *StripeProvider) RetrieveSessionStatus(ctx context.Context, sessionID string) (models.ProviderSession, error) {
	if sessionID == "" {
		return models.ProviderSession{}, fmt.Errorf("%w: session id is required", models.ErrProviderRejected)
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	sess, err := p.sessions.Get(sessionID, params)
	if err != nil {
		return models.ProviderSession{}, classifyStripeError(err)
	}

	raw, _ := json.Marshal(sess)
	return models.ProviderSession{
		SessionID:  sess.ID,
		UserID:     sess.Metadata[userIDMetadata],
		Status:     providerStatus(sess),
		RawPayload: raw,
	}, nil
}

func (p *StripeProvider) VerifyWebhook(_ context.Context, payload []byte, signature string) (models.WebhookEvent, error) {
	return parseWebhook(payload, signature, p.webhookSecret)
}

// classifyStripeError sorts Stripe API errors into the provider error taxonomy.
func classifyStripeError(err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}

	switch {
	case serr.Code == stripe.ErrorCodeResourceMissing || serr.HTTPStatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", models.ErrSessionNotFound, serr.Msg)
	case serr.HTTPStatusCode == http.StatusTooManyRequests,
		serr.HTTPStatusCode >= http.StatusInternalServerError,
		serr.Type == stripe.ErrorTypeAPI:
		return fmt.Errorf("%w: %s", models.ErrProviderUnavailable, serr.Msg)
	case serr.Type == stripe.ErrorTypeInvalidRequest,
		serr.HTTPStatusCode >= http.StatusBadRequest:
		return fmt.Errorf("%w: %s", models.ErrProviderRejected, serr.Msg)
	}
	return fmt.Errorf("%w: %s", models.ErrProviderUnavailable, serr.Msg)
}
