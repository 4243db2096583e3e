package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

const checkoutSessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

type fakeSession struct {
	userID     string
	successURL string
	status     models.ProviderStatus
}

// Fake is an in-process provider with Stripe-compatible signed webhooks. It
// backs local runs (PROVIDER_BACKEND=fake) and behavioural tests.
type Fake struct {
	mu              sync.Mutex
	sessions        map[string]*fakeSession
	failures        map[string][]error
	webhookSecret   string
	checkoutBaseURL string
}

func NewFake(webhookSecret, checkoutBaseURL string) *Fake {
	return &Fake{
		sessions:        make(map[string]*fakeSession),
		failures:        make(map[string][]error),
		webhookSecret:   webhookSecret,
		checkoutBaseURL: strings.TrimRight(checkoutBaseURL, "/"),
	}
}

// FailNext makes the next len(errs) calls of operation return errs in order.
// Operations: "create", "retrieve", "verify".
func (f *Fake) FailNext(operation string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[operation] = append(f.failures[operation], errs...)
}

func (f *Fake) popFailure(operation string) error {
	queue := f.failures[operation]
	if len(queue) == 0 {
		return nil
	}
	f.failures[operation] = queue[1:]
	return queue[0]
}

// SetStatus changes what the provider reports for a session.
func (f *Fake) SetStatus(sessionID string, status models.ProviderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	s.status = status
	return nil
}

// SuccessURL returns the redirect target for a finished checkout.
func (f *Fake) SuccessURL(sessionID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return "", models.ErrSessionNotFound
	}
	return strings.ReplaceAll(s.successURL, checkoutSessionIDPlaceholder, sessionID), nil
}

func (f *Fake) CreateCheckoutSession(_ context.Context, userID string, amount int64, successURL string) (models.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.popFailure("create"); err != nil {
		return models.CheckoutSession{}, err
	}
	if userID == "" || amount <= 0 || successURL == "" {
		return models.CheckoutSession{}, fmt.Errorf("%w: user id, positive amount and success url are required", models.ErrProviderRejected)
	}

	id := "cs_fake_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	f.sessions[id] = &fakeSession{userID: userID, successURL: successURL, status: models.ProviderUnpaid}

	url := f.checkoutBaseURL + "/" + id
	raw, _ := json.Marshal(map[string]any{"id": id, "url": url, "amount_total": amount})
	return models.CheckoutSession{SessionID: id, RedirectURL: url, RawPayload: raw}, nil
}

func (f *Fake) RetrieveSessionStatus(_ context.Context, sessionID string) (models.ProviderSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.popFailure("retrieve"); err != nil {
		return models.ProviderSession{}, err
	}
	s, ok := f.sessions[sessionID]
	if !ok {
		return models.ProviderSession{}, fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
	}

	raw, _ := json.Marshal(map[string]any{"id": sessionID, "payment_status": s.status})
	return models.ProviderSession{
		SessionID:  sessionID,
		UserID:     s.userID,
		Status:     s.status,
		RawPayload: raw,
	}, nil
}

func (f *Fake) VerifyWebhook(_ context.Context, payload []byte, signature string) (models.WebhookEvent, error) {
	f.mu.Lock()
	err := f.popFailure("verify")
	f.mu.Unlock()
	if err != nil {
		return models.WebhookEvent{}, err
	}
	return parseWebhook(payload, signature, f.webhookSecret)
}

// SignedEvent builds a signed checkout session webhook the way the real
// provider would deliver it.
func (f *Fake) SignedEvent(eventType stripe.EventType, sessionID, userID string, paymentStatus stripe.CheckoutSessionPaymentStatus) (payload []byte, signature string) {
	object := map[string]any{
		"object":         "checkout.session",
		"payment_status": paymentStatus,
		"metadata":       map[string]string{userIDMetadata: userID},
	}
	if sessionID != "" {
		object["id"] = sessionID
	}
	payload, _ = json.Marshal(map[string]any{
		"id":          "evt_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"data":        map[string]any{"object": object},
	})
	return payload, SignPayload(payload, f.webhookSecret)
}

// SignPayload produces a Stripe-Signature header value for payload.
func SignPayload(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}
