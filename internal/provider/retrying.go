package provider

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/interfaces"
	"github.com/akylbek/payment-system/payment-gate/internal/metrics"
	"github.com/akylbek/payment-system/payment-gate/internal/models"
	"github.com/akylbek/payment-system/payment-gate/internal/retry"
)

// Retrying decorates a PaymentProvider with a retry policy. Rejected requests,
// invalid signatures and unsupported events are never retried.
type Retrying struct {
	next   interfaces.PaymentProvider
	policy retry.Policy
	logger *zap.Logger
}

func NewRetrying(next interfaces.PaymentProvider, policy retry.Policy, logger *zap.Logger) *Retrying {
	if policy.Retryable == nil {
		policy.Retryable = IsRetryable
	}
	return &Retrying{next: next, policy: policy, logger: logger}
}

// IsRetryable reports whether a provider error is worth another attempt.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, models.ErrProviderRejected),
		errors.Is(err, models.ErrSignatureInvalid),
		errors.Is(err, models.ErrUnsupportedEvent),
		errors.Is(err, models.ErrMissingSessionID),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (r *Retrying) CreateCheckoutSession(ctx context.Context, userID string, amount int64, successURL string) (models.CheckoutSession, error) {
	var out models.CheckoutSession
	err := r.do(ctx, "create_checkout_session", zap.String("user_id", userID), func(ctx context.Context) error {
		var err error
		out, err = r.next.CreateCheckoutSession(ctx, userID, amount, successURL)
		return err
	})
	return out, err
}

func (r *Retrying) RetrieveSessionStatus(ctx context.Context, sessionID string) (models.ProviderSession, error) {
	var out models.ProviderSession
	err := r.do(ctx, "retrieve_session", zap.String("session_id", sessionID), func(ctx context.Context) error {
		var err error
		out, err = r.next.RetrieveSessionStatus(ctx, sessionID)
		return err
	})
	return out, err
}

func (r *Retrying) VerifyWebhook(ctx context.Context, payload []byte, signature string) (models.WebhookEvent, error) {
	var out models.WebhookEvent
	err := r.do(ctx, "verify_webhook", zap.Int("payload_bytes", len(payload)), func(ctx context.Context) error {
		var err error
		out, err = r.next.VerifyWebhook(ctx, payload, signature)
		return err
	})
	return out, err
}

func (r *Retrying) do(ctx context.Context, operation string, field zap.Field, op func(context.Context) error) error {
	policy := r.policy
	userOnRetry := policy.OnRetry
	policy.OnRetry = func(err error, attempt int, wait time.Duration) {
		r.logger.Warn("Payment provider call failed, retrying",
			zap.String("operation", operation),
			field,
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if userOnRetry != nil {
			userOnRetry(err, attempt, wait)
		}
	}

	err := policy.Do(ctx, func(ctx context.Context) error {
		err := op(ctx)
		metrics.ObserveProviderCall(operation, err)
		return err
	})
	if err != nil && IsRetryable(err) {
		r.logger.Error("Payment provider call failed after retries",
			zap.String("operation", operation),
			field,
			zap.Int("attempts", policy.MaxAttempts),
			zap.Error(err),
		)
	}
	return err
}
