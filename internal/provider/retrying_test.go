package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/interfaces/mocks"
	"github.com/akylbek/payment-system/payment-gate/internal/models"
	"github.com/akylbek/payment-system/payment-gate/internal/retry"
)

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestRetrying(t *testing.T) {
	ctx := context.Background()

	t.Run("transient create failure is retried", func(t *testing.T) {
		next := mocks.NewPaymentProvider(t)
		next.On("CreateCheckoutSession", mock.Anything, "u1", int64(100), "http://ok").
			Return(models.CheckoutSession{}, models.ErrProviderUnavailable).Once()
		next.On("CreateCheckoutSession", mock.Anything, "u1", int64(100), "http://ok").
			Return(models.CheckoutSession{SessionID: "cs_1", RedirectURL: "http://pay"}, nil).Once()

		got, err := NewRetrying(next, fastPolicy(), zap.NewNop()).CreateCheckoutSession(ctx, "u1", 100, "http://ok")

		require.NoError(t, err)
		require.Equal(t, "cs_1", got.SessionID)
	})

	t.Run("rejected create is not retried", func(t *testing.T) {
		next := mocks.NewPaymentProvider(t)
		next.On("CreateCheckoutSession", mock.Anything, "u1", int64(100), "http://ok").
			Return(models.CheckoutSession{}, models.ErrProviderRejected).Once()

		_, err := NewRetrying(next, fastPolicy(), zap.NewNop()).CreateCheckoutSession(ctx, "u1", 100, "http://ok")

		require.ErrorIs(t, err, models.ErrProviderRejected)
	})

	t.Run("retrieve surfaces last error after three attempts", func(t *testing.T) {
		next := mocks.NewPaymentProvider(t)
		next.On("RetrieveSessionStatus", mock.Anything, "cs_1").
			Return(models.ProviderSession{}, models.ErrSessionNotFound).Times(3)

		_, err := NewRetrying(next, fastPolicy(), zap.NewNop()).RetrieveSessionStatus(ctx, "cs_1")

		require.ErrorIs(t, err, models.ErrSessionNotFound)
	})

	t.Run("invalid signature is not retried", func(t *testing.T) {
		next := mocks.NewPaymentProvider(t)
		next.On("VerifyWebhook", mock.Anything, []byte("{}"), "bad").
			Return(models.WebhookEvent{}, models.ErrSignatureInvalid).Once()

		_, err := NewRetrying(next, fastPolicy(), zap.NewNop()).VerifyWebhook(ctx, []byte("{}"), "bad")

		require.ErrorIs(t, err, models.ErrSignatureInvalid)
	})
}

func TestIsRetryable(t *testing.T) {
	require.True(t, IsRetryable(models.ErrProviderUnavailable))
	require.True(t, IsRetryable(models.ErrSessionNotFound))
	require.False(t, IsRetryable(models.ErrProviderRejected))
	require.False(t, IsRetryable(models.ErrSignatureInvalid))
	require.False(t, IsRetryable(context.Canceled))
}
