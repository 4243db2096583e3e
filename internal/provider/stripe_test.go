package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

type fakeCheckoutSessions struct {
	newParams *stripe.CheckoutSessionParams
	newResult *stripe.CheckoutSession
	getResult *stripe.CheckoutSession
	err       error
}

func (f *fakeCheckoutSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.newParams = params
	return f.newResult, f.err
}

func (f *fakeCheckoutSessions) Get(_ string, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return f.getResult, f.err
}

func testStripeConfig() StripeConfig {
	return StripeConfig{
		WebhookSecret: "whsec_test",
		Currency:      "usd",
		ProductName:   "AI Cover Letter Generation",
	}
}

func TestStripeProvider_CreateCheckoutSession(t *testing.T) {
	ctx := context.Background()

	t.Run("builds a one-item card checkout with user metadata", func(t *testing.T) {
		sessions := &fakeCheckoutSessions{newResult: &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/pay/cs_test_1"}}
		p := newStripeProvider(sessions, testStripeConfig())

		got, err := p.CreateCheckoutSession(ctx, "u1", 100, "http://localhost:8501?payment_success=true")

		require.NoError(t, err)
		require.Equal(t, "cs_test_1", got.SessionID)
		require.Equal(t, "https://checkout.stripe.com/pay/cs_test_1", got.RedirectURL)
		require.NotEmpty(t, got.RawPayload)

		params := sessions.newParams
		require.Equal(t, "payment", *params.Mode)
		require.Equal(t, "u1", params.Metadata["user_id"])
		require.Len(t, params.LineItems, 1)
		require.Equal(t, int64(100), *params.LineItems[0].PriceData.UnitAmount)
		require.Equal(t, "usd", *params.LineItems[0].PriceData.Currency)
		require.Equal(t, "AI Cover Letter Generation", *params.LineItems[0].PriceData.ProductData.Name)
	})

	t.Run("invalid arguments are rejected without calling stripe", func(t *testing.T) {
		sessions := &fakeCheckoutSessions{}
		p := newStripeProvider(sessions, testStripeConfig())

		_, err := p.CreateCheckoutSession(ctx, "", 100, "http://localhost")

		require.ErrorIs(t, err, models.ErrProviderRejected)
		require.Nil(t, sessions.newParams)
	})
}

func TestStripeProvider_RetrieveSessionStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		session *stripe.CheckoutSession
		want    models.ProviderStatus
	}{
		{
			name:    "paid",
			session: &stripe.CheckoutSession{ID: "cs_1", PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid},
			want:    models.ProviderPaid,
		},
		{
			name:    "unpaid and open",
			session: &stripe.CheckoutSession{ID: "cs_1", PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid, Status: stripe.CheckoutSessionStatusOpen},
			want:    models.ProviderUnpaid,
		},
		{
			name:    "unpaid and expired",
			session: &stripe.CheckoutSession{ID: "cs_1", PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid, Status: stripe.CheckoutSessionStatusExpired},
			want:    models.ProviderExpired,
		},
		{
			name:    "no payment required",
			session: &stripe.CheckoutSession{ID: "cs_1", PaymentStatus: stripe.CheckoutSessionPaymentStatusNoPaymentRequired},
			want:    models.ProviderNoPaymentRequired,
		},
		{
			name:    "unknown payment status",
			session: &stripe.CheckoutSession{ID: "cs_1"},
			want:    models.ProviderError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.session.Metadata = map[string]string{"user_id": "u1"}
			p := newStripeProvider(&fakeCheckoutSessions{getResult: tt.session}, testStripeConfig())

			got, err := p.RetrieveSessionStatus(ctx, "cs_1")

			require.NoError(t, err)
			require.Equal(t, tt.want, got.Status)
			require.Equal(t, "u1", got.UserID)
		})
	}
}

func TestClassifyStripeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "missing resource",
			err:  &stripe.Error{Code: stripe.ErrorCodeResourceMissing, HTTPStatusCode: http.StatusNotFound, Type: stripe.ErrorTypeInvalidRequest},
			want: models.ErrSessionNotFound,
		},
		{
			name: "invalid request",
			err:  &stripe.Error{HTTPStatusCode: http.StatusBadRequest, Type: stripe.ErrorTypeInvalidRequest},
			want: models.ErrProviderRejected,
		},
		{
			name: "server error",
			err:  &stripe.Error{HTTPStatusCode: http.StatusBadGateway, Type: stripe.ErrorTypeAPI},
			want: models.ErrProviderUnavailable,
		},
		{
			name: "rate limited",
			err:  &stripe.Error{HTTPStatusCode: http.StatusTooManyRequests, Type: stripe.ErrorTypeInvalidRequest},
			want: models.ErrProviderUnavailable,
		},
		{
			name: "transport error",
			err:  errors.New("dial tcp: connection refused"),
			want: models.ErrProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, classifyStripeError(tt.err), tt.want)
		})
	}
}
