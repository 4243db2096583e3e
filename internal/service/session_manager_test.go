package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/interfaces/mocks"
	"github.com/akylbek/payment-system/payment-gate/internal/metrics"
	"github.com/akylbek/payment-system/payment-gate/internal/models"
	"github.com/akylbek/payment-system/payment-gate/internal/provider"
	"github.com/akylbek/payment-system/payment-gate/internal/repository/memory"
)

const webhookSecret = "whsec_test"

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.StateChangedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e models.StateChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) statuses() []models.SessionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.SessionStatus, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Status)
	}
	return out
}

// hookLedger runs beforeUpdate once, just before the next conditional update,
// and can fail the next insert.
type hookLedger struct {
	*memory.Ledger
	mu           sync.Mutex
	beforeUpdate func()
	insertErr    error
}

func (l *hookLedger) Insert(ctx context.Context, s models.PaymentSession) error {
	l.mu.Lock()
	err := l.insertErr
	l.insertErr = nil
	l.mu.Unlock()
	if err != nil {
		return err
	}
	return l.Ledger.Insert(ctx, s)
}

func (l *hookLedger) ConditionalUpdate(ctx context.Context, id string, expected *models.SessionStatus, upd models.SessionUpdate) error {
	l.mu.Lock()
	hook := l.beforeUpdate
	l.beforeUpdate = nil
	l.mu.Unlock()
	if hook != nil {
		hook()
	}
	return l.Ledger.ConditionalUpdate(ctx, id, expected, upd)
}

type harness struct {
	provider *provider.Fake
	ledger   *hookLedger
	events   *recordingPublisher
	manager  *SessionManager
}

func newHarness(opts ...SessionOption) *harness {
	h := &harness{
		provider: provider.NewFake(webhookSecret, "http://localhost:8082/dev/checkout"),
		ledger:   &hookLedger{Ledger: memory.NewLedger()},
		events:   &recordingPublisher{},
	}
	opts = append([]SessionOption{
		WithPublisher(h.events),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	h.manager = NewSessionManager(h.provider, h.ledger, zap.NewNop(), SessionConfig{
		Amount:     100,
		SuccessURL: "http://localhost:8501",
	}, opts...)
	return h
}

func (h *harness) webhook(t *testing.T, eventType stripe.EventType, sessionID string, status stripe.CheckoutSessionPaymentStatus) (models.SessionStatus, error) {
	t.Helper()
	payload, sig := h.provider.SignedEvent(eventType, sessionID, "u1", status)
	return h.manager.HandleWebhook(context.Background(), payload, sig)
}

func (h *harness) stored(t *testing.T, sessionID string) models.PaymentSession {
	t.Helper()
	s, err := h.ledger.Get(context.Background(), sessionID)
	require.NoError(t, err)
	return s
}

func TestSessionManager_HappyPath(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	checkout, err := h.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, checkout.SessionID)
	require.Contains(t, checkout.RedirectURL, checkout.SessionID)
	require.Equal(t, models.StatusCreated, h.stored(t, checkout.SessionID).Status)

	status, err := h.manager.PollStatus(ctx, checkout.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, status)

	require.NoError(t, h.provider.SetStatus(checkout.SessionID, models.ProviderPaid))

	status, err = h.manager.PollStatus(ctx, checkout.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, status)

	paid, err := h.manager.IsPaid(ctx, checkout.SessionID)
	require.NoError(t, err)
	require.True(t, paid)

	require.Equal(t, []models.SessionStatus{models.StatusCreated, models.StatusPending, models.StatusPaid}, h.events.statuses())
}

func TestSessionManager_SuccessURLCarriesSessionPlaceholder(t *testing.T) {
	h := newHarness()

	checkout, err := h.manager.CreateSession(context.Background(), "u1")
	require.NoError(t, err)

	success, err := h.provider.SuccessURL(checkout.SessionID)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8501?payment_success=true&session_id="+checkout.SessionID, success)
}

func TestSessionManager_CreateSessionRequiresUser(t *testing.T) {
	_, err := newHarness().manager.CreateSession(context.Background(), "")
	require.ErrorIs(t, err, models.ErrInvalidUserID)
}

func TestSessionManager_CreateSessionProviderFailure(t *testing.T) {
	h := newHarness()
	h.provider.FailNext("create", models.ErrProviderUnavailable)

	_, err := h.manager.CreateSession(context.Background(), "u1")

	require.ErrorIs(t, err, models.ErrProviderUnavailable)
	require.Empty(t, h.events.statuses())
}

func TestSessionManager_WebhookOnlyConfirmation(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	checkout, err := h.manager.CreateSession(ctx, "u2")
	require.NoError(t, err)

	status, err := h.webhook(t, stripe.EventTypeCheckoutSessionCompleted, checkout.SessionID, stripe.CheckoutSessionPaymentStatusPaid)

	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, status)
	require.Equal(t, models.StatusPaid, h.stored(t, checkout.SessionID).Status)
	paid, err := h.manager.IsPaid(ctx, checkout.SessionID)
	require.NoError(t, err)
	require.True(t, paid)
}

func TestSessionManager_InvalidSignature(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	checkout, err := h.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)
	before := h.stored(t, checkout.SessionID)
	rejected := testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues("signature_invalid"))

	payload, _ := h.provider.SignedEvent(stripe.EventTypeCheckoutSessionCompleted, checkout.SessionID, "u1", stripe.CheckoutSessionPaymentStatusPaid)
	status, err := h.manager.HandleWebhook(ctx, payload, "bad-signature")

	require.ErrorIs(t, err, models.ErrSignatureInvalid)
	require.Empty(t, status)
	require.Equal(t, before, h.stored(t, checkout.SessionID))
	require.Equal(t, rejected+1, testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues("signature_invalid")))
}

func TestSessionManager_PaidConfirmationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	checkout, err := h.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, h.provider.SetStatus(checkout.SessionID, models.ProviderPaid))

	for i := 0; i < 3; i++ {
		status, err := h.manager.PollStatus(ctx, checkout.SessionID)
		require.NoError(t, err)
		require.Equal(t, models.StatusPaid, status)

		status, err = h.webhook(t, stripe.EventTypeCheckoutSessionCompleted, checkout.SessionID, stripe.CheckoutSessionPaymentStatusPaid)
		require.NoError(t, err)
		require.Equal(t, models.StatusPaid, status)
	}

	require.Equal(t, []models.SessionStatus{models.StatusCreated, models.StatusPaid}, h.events.statuses())
}

func TestSessionManager_PaidIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	checkout, err := h.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)
	_, err = h.webhook(t, stripe.EventTypeCheckoutSessionCompleted, checkout.SessionID, stripe.CheckoutSessionPaymentStatusPaid)
	require.NoError(t, err)
	paidRow := h.stored(t, checkout.SessionID)

	require.NoError(t, h.provider.SetStatus(checkout.SessionID, models.ProviderUnpaid))
	status, err := h.manager.PollStatus(ctx, checkout.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, status)

	stale := []struct {
		eventType stripe.EventType
		status    stripe.CheckoutSessionPaymentStatus
	}{
		{stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSessionPaymentStatusUnpaid},
		{stripe.EventTypeCheckoutSessionAsyncPaymentFailed, stripe.CheckoutSessionPaymentStatusUnpaid},
		{stripe.EventTypeCheckoutSessionExpired, stripe.CheckoutSessionPaymentStatusUnpaid},
	}
	for _, e := range stale {
		status, err := h.webhook(t, e.eventType, checkout.SessionID, e.status)
		require.NoError(t, err)
		require.Equal(t, models.StatusPaid, status)
	}

	upd := models.SessionUpdate{Status: models.StatusFailed, UpdatedAt: testNow.Add(time.Hour)}
	require.ErrorIs(t, h.ledger.ConditionalUpdate(ctx, checkout.SessionID, nil, upd), models.ErrLedgerConflict)

	require.Equal(t, paidRow, h.stored(t, checkout.SessionID))
}

func TestSessionManager_PollAfterPaidSkipsProvider(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	require.NoError(t, ledger.Insert(ctx, models.PaymentSession{SessionID: "cs_1", UserID: "u1", Status: models.StatusPaid, CreatedAt: testNow, UpdatedAt: testNow}))

	// No expectations: any provider call fails the test.
	p := mocks.NewPaymentProvider(t)
	m := NewSessionManager(p, ledger, zap.NewNop(), SessionConfig{Amount: 100, SuccessURL: "http://localhost"})

	status, err := m.PollStatus(ctx, "cs_1")

	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, status)
}

func TestSessionManager_RaceConvergesToPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("webhook lands between poll read and poll write", func(t *testing.T) {
		h := newHarness()
		checkout, err := h.manager.CreateSession(ctx, "u1")
		require.NoError(t, err)
		_, err = h.manager.PollStatus(ctx, checkout.SessionID)
		require.NoError(t, err)

		h.ledger.beforeUpdate = func() {
			status, err := h.webhook(t, stripe.EventTypeCheckoutSessionCompleted, checkout.SessionID, stripe.CheckoutSessionPaymentStatusPaid)
			require.NoError(t, err)
			require.Equal(t, models.StatusPaid, status)
		}

		status, err := h.manager.PollStatus(ctx, checkout.SessionID)

		require.NoError(t, err)
		require.Equal(t, models.StatusPaid, status)
		require.Equal(t, models.StatusPaid, h.stored(t, checkout.SessionID).Status)
	})

	t.Run("poll lands between webhook read and webhook write", func(t *testing.T) {
		h := newHarness()
		checkout, err := h.manager.CreateSession(ctx, "u1")
		require.NoError(t, err)
		require.NoError(t, h.provider.SetStatus(checkout.SessionID, models.ProviderUnpaid))

		h.ledger.beforeUpdate = func() {
			status, err := h.manager.PollStatus(ctx, checkout.SessionID)
			require.NoError(t, err)
			require.Equal(t, models.StatusPending, status)
		}

		status, err := h.webhook(t, stripe.EventTypeCheckoutSessionCompleted, checkout.SessionID, stripe.CheckoutSessionPaymentStatusPaid)

		require.NoError(t, err)
		require.Equal(t, models.StatusPaid, status)
		require.Equal(t, models.StatusPaid, h.stored(t, checkout.SessionID).Status)
	})

	t.Run("concurrent callers", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			h := newHarness()
			checkout, err := h.manager.CreateSession(ctx, "u1")
			require.NoError(t, err)
			payload, sig := h.provider.SignedEvent(stripe.EventTypeCheckoutSessionCompleted, checkout.SessionID, "u1", stripe.CheckoutSessionPaymentStatusPaid)

			var wg sync.WaitGroup
			for j := 0; j < 4; j++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					_, _ = h.manager.PollStatus(ctx, checkout.SessionID)
				}()
				go func() {
					defer wg.Done()
					_, _ = h.manager.HandleWebhook(ctx, payload, sig)
				}()
			}
			wg.Wait()

			require.Equal(t, models.StatusPaid, h.stored(t, checkout.SessionID).Status)
		}
	})
}

func TestSessionManager_ProviderErrorMarksSessionError(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	checkout, err := h.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)

	h.provider.FailNext("retrieve", models.ErrProviderUnavailable)
	status, err := h.manager.PollStatus(ctx, checkout.SessionID)
	require.ErrorIs(t, err, models.ErrProviderUnavailable)
	require.Equal(t, models.StatusError, status)
	require.Equal(t, models.StatusError, h.stored(t, checkout.SessionID).Status)

	status, err = h.manager.PollStatus(ctx, checkout.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, status)
}

func TestSessionManager_UnknownSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	_, err := h.manager.PollStatus(ctx, "cs_missing")
	require.ErrorIs(t, err, models.ErrSessionNotFound)

	paid, err := h.manager.IsPaid(ctx, "cs_missing")
	require.NoError(t, err)
	require.False(t, paid)
}

func TestSessionManager_LedgerFailureAfterCreate(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.ledger.insertErr = models.ErrLedgerUnavailable
	reconciliations := testutil.ToFloat64(metrics.LedgerReconciliations)

	checkout, err := h.manager.CreateSession(ctx, "u1")

	require.NoError(t, err)
	require.NotEmpty(t, checkout.RedirectURL)
	require.Equal(t, reconciliations+1, testutil.ToFloat64(metrics.LedgerReconciliations))
	_, err = h.ledger.Get(ctx, checkout.SessionID)
	require.ErrorIs(t, err, models.ErrSessionNotFound)

	t.Run("poll restores the row", func(t *testing.T) {
		status, err := h.manager.PollStatus(ctx, checkout.SessionID)
		require.NoError(t, err)
		require.Equal(t, models.StatusPending, status)

		row := h.stored(t, checkout.SessionID)
		require.Equal(t, "u1", row.UserID)
		require.Equal(t, models.StatusPending, row.Status)
	})
}

func TestSessionManager_WebhookRestoresMissingRow(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.ledger.insertErr = models.ErrLedgerUnavailable

	checkout, err := h.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)

	status, err := h.webhook(t, stripe.EventTypeCheckoutSessionCompleted, checkout.SessionID, stripe.CheckoutSessionPaymentStatusPaid)

	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, status)
	require.Equal(t, models.StatusPaid, h.stored(t, checkout.SessionID).Status)
}

func TestSessionManager_WebhookRejections(t *testing.T) {
	h := newHarness()

	_, err := h.webhook(t, stripe.EventTypeCheckoutSessionCompleted, "", stripe.CheckoutSessionPaymentStatusPaid)
	require.ErrorIs(t, err, models.ErrMissingSessionID)

	_, err = h.webhook(t, stripe.EventTypeCustomerCreated, "cs_1", stripe.CheckoutSessionPaymentStatusPaid)
	require.ErrorIs(t, err, models.ErrUnsupportedEvent)

	_, err = h.ledger.Get(context.Background(), "cs_1")
	require.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestSessionManager_TerminalFailures(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		eventType stripe.EventType
		want      models.SessionStatus
	}{
		{stripe.EventTypeCheckoutSessionAsyncPaymentFailed, models.StatusFailed},
		{stripe.EventTypeCheckoutSessionExpired, models.StatusExpired},
	} {
		t.Run(string(tc.eventType), func(t *testing.T) {
			h := newHarness()
			checkout, err := h.manager.CreateSession(ctx, "u1")
			require.NoError(t, err)

			status, err := h.webhook(t, tc.eventType, checkout.SessionID, stripe.CheckoutSessionPaymentStatusUnpaid)
			require.NoError(t, err)
			require.Equal(t, tc.want, status)

			status, err = h.webhook(t, stripe.EventTypeCheckoutSessionCompleted, checkout.SessionID, stripe.CheckoutSessionPaymentStatusPaid)
			require.NoError(t, err)
			require.Equal(t, tc.want, status)
		})
	}
}

func TestSessionManager_LockedSessionIsNotPolledTwice(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	require.NoError(t, ledger.Insert(ctx, models.PaymentSession{SessionID: "cs_1", UserID: "u1", Status: models.StatusPending, CreatedAt: testNow, UpdatedAt: testNow}))
	locker := memory.NewLocker()
	ok, err := locker.TryLock(ctx, "cs_1")
	require.NoError(t, err)
	require.True(t, ok)

	p := mocks.NewPaymentProvider(t)
	m := NewSessionManager(p, ledger, zap.NewNop(), SessionConfig{Amount: 100, SuccessURL: "http://localhost"}, WithLocker(locker))

	status, err := m.PollStatus(ctx, "cs_1")
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, status)

	require.NoError(t, locker.Unlock(ctx, "cs_1"))
	p.On("RetrieveSessionStatus", mock.Anything, "cs_1").
		Return(models.ProviderSession{SessionID: "cs_1", UserID: "u1", Status: models.ProviderPaid}, nil).Once()

	status, err = m.PollStatus(ctx, "cs_1")
	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, status)

	ok, _ = locker.TryLock(ctx, "cs_1")
	require.True(t, ok, "lock is released after the poll")
}

func TestSessionManager_PublisherFailureDoesNotFailTransition(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.events.err = errors.New("broker down")

	checkout, err := h.manager.CreateSession(ctx, "u1")
	require.NoError(t, err)

	status, err := h.webhook(t, stripe.EventTypeCheckoutSessionCompleted, checkout.SessionID, stripe.CheckoutSessionPaymentStatusPaid)
	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, status)
}
