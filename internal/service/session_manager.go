package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/interfaces"
	"github.com/akylbek/payment-system/payment-gate/internal/metrics"
	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

// maxApplyAttempts bounds re-reads after a lost compare-and-swap.
const maxApplyAttempts = 3

// SessionConfig holds the checkout parameters used for every new session.
type SessionConfig struct {
	Amount int64
	// SuccessURL is where the provider sends the user after checkout. The
	// session id is appended as a query parameter.
	SuccessURL string
}

type SessionOption func(*SessionManager)

// WithLocker serialises polls of the same session across callers.
func WithLocker(l interfaces.SessionLocker) SessionOption {
	return func(m *SessionManager) { m.locker = l }
}

func WithPublisher(p interfaces.EventPublisher) SessionOption {
	return func(m *SessionManager) { m.publisher = p }
}

func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

// SessionManager owns the payment session state machine. The ledger is the
// source of truth; every write is a conditional update on the status read
// just before it.
type SessionManager struct {
	provider   interfaces.PaymentProvider
	ledger     interfaces.LedgerStore
	locker     interfaces.SessionLocker
	publisher  interfaces.EventPublisher
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
	amount     int64
	successURL string
}

func NewSessionManager(
	provider interfaces.PaymentProvider,
	ledger interfaces.LedgerStore,
	logger *zap.Logger,
	cfg SessionConfig,
	opts ...SessionOption,
) *SessionManager {
	m := &SessionManager{
		provider:   provider,
		ledger:     ledger,
		logger:     logger,
		tracer:     otel.Tracer("payment-gate/service"),
		now:        time.Now,
		amount:     cfg.Amount,
		successURL: successURLTemplate(cfg.SuccessURL),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func successURLTemplate(base string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "payment_success=true&session_id={CHECKOUT_SESSION_ID}"
}

func (m *SessionManager) CreateSession(ctx context.Context, userID string) (models.CheckoutSession, error) {
	ctx, span := m.tracer.Start(ctx, "SessionManager.CreateSession")
	defer span.End()

	if userID == "" {
		return models.CheckoutSession{}, models.ErrInvalidUserID
	}

	checkout, err := m.provider.CreateCheckoutSession(ctx, userID, m.amount, m.successURL)
	if err != nil {
		recordSpanError(span, err)
		m.logger.Error("Failed to create checkout session",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return models.CheckoutSession{}, err
	}
	span.SetAttributes(attribute.String("payment.session_id", checkout.SessionID))

	now := m.now()
	err = m.ledger.Insert(ctx, models.PaymentSession{
		SessionID:  checkout.SessionID,
		UserID:     userID,
		Status:     models.StatusCreated,
		CreatedAt:  now,
		UpdatedAt:  now,
		RawPayload: checkout.RawPayload,
	})
	if err != nil {
		// The session exists at the provider, so the link is still handed out.
		// Polls and webhooks re-insert the row when they see it missing.
		metrics.LedgerReconciliations.Inc()
		m.logger.Warn("Ledger insert failed after checkout session was created, reconciliation required",
			zap.String("session_id", checkout.SessionID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return checkout, nil
	}

	m.recordTransition(ctx, checkout.SessionID, userID, "", models.StatusCreated, models.SourceCreate)
	return checkout, nil
}

func (m *SessionManager) PollStatus(ctx context.Context, sessionID string) (models.SessionStatus, error) {
	ctx, span := m.tracer.Start(ctx, "SessionManager.PollStatus",
		trace.WithAttributes(attribute.String("payment.session_id", sessionID)))
	defer span.End()

	stored, err := m.ledger.Get(ctx, sessionID)
	found := err == nil
	if err != nil && !errors.Is(err, models.ErrSessionNotFound) {
		recordSpanError(span, err)
		return "", err
	}
	if found && stored.Status.IsTerminal() {
		return stored.Status, nil
	}

	if m.locker != nil {
		locked, err := m.locker.TryLock(ctx, sessionID)
		switch {
		case err != nil:
			m.logger.Warn("Session lock unavailable, polling without it",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		case !locked:
			if found {
				return stored.Status, nil
			}
			return models.StatusCreated, nil
		default:
			defer func() {
				if err := m.locker.Unlock(context.WithoutCancel(ctx), sessionID); err != nil {
					m.logger.Warn("Failed to release session lock",
						zap.String("session_id", sessionID),
						zap.Error(err),
					)
				}
			}()
		}
	}

	observed, err := m.provider.RetrieveSessionStatus(ctx, sessionID)
	if err != nil {
		recordSpanError(span, err)
		if !found {
			return "", err
		}
		m.logger.Error("Failed to retrieve session status",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		status, applyErr := m.apply(ctx, sessionID, stored.UserID, models.ProviderError, nil, models.SourcePoll)
		if applyErr != nil {
			return models.StatusError, errors.Join(err, applyErr)
		}
		if status == models.StatusPaid {
			return status, nil
		}
		return models.StatusError, err
	}

	userID := observed.UserID
	if found {
		userID = stored.UserID
	}
	status, err := m.apply(ctx, sessionID, userID, observed.Status, observed.RawPayload, models.SourcePoll)
	if err != nil {
		recordSpanError(span, err)
		return "", err
	}
	span.SetAttributes(attribute.String("payment.status", string(status)))
	return status, nil
}

func (m *SessionManager) HandleWebhook(ctx context.Context, payload []byte, signature string) (models.SessionStatus, error) {
	ctx, span := m.tracer.Start(ctx, "SessionManager.HandleWebhook")
	defer span.End()

	event, err := m.provider.VerifyWebhook(ctx, payload, signature)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSignatureInvalid):
			metrics.ObserveWebhook("signature_invalid")
			m.logger.Warn("Rejected webhook with invalid signature",
				zap.Int("payload_bytes", len(payload)),
				zap.Error(err),
			)
		case errors.Is(err, models.ErrUnsupportedEvent):
			metrics.ObserveWebhook("ignored")
			m.logger.Debug("Ignoring unsupported webhook event", zap.Error(err))
			return "", err
		case errors.Is(err, models.ErrMissingSessionID):
			metrics.ObserveWebhook("rejected")
			m.logger.Warn("Rejected webhook without session id", zap.Error(err))
		default:
			metrics.ObserveWebhook("error")
			m.logger.Error("Failed to verify webhook", zap.Error(err))
		}
		recordSpanError(span, err)
		return "", err
	}
	span.SetAttributes(
		attribute.String("payment.session_id", event.SessionID),
		attribute.String("payment.event_type", event.Type),
	)

	status, err := m.apply(ctx, event.SessionID, event.UserID, event.Status, event.RawPayload, models.SourceWebhook)
	if err != nil {
		metrics.ObserveWebhook("error")
		recordSpanError(span, err)
		m.logger.Error("Failed to apply webhook event",
			zap.String("session_id", event.SessionID),
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
		return "", err
	}

	metrics.ObserveWebhook("applied")
	m.logger.Info("Webhook applied",
		zap.String("session_id", event.SessionID),
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.Type),
		zap.String("status", string(status)),
	)
	return status, nil
}

// IsPaid reads the ledger only.
func (m *SessionManager) IsPaid(ctx context.Context, sessionID string) (bool, error) {
	s, err := m.ledger.Get(ctx, sessionID)
	if errors.Is(err, models.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.Status == models.StatusPaid, nil
}

// apply runs the transition table against the current ledger row. A lost race
// re-reads the row and tries again, so the result reflects whichever write
// landed first.
func (m *SessionManager) apply(ctx context.Context, sessionID, userID string, observed models.ProviderStatus, payload []byte, source string) (models.SessionStatus, error) {
	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		current, err := m.ledger.Get(ctx, sessionID)
		if errors.Is(err, models.ErrSessionNotFound) {
			status, err := m.reconcile(ctx, sessionID, userID, observed, payload, source)
			if errors.Is(err, models.ErrDuplicateSession) {
				continue
			}
			return status, err
		}
		if err != nil {
			return "", err
		}

		next, write := nextStatus(current.Status, observed)
		if !write {
			return current.Status, nil
		}

		expected := current.Status
		err = m.ledger.ConditionalUpdate(ctx, sessionID, &expected, models.SessionUpdate{
			Status:     next,
			RawPayload: payload,
			UpdatedAt:  m.now(),
		})
		if errors.Is(err, models.ErrLedgerConflict) {
			m.logger.Debug("Ledger update lost a race, re-reading",
				zap.String("session_id", sessionID),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return "", err
		}

		if next != current.Status {
			m.recordTransition(ctx, sessionID, current.UserID, current.Status, next, source)
		}
		return next, nil
	}

	current, err := m.ledger.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return current.Status, nil
}

// reconcile inserts a row for a session the provider knows but the ledger lost.
func (m *SessionManager) reconcile(ctx context.Context, sessionID, userID string, observed models.ProviderStatus, payload []byte, source string) (models.SessionStatus, error) {
	status, _ := nextStatus(models.StatusCreated, observed)
	now := m.now()
	err := m.ledger.Insert(ctx, models.PaymentSession{
		SessionID:  sessionID,
		UserID:     userID,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
		RawPayload: payload,
	})
	if err != nil {
		return "", fmt.Errorf("reconcile session %s: %w", sessionID, err)
	}

	m.logger.Warn("Reconciled session missing from ledger",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
		zap.String("status", string(status)),
		zap.String("source", source),
	)
	m.recordTransition(ctx, sessionID, userID, "", status, source)
	return status, nil
}

func (m *SessionManager) recordTransition(ctx context.Context, sessionID, userID string, from, to models.SessionStatus, source string) {
	metrics.ObserveTransition(from, to, source)
	m.logger.Info("Payment session transition",
		zap.String("session_id", sessionID),
		zap.String("from_status", string(from)),
		zap.String("to_status", string(to)),
		zap.String("source", source),
	)

	if m.publisher == nil {
		return
	}
	event := models.StateChangedEvent{
		EventID:        uuid.NewString(),
		SessionID:      sessionID,
		UserID:         userID,
		Status:         to,
		PreviousStatus: from,
		Source:         source,
		OccurredAt:     m.now().UTC(),
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Warn("Failed to publish session state change",
			zap.String("session_id", sessionID),
			zap.String("status", string(to)),
			zap.Error(err),
		)
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
