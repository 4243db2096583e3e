package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/interfaces"
	"github.com/akylbek/payment-system/payment-gate/internal/models"
	"github.com/akylbek/payment-system/payment-gate/internal/retry"
)

// RetryingLedger retries ledger calls that failed to reach the store.
// Conflicts, duplicates and missing rows are answers, not failures, and return
// immediately.
type RetryingLedger struct {
	next   interfaces.LedgerStore
	policy retry.Policy
	logger *zap.Logger
}

func NewRetryingLedger(next interfaces.LedgerStore, policy retry.Policy, logger *zap.Logger) *RetryingLedger {
	policy.Retryable = func(err error) bool {
		return errors.Is(err, models.ErrLedgerUnavailable)
	}
	return &RetryingLedger{next: next, policy: policy, logger: logger}
}

func (r *RetryingLedger) Insert(ctx context.Context, session models.PaymentSession) error {
	return r.do(ctx, "insert", session.SessionID, func(ctx context.Context) error {
		return r.next.Insert(ctx, session)
	})
}

func (r *RetryingLedger) ConditionalUpdate(ctx context.Context, sessionID string, expected *models.SessionStatus, upd models.SessionUpdate) error {
	return r.do(ctx, "conditional_update", sessionID, func(ctx context.Context) error {
		return r.next.ConditionalUpdate(ctx, sessionID, expected, upd)
	})
}

func (r *RetryingLedger) Get(ctx context.Context, sessionID string) (models.PaymentSession, error) {
	var out models.PaymentSession
	err := r.do(ctx, "get", sessionID, func(ctx context.Context) error {
		var err error
		out, err = r.next.Get(ctx, sessionID)
		return err
	})
	return out, err
}

func (r *RetryingLedger) do(ctx context.Context, operation, sessionID string, op func(context.Context) error) error {
	policy := r.policy
	policy.OnRetry = func(err error, attempt int, wait time.Duration) {
		r.logger.Warn("Ledger call failed, retrying",
			zap.String("operation", operation),
			zap.String("session_id", sessionID),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	return policy.Do(ctx, op)
}
