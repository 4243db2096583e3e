package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/interfaces"
	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

// GatePolicy bounds a single payment attempt.
type GatePolicy struct {
	// Timeout is measured from session creation. An attempt fails only when
	// strictly more than Timeout has elapsed.
	Timeout      time.Duration
	MaxRetries   int
	PollInterval time.Duration
}

func DefaultGatePolicy() GatePolicy {
	return GatePolicy{
		Timeout:      5 * time.Minute,
		MaxRetries:   5,
		PollInterval: 2 * time.Second,
	}
}

// GateController advances one attempt's GateState by a single step. It never
// blocks waiting for payment: each call does at most one provider round-trip
// through the session manager and tells the caller when to come back.
type GateController struct {
	sessions interfaces.SessionManager
	policy   GatePolicy
	now      func() time.Time
	logger   *zap.Logger
}

func NewGateController(sessions interfaces.SessionManager, policy GatePolicy, now func() time.Time, logger *zap.Logger) *GateController {
	if now == nil {
		now = time.Now
	}
	return &GateController{sessions: sessions, policy: policy, now: now, logger: logger}
}

func (g *GateController) Advance(ctx context.Context, state models.GateState) (models.GateState, models.Outcome) {
	switch state.Phase {
	case models.GatePaid:
		return state, models.Outcome{Kind: models.OutcomeAuthorized, SessionID: state.SessionID}
	case models.GateFailed:
		return state, failedOutcome(state)
	case models.GatePendingPoll:
		return g.poll(ctx, state)
	default:
		state.Phase = models.GatePendingCreate
		return g.create(ctx, state)
	}
}

func (g *GateController) create(ctx context.Context, state models.GateState) (models.GateState, models.Outcome) {
	checkout, err := g.sessions.CreateSession(ctx, state.UserID)
	if err != nil {
		g.logger.Error("Payment attempt failed to create session",
			zap.String("user_id", state.UserID),
			zap.Error(err),
		)
		return g.fail(state, models.ReasonProviderError)
	}

	now := g.now()
	state.Phase = models.GatePendingPoll
	state.SessionID = checkout.SessionID
	state.RedirectURL = checkout.RedirectURL
	state.StartedAt = now
	state.NextPollAt = now.Add(g.policy.PollInterval)
	state.RetryCount = 0

	return state, models.Outcome{
		Kind:        models.OutcomeNeedsPayment,
		SessionID:   state.SessionID,
		RedirectURL: state.RedirectURL,
		RetryAfter:  g.policy.PollInterval,
	}
}

func (g *GateController) poll(ctx context.Context, state models.GateState) (models.GateState, models.Outcome) {
	now := g.now()
	if now.Sub(state.StartedAt) > g.policy.Timeout {
		return g.fail(state, models.ReasonTimeout)
	}
	if now.Before(state.NextPollAt) {
		return state, pendingOutcome(state, state.NextPollAt.Sub(now))
	}

	status, err := g.sessions.PollStatus(ctx, state.SessionID)
	switch {
	case errors.Is(err, models.ErrProviderRejected):
		g.logger.Error("Payment provider rejected status poll",
			zap.String("session_id", state.SessionID),
			zap.Int("attempt", state.RetryCount+1),
			zap.Error(err),
		)
		return g.fail(state, models.ReasonProviderError)
	case err == nil && status == models.StatusPaid:
		state.Phase = models.GatePaid
		g.logger.Info("Payment confirmed, action authorized",
			zap.String("session_id", state.SessionID),
			zap.String("user_id", state.UserID),
		)
		return state, models.Outcome{Kind: models.OutcomeAuthorized, SessionID: state.SessionID}
	case err == nil && (status == models.StatusFailed || status == models.StatusExpired):
		g.logger.Warn("Payment session ended without payment",
			zap.String("session_id", state.SessionID),
			zap.String("status", string(status)),
		)
		return g.fail(state, models.ReasonProviderError)
	}

	state.RetryCount++
	g.logger.Info("Payment not confirmed yet",
		zap.String("session_id", state.SessionID),
		zap.String("status", string(status)),
		zap.Int("attempt", state.RetryCount),
		zap.Error(err),
	)
	if state.RetryCount >= g.policy.MaxRetries {
		return g.fail(state, models.ReasonMaxRetriesExceeded)
	}

	state.NextPollAt = now.Add(g.policy.PollInterval)
	return state, pendingOutcome(state, g.policy.PollInterval)
}

func (g *GateController) fail(state models.GateState, reason models.FailureReason) (models.GateState, models.Outcome) {
	state.Phase = models.GateFailed
	state.FailureReason = reason
	g.logger.Warn("Payment attempt failed",
		zap.String("session_id", state.SessionID),
		zap.String("user_id", state.UserID),
		zap.String("reason", string(reason)),
		zap.Int("attempt", state.RetryCount),
	)
	return state, failedOutcome(state)
}

func pendingOutcome(state models.GateState, retryAfter time.Duration) models.Outcome {
	return models.Outcome{
		Kind:        models.OutcomePending,
		SessionID:   state.SessionID,
		RedirectURL: state.RedirectURL,
		RetryAfter:  retryAfter,
	}
}

func failedOutcome(state models.GateState) models.Outcome {
	return models.Outcome{
		Kind:      models.OutcomeFailed,
		SessionID: state.SessionID,
		Reason:    state.FailureReason,
	}
}
