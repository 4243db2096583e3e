package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/interfaces"
	"github.com/akylbek/payment-system/payment-gate/internal/metrics"
	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

// GateService loads the caller's GateState, advances it one step and stores
// it again. Terminal states are discarded so a paid attempt authorizes the
// action once and a failed one starts over with a new session. Only the
// holder of the attempt lock may advance a state.
type GateService struct {
	controller *GateController
	store      interfaces.GateStateStore
	locker     interfaces.SessionLocker
	stateTTL   time.Duration
	logger     *zap.Logger
}

func NewGateService(controller *GateController, store interfaces.GateStateStore, locker interfaces.SessionLocker, stateTTL time.Duration, logger *zap.Logger) *GateService {
	return &GateService{controller: controller, store: store, locker: locker, stateTTL: stateTTL, logger: logger}
}

func gateKey(userID, attemptKey string) string {
	if attemptKey == "" {
		return userID
	}
	return userID + ":" + attemptKey
}

// RequestProtectedAction is called repeatedly by the host until the outcome is
// authorized or failed.
func (s *GateService) RequestProtectedAction(ctx context.Context, attemptKey, userID string) (models.Outcome, error) {
	if userID == "" {
		return models.Outcome{}, models.ErrInvalidUserID
	}
	key := gateKey(userID, attemptKey)

	locked, err := s.locker.TryLock(ctx, key)
	if err != nil {
		s.logger.Error("Failed to lock payment attempt",
			zap.String("attempt_key", key),
			zap.Error(err),
		)
		return models.Outcome{}, err
	}
	if !locked {
		return s.inFlight(ctx, key)
	}
	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn("Failed to release payment attempt lock",
				zap.String("attempt_key", key),
				zap.Error(err),
			)
		}
	}()

	state, err := s.store.Load(ctx, key)
	if errors.Is(err, models.ErrGateStateNotFound) {
		state = models.NewGateState(userID)
	} else if err != nil {
		return models.Outcome{}, err
	}

	next, outcome := s.controller.Advance(ctx, state)

	if next.IsTerminal() {
		// Not authorizing when the discard fails keeps the action at most once;
		// the stored state answers the same on the next call.
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Error("Failed to discard finished gate state",
				zap.String("attempt_key", key),
				zap.Error(err),
			)
			return models.Outcome{}, err
		}
	} else if err := s.store.Save(ctx, key, next, s.stateTTL); err != nil {
		return models.Outcome{}, err
	}

	metrics.ObserveGate(outcome)
	return outcome, nil
}

// inFlight answers a call that overlaps another one for the same attempt.
// It never advances the state, so it can neither open a second checkout nor
// authorize.
func (s *GateService) inFlight(ctx context.Context, key string) (models.Outcome, error) {
	outcome := models.Outcome{Kind: models.OutcomePending, RetryAfter: s.controller.policy.PollInterval}

	state, err := s.store.Load(ctx, key)
	if err != nil && !errors.Is(err, models.ErrGateStateNotFound) {
		return models.Outcome{}, err
	}
	if err == nil {
		outcome.SessionID = state.SessionID
		outcome.RedirectURL = state.RedirectURL
	}

	metrics.ObserveGate(outcome)
	return outcome, nil
}
