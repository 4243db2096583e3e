package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

// GateStateStore keeps gate state in Redis as JSON, keyed by attempt key.
type GateStateStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewGateStateStore(client *redis.Client, logger *zap.Logger) *GateStateStore {
	return &GateStateStore{client: client, logger: logger}
}

func gateStateKey(key string) string {
	return fmt.Sprintf("payment_gate:%s", key)
}

func (s *GateStateStore) Load(ctx context.Context, key string) (models.GateState, error) {
	raw, err := s.client.Get(ctx, gateStateKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.GateState{}, models.ErrGateStateNotFound
	}
	if err != nil {
		s.logger.Error("failed to load gate state from redis",
			zap.String("attempt_key", key),
			zap.Error(err),
		)
		return models.GateState{}, fmt.Errorf("failed to load gate state: %w", err)
	}

	var state models.GateState
	if err := json.Unmarshal(raw, &state); err != nil {
		return models.GateState{}, fmt.Errorf("failed to decode gate state: %w", err)
	}
	return state, nil
}

func (s *GateStateStore) Save(ctx context.Context, key string, state models.GateState, ttl time.Duration) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode gate state: %w", err)
	}
	if err := s.client.Set(ctx, gateStateKey(key), raw, ttl).Err(); err != nil {
		s.logger.Error("failed to save gate state to redis",
			zap.String("attempt_key", key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save gate state: %w", err)
	}
	return nil
}

func (s *GateStateStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, gateStateKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete gate state: %w", err)
	}
	return nil
}
