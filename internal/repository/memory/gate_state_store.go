package memory

import (
	"context"
	"sync"
	"time"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

type gateEntry struct {
	state     models.GateState
	expiresAt time.Time
}

// GateStateStore keeps gate state per attempt key with a TTL.
type GateStateStore struct {
	mu      sync.Mutex
	entries map[string]gateEntry
	now     func() time.Time
}

func NewGateStateStore() *GateStateStore {
	return &GateStateStore{
		entries: make(map[string]gateEntry),
		now:     time.Now,
	}
}

func (s *GateStateStore) Load(ctx context.Context, key string) (models.GateState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return models.GateState{}, models.ErrGateStateNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return models.GateState{}, models.ErrGateStateNotFound
	}
	return e.state, nil
}

// Save stores state under key. A ttl of zero keeps it until deleted.
func (s *GateStateStore) Save(ctx context.Context, key string, state models.GateState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := gateEntry{state: state}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *GateStateStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}
