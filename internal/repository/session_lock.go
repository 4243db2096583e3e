package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionLockPrefix = "payment_session_lock:"
	gateLockPrefix    = "payment_gate_lock:"
)

// releaseScript deletes the lock only while it still carries our token, so a
// holder whose lock expired cannot release the next holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionLock is a Redis SetNX lock shared across replicas. The lock expires
// on its own so a crashed holder cannot wedge a key.
type SessionLock struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

// NewSessionLock serialises provider polls of one payment session.
func NewSessionLock(client *redis.Client, ttl time.Duration) *SessionLock {
	return newLock(client, sessionLockPrefix, ttl)
}

// NewGateLock serialises re-invocations of one payment attempt.
func NewGateLock(client *redis.Client, ttl time.Duration) *SessionLock {
	return newLock(client, gateLockPrefix, ttl)
}

func newLock(client *redis.Client, prefix string, ttl time.Duration) *SessionLock {
	return &SessionLock{client: client, prefix: prefix, ttl: ttl, tokens: make(map[string]string)}
}

func (l *SessionLock) key(id string) string {
	return l.prefix + id
}

func (l *SessionLock) TryLock(ctx context.Context, id string) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(id), token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.tokens[id] = token
		l.mu.Unlock()
	}
	return ok, nil
}

// Unlock is a no-op when this instance does not hold the lock.
func (l *SessionLock) Unlock(ctx context.Context, id string) error {
	l.mu.Lock()
	token, ok := l.tokens[id]
	delete(l.tokens, id)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	if err := releaseScript.Run(ctx, l.client, []string{l.key(id)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
