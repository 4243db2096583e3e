package memory

import (
	"context"
	"sync"
)

// Locker is a process-local interfaces.SessionLocker.
type Locker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]struct{})}
}

func (l *Locker) TryLock(ctx context.Context, sessionID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[sessionID]; busy {
		return false, nil
	}
	l.held[sessionID] = struct{}{}
	return true, nil
}

func (l *Locker) Unlock(ctx context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, sessionID)
	return nil
}
