package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

// Ledger implements interfaces.LedgerStore in memory.
// Used for local runs and tests; follows the same conditional-update rules as
// the Postgres ledger.
type Ledger struct {
	mu       sync.RWMutex
	sessions map[string]models.PaymentSession // key = session id
}

func NewLedger() *Ledger {
	return &Ledger{
		sessions: make(map[string]models.PaymentSession),
	}
}

func (l *Ledger) Insert(ctx context.Context, session models.PaymentSession) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.sessions[session.SessionID]; exists {
		return fmt.Errorf("%w: %s", models.ErrDuplicateSession, session.SessionID)
	}
	session.RawPayload = clonePayload(session.RawPayload)
	l.sessions[session.SessionID] = session
	return nil
}

func (l *Ledger) ConditionalUpdate(ctx context.Context, sessionID string, expected *models.SessionStatus, upd models.SessionUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, exists := l.sessions[sessionID]
	if !exists {
		return fmt.Errorf("%w: %s", models.ErrLedgerConflict, sessionID)
	}
	if s.Status == models.StatusPaid {
		return fmt.Errorf("%w: %s already paid", models.ErrLedgerConflict, sessionID)
	}
	if expected != nil && s.Status != *expected {
		return fmt.Errorf("%w: %s is %s, expected %s", models.ErrLedgerConflict, sessionID, s.Status, *expected)
	}

	s.Status = upd.Status
	if len(upd.RawPayload) > 0 {
		s.RawPayload = clonePayload(upd.RawPayload)
	}
	s.UpdatedAt = upd.UpdatedAt
	if s.UpdatedAt.Before(s.CreatedAt) {
		s.UpdatedAt = s.CreatedAt
	}
	l.sessions[sessionID] = s
	return nil
}

func (l *Ledger) Get(ctx context.Context, sessionID string) (models.PaymentSession, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, exists := l.sessions[sessionID]
	if !exists {
		return models.PaymentSession{}, fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
	}
	s.RawPayload = clonePayload(s.RawPayload)
	return s, nil
}

func clonePayload(raw []byte) []byte {
	if raw == nil {
		return nil
	}
	return append([]byte(nil), raw...)
}
