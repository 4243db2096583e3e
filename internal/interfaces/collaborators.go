package interfaces

import (
	"context"
	"time"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=PaymentProvider --dir=. --output=./mocks --outpkg=mocks
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=SessionManager --dir=. --output=./mocks --outpkg=mocks
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=EventPublisher --dir=. --output=./mocks --outpkg=mocks
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=ProtectedActionGate --dir=. --output=./mocks --outpkg=mocks

// PaymentProvider wraps the external checkout API.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, userID string, amount int64, successURL string) (models.CheckoutSession, error)
	RetrieveSessionStatus(ctx context.Context, sessionID string) (models.ProviderSession, error)
	VerifyWebhook(ctx context.Context, payload []byte, signature string) (models.WebhookEvent, error)
}

// SessionManager is the durable session state machine used by the gate and handlers.
type SessionManager interface {
	CreateSession(ctx context.Context, userID string) (models.CheckoutSession, error)
	PollStatus(ctx context.Context, sessionID string) (models.SessionStatus, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (models.SessionStatus, error)
	IsPaid(ctx context.Context, sessionID string) (bool, error)
}

// EventPublisher announces ledger status transitions to other services.
type EventPublisher interface {
	Publish(ctx context.Context, event models.StateChangedEvent) error
}

// SessionLocker serialises provider round-trips for a single session.
type SessionLocker interface {
	// TryLock returns false without error when another caller holds the lock.
	TryLock(ctx context.Context, sessionID string) (bool, error)
	Unlock(ctx context.Context, sessionID string) error
}

// GateStateStore keeps caller-owned gate state between re-invocations.
type GateStateStore interface {
	// Load returns models.ErrGateStateNotFound when no attempt is in progress.
	Load(ctx context.Context, key string) (models.GateState, error)
	Save(ctx context.Context, key string, state models.GateState, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ProtectedActionGate decides whether a user may run the paid action now.
type ProtectedActionGate interface {
	RequestProtectedAction(ctx context.Context, attemptKey, userID string) (models.Outcome, error)
}
