package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=LedgerStore --dir=. --output=./mocks --outpkg=mocks

// LedgerStore defines the contract for durable payment session rows.
//
// Implementations must never overwrite a row whose status is paid, whatever the
// expected status passed to ConditionalUpdate.
type LedgerStore interface {
	// Insert stores a new row. Returns models.ErrDuplicateSession if the id exists.
	Insert(ctx context.Context, session models.PaymentSession) error
	// ConditionalUpdate applies upd only when the row's current status equals
	// *expected (or is any non-paid status when expected is nil). A lost race
	// yields models.ErrLedgerConflict.
	ConditionalUpdate(ctx context.Context, sessionID string, expected *models.SessionStatus, upd models.SessionUpdate) error
	// Get returns models.ErrSessionNotFound if the id is unknown.
	Get(ctx context.Context, sessionID string) (models.PaymentSession, error)
}
