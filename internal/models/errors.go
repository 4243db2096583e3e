package models

import "errors"

var (
	// ErrProviderUnavailable is a transient provider failure (network, timeout, 5xx).
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	// ErrProviderRejected means the provider refused the request parameters. Never retried.
	ErrProviderRejected = errors.New("payment provider rejected request")
	// ErrSignatureInvalid is returned for webhooks that fail signature verification.
	ErrSignatureInvalid = errors.New("webhook signature invalid")
	ErrSessionNotFound  = errors.New("payment session not found")
	ErrDuplicateSession = errors.New("payment session already exists")
	// ErrLedgerConflict means a conditional update lost a race. Callers treat it as a no-op.
	ErrLedgerConflict    = errors.New("ledger write conflict")
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	ErrMissingSessionID  = errors.New("webhook event has no session id")
	ErrUnsupportedEvent  = errors.New("unsupported webhook event")
	ErrInvalidUserID     = errors.New("user id is required")
	ErrGateStateNotFound = errors.New("gate state not found")
)
