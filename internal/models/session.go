package models

import "time"

type SessionStatus string

const (
	StatusCreated SessionStatus = "created"
	StatusPending SessionStatus = "pending"
	StatusPaid    SessionStatus = "paid"
	StatusFailed  SessionStatus = "failed"
	StatusExpired SessionStatus = "expired"
	StatusError   SessionStatus = "error"
)

// IsTerminal reports whether no further transitions are accepted from s.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusFailed || s == StatusExpired
}

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusPending, StatusPaid, StatusFailed, StatusExpired, StatusError:
		return true
	}
	return false
}

// ProviderStatus is the payment status as reported by the payment provider.
type ProviderStatus string

const (
	ProviderUnpaid            ProviderStatus = "unpaid"
	ProviderPaid              ProviderStatus = "paid"
	ProviderNoPaymentRequired ProviderStatus = "no_payment_required"
	ProviderFailed            ProviderStatus = "failed"
	ProviderExpired           ProviderStatus = "expired"
	ProviderError             ProviderStatus = "error"
)

// PaymentSession is one ledger row: a single checkout attempt at the provider.
type PaymentSession struct {
	SessionID  string        `json:"session_id"`
	UserID     string        `json:"user_id"`
	Status     SessionStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	RawPayload []byte        `json:"-"`
}

// SessionUpdate carries the fields a conditional ledger update may change.
type SessionUpdate struct {
	Status     SessionStatus
	RawPayload []byte
	UpdatedAt  time.Time
}

// CheckoutSession is what the provider hands back when a checkout is created.
type CheckoutSession struct {
	SessionID   string
	RedirectURL string
	RawPayload  []byte
}

// ProviderSession is the provider's current view of a checkout session.
type ProviderSession struct {
	SessionID  string
	UserID     string
	Status     ProviderStatus
	RawPayload []byte
}

// WebhookEvent is a verified provider notification about a checkout session.
type WebhookEvent struct {
	EventID    string
	Type       string
	SessionID  string
	UserID     string
	Status     ProviderStatus
	RawPayload []byte
}
