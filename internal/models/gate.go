package models

import "time"

type GatePhase string

const (
	GateUnpaid        GatePhase = "unpaid"
	GatePendingCreate GatePhase = "pending_create"
	GatePendingPoll   GatePhase = "pending_poll"
	GatePaid          GatePhase = "paid"
	GateFailed        GatePhase = "failed"
)

type FailureReason string

const (
	ReasonTimeout            FailureReason = "timeout"
	ReasonMaxRetriesExceeded FailureReason = "max_retries_exceeded"
	ReasonProviderError      FailureReason = "provider_error"
)

// Message is the user-visible text for a failure reason.
func (r FailureReason) Message() string {
	switch r {
	case ReasonTimeout:
		return "Payment timed out after 5 minutes. Please start a new payment."
	case ReasonMaxRetriesExceeded:
		return "Payment could not be verified. Please start a new payment."
	case ReasonProviderError:
		return "The payment provider is unavailable. Please try again later."
	}
	return "Payment failed."
}

// GateState tracks one protected-action attempt. It is owned by the caller and
// loaded/saved around each re-invocation; it is never written to the ledger.
type GateState struct {
	UserID        string        `json:"user_id"`
	Phase         GatePhase     `json:"phase"`
	SessionID     string        `json:"session_id,omitempty"`
	RedirectURL   string        `json:"redirect_url,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	NextPollAt    time.Time     `json:"next_poll_at"`
	RetryCount    int           `json:"retry_count"`
	FailureReason FailureReason `json:"failure_reason,omitempty"`
}

func NewGateState(userID string) GateState {
	return GateState{UserID: userID, Phase: GateUnpaid}
}

func (s GateState) IsTerminal() bool {
	return s.Phase == GatePaid || s.Phase == GateFailed
}

type OutcomeKind string

const (
	OutcomeNeedsPayment OutcomeKind = "needs_payment"
	OutcomePending      OutcomeKind = "pending"
	OutcomeAuthorized   OutcomeKind = "authorized"
	OutcomeFailed       OutcomeKind = "failed"
)

// Outcome is what one gate invocation tells the caller to do next.
type Outcome struct {
	Kind        OutcomeKind   `json:"kind"`
	SessionID   string        `json:"session_id,omitempty"`
	RedirectURL string        `json:"redirect_url,omitempty"`
	RetryAfter  time.Duration `json:"-"`
	Reason      FailureReason `json:"reason,omitempty"`
}
