package models

import "time"

// StateChangedEvent is published after every ledger status transition.
type StateChangedEvent struct {
	EventID        string        `json:"event_id"`
	SessionID      string        `json:"session_id"`
	UserID         string        `json:"user_id"`
	Status         SessionStatus `json:"status"`
	PreviousStatus SessionStatus `json:"previous_status,omitempty"`
	Source         string        `json:"source"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

const (
	SourceCreate  = "create"
	SourcePoll    = "poll"
	SourceWebhook = "webhook"
)
