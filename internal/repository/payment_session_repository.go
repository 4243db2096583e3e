package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

const uniqueViolation = "23505"

// PaymentSessionRepository is the Postgres ledger. Every update is a
// compare-and-swap on (session_id, status) and never touches a paid row.
type PaymentSessionRepository struct {
	db *sql.DB
}

func NewPaymentSessionRepository(db *sql.DB) *PaymentSessionRepository {
	return &PaymentSessionRepository{db: db}
}

func (r *PaymentSessionRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS payment_sessions (
			session_id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			raw_payload JSONB,
			CONSTRAINT payment_sessions_updated_after_created CHECK (updated_at >= created_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_sessions_user_id ON payment_sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_sessions_status ON payment_sessions(status)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *PaymentSessionRepository) Insert(ctx context.Context, session models.PaymentSession) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_sessions (session_id, user_id, status, created_at, updated_at, raw_payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO NOTHING
	`, session.SessionID, session.UserID, session.Status, session.CreatedAt, session.UpdatedAt, jsonPayload(session.RawPayload))
	if err != nil {
		return classify(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", models.ErrDuplicateSession, session.SessionID)
	}
	return nil
}

func (r *PaymentSessionRepository) ConditionalUpdate(ctx context.Context, sessionID string, expected *models.SessionStatus, upd models.SessionUpdate) error {
	var (
		result sql.Result
		err    error
	)
	if expected != nil {
		result, err = r.db.ExecContext(ctx, `
			UPDATE payment_sessions
			SET status = $1, raw_payload = COALESCE($2, raw_payload), updated_at = GREATEST(created_at, $3)
			WHERE session_id = $4 AND status = $5 AND status <> $6
		`, upd.Status, jsonPayload(upd.RawPayload), upd.UpdatedAt, sessionID, *expected, models.StatusPaid)
	} else {
		result, err = r.db.ExecContext(ctx, `
			UPDATE payment_sessions
			SET status = $1, raw_payload = COALESCE($2, raw_payload), updated_at = GREATEST(created_at, $3)
			WHERE session_id = $4 AND status <> $5
		`, upd.Status, jsonPayload(upd.RawPayload), upd.UpdatedAt, sessionID, models.StatusPaid)
	}
	if err != nil {
		return classify(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", models.ErrLedgerConflict, sessionID)
	}
	return nil
}

func (r *PaymentSessionRepository) Get(ctx context.Context, sessionID string) (models.PaymentSession, error) {
	var (
		s   models.PaymentSession
		raw []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, status, created_at, updated_at, raw_payload
		FROM payment_sessions WHERE session_id = $1
	`, sessionID).Scan(&s.SessionID, &s.UserID, &s.Status, &s.CreatedAt, &s.UpdatedAt, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PaymentSession{}, fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return models.PaymentSession{}, classify(err)
	}
	s.RawPayload = raw
	return s, nil
}

// jsonPayload keeps NULL for empty payloads so COALESCE preserves the stored one.
func jsonPayload(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// classify maps driver failures onto ledger errors. Errors reported by the
// server itself pass through; anything else means we could not reach it.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", models.ErrDuplicateSession, pqErr.Message)
		}
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrLedgerUnavailable, err)
}
