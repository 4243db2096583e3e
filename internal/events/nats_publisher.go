package events

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

const subjectPrefix = "payment.session."

type natsConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher fans transitions out on payment.session.<status>, for
// subscribers that only care about one outcome (e.g. payment.session.paid).
type NATSPublisher struct {
	logger *zap.Logger
	conn   natsConn
}

// NewNATSPublisher accepts a *nats.Conn.
func NewNATSPublisher(logger *zap.Logger, conn natsConn) *NATSPublisher {
	return &NATSPublisher{logger: logger, conn: conn}
}

func Subject(status models.SessionStatus) string {
	return subjectPrefix + string(status)
}

func (p *NATSPublisher) Publish(ctx context.Context, event models.StateChangedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal state changed event: %w", err)
	}

	subject := Subject(event.Status)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Error("failed to publish state changed event to NATS",
			zap.String("subject", subject),
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
