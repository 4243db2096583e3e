// Package events announces payment session status transitions to the rest of
// the payment system over Kafka and NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

const DefaultTopic = "payment.session.state_changed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes StateChangedEvent messages keyed by session id, so all
// transitions of one session land on the same partition in order.
type KafkaPublisher struct {
	logger *zap.Logger
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(logger *zap.Logger, brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	return &KafkaPublisher{logger: logger, writer: writer, topic: topic}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) Publish(ctx context.Context, event models.StateChangedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal state changed event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SessionID),
		Value: value,
	})
	if err != nil {
		p.logger.Error("failed to publish state changed event",
			zap.String("topic", p.topic),
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
		return err
	}

	p.logger.Debug("state changed event published",
		zap.String("topic", p.topic),
		zap.String("session_id", event.SessionID),
		zap.String("status", string(event.Status)),
	)
	return nil
}
