package events

import (
	"context"
	"errors"

	"github.com/akylbek/payment-system/payment-gate/internal/interfaces"
	"github.com/akylbek/payment-system/payment-gate/internal/models"
)

// Fanout publishes each event to every publisher and joins their errors.
type Fanout []interfaces.EventPublisher

func (f Fanout) Publish(ctx context.Context, event models.StateChangedEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
