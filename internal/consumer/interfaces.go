package consumer

import (
	"context"

	"github.com/BarkinBalci/action-event-service/internal/domain"
)

// MessageParser defines the interface for parsing raw message bytes into events
type MessageParser interface {
	Parse(body []byte) (*domain.Event, error)
}

// EventCreator persists batches of tracked events. The first return value
// holds the per-event rejection, nil for persisted events.
type EventCreator interface {
	CreateBatch(ctx context.Context, events []*domain.Event) ([]error, error)
}
