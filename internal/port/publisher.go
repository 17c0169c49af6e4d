package port

import (
	"context"

	"github.com/itamhq/inventory/internal/core/domain"
)

// EventPublisher delivers committed stock events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.StockEvent) error
	Close() error
}
