package events

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/itamhq/inventory/internal/core/domain"
)

// LogPublisher is the fallback when no broker is configured: events are
// logged and discarded.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, ev domain.StockEvent) error {
	log.Info().
		Int64("item_id", ev.ItemID).
		Str("type", string(ev.Type)).
		Int("quantity_change", ev.QuantityChange).
		Int("new_quantity", ev.NewQuantity).
		Msg("stock event")
	return nil
}

func (LogPublisher) Close() error { return nil }
