package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockEvent is published after a stock mutation commits. Publication is
// best-effort and happens outside the database transaction.
type StockEvent struct {
	ItemID         int64           `json:"item_id"`
	Type           TransactionType `json:"transaction_type"`
	QuantityChange int             `json:"quantity_change"`
	NewQuantity    int             `json:"new_quantity"`
	PricePerUnit   decimal.Decimal `json:"price_per_unit"`
	UserID         *string         `json:"user_id,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
