package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InventoryItem struct {
	ID            int64           `json:"id"`
	Barcode       *string         `json:"barcode"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	Location      *string         `json:"location"`
	Category      *string         `json:"category"`
	Description   *string         `json:"description"`
	ImageURL      *string         `json:"image_url"`
	MinStockLevel int             `json:"min_stock_level"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RunningLow reports whether the item is at or below its reorder threshold.
func (i InventoryItem) RunningLow() bool {
	return i.Quantity <= i.MinStockLevel
}

// ReceiveInput carries one incoming stock batch. When an item with the same
// barcode (or name) already exists the batch is merged into it, otherwise a
// new item is created.
type ReceiveInput struct {
	Barcode       *string
	Name          string
	Quantity      int
	Location      *string
	Category      *string
	Description   *string
	ImageURL      *string
	MinStockLevel int
	PricePerUnit  decimal.Decimal
}

// ItemUpdate covers the mutable metadata of an item. Quantity is excluded:
// stock only moves through ledger-backed operations.
type ItemUpdate struct {
	Barcode       *string
	Name          string
	Location      *string
	Category      *string
	Description   *string
	ImageURL      *string
	MinStockLevel int
	PricePerUnit  decimal.Decimal
}

type ListQuery struct {
	Search string
	Limit  int
	Offset int
}
