package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionReceive  TransactionType = "receive"
	TransactionAdjust   TransactionType = "adjust"
	TransactionDispense TransactionType = "dispense"
	TransactionReturn   TransactionType = "return"
)

// LedgerEntry is one row of the append-only transaction ledger. Entries are
// written exactly once per stock mutation and never updated or deleted.
type LedgerEntry struct {
	ID             int64           `json:"id"`
	ItemID         int64           `json:"item_id"`
	UserID         *string         `json:"user_id"`
	Type           TransactionType `json:"transaction_type"`
	QuantityChange int             `json:"quantity_change"`
	PricePerUnit   decimal.Decimal `json:"price_per_unit"`
	Notes          *string         `json:"notes"`
	Date           time.Time       `json:"transaction_date"`
}

// ValueChange is the monetary value of the entry at the price recorded when
// it was written, not the item's current price.
func (e LedgerEntry) ValueChange() decimal.Decimal {
	return e.PricePerUnit.Mul(decimal.NewFromInt(int64(e.QuantityChange)))
}

// StockMutation is the committed outcome of a single stock operation.
type StockMutation struct {
	ItemID         int64
	Type           TransactionType
	QuantityChange int
	NewQuantity    int
	PricePerUnit   decimal.Decimal
}

type ItemHistory struct {
	ItemName     string       `json:"itemName"`
	Transactions []HistoryRow `json:"transactions"`
}

// HistoryRow is a ledger entry decorated for the history endpoint.
type HistoryRow struct {
	LedgerEntry
	Value    decimal.Decimal `json:"value_change"`
	UserName string          `json:"user_name"`
}

type ReportFilter struct {
	Start  *time.Time
	End    *time.Time
	Type   string
	UserID string
}

type ReportRow struct {
	ID             int64           `json:"id"`
	ItemName       string          `json:"item_name"`
	UserName       string          `json:"user_name"`
	Type           TransactionType `json:"transaction_type"`
	QuantityChange int             `json:"quantity_change"`
	Notes          *string         `json:"notes"`
	Date           time.Time       `json:"transaction_date"`
}
