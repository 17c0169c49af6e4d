package port

import (
	"context"

	"github.com/itamhq/inventory/internal/core/domain"
)

// InventoryStore is the persistence port. Every stock mutation runs as one
// database transaction: lock the item row, validate, write the new quantity,
// append the ledger entry, commit. The store is the only serialization
// mechanism for concurrent operations on the same item.
type InventoryStore interface {
	// AdjustStock reconciles the stored quantity to an authoritative count
	// and logs the computed delta.
	AdjustStock(ctx context.Context, itemID int64, newQuantity int, userID *string, notes string) (*domain.StockMutation, error)

	// DispenseStock deducts quantity for consumption, failing on
	// insufficient stock.
	DispenseStock(ctx context.Context, itemID int64, quantity int, userID, notes *string) (*domain.StockMutation, error)

	// ReturnStock adds previously dispensed quantity back to stock.
	ReturnStock(ctx context.Context, itemID int64, quantity int, userID, notes *string) (*domain.StockMutation, error)

	// ReceiveStock merges an incoming batch into an existing item at
	// weighted-average cost, or creates the item.
	ReceiveStock(ctx context.Context, in domain.ReceiveInput) (*domain.InventoryItem, *domain.StockMutation, error)

	GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error)
	GetItemByBarcode(ctx context.Context, barcode string) (*domain.InventoryItem, error)
	ListItems(ctx context.Context, q domain.ListQuery) ([]domain.InventoryItem, int, error)
	UpdateItem(ctx context.Context, id int64, in domain.ItemUpdate) (*domain.InventoryItem, error)
	DeactivateItem(ctx context.Context, id int64) error

	ItemHistory(ctx context.Context, itemID int64) (*domain.ItemHistory, error)
	Dashboard(ctx context.Context) (*domain.DashboardData, error)
	ListTransactions(ctx context.Context, f domain.ReportFilter) ([]domain.ReportRow, error)
}
