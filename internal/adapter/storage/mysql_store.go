package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/itamhq/inventory/internal/core/domain"
)

const mysqlDupEntry = 1062

type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS inventory_items (
		id              BIGINT AUTO_INCREMENT PRIMARY KEY,
		barcode         VARCHAR(64)  NULL,
		name            VARCHAR(255) NOT NULL,
		quantity        INT          NOT NULL DEFAULT 0,
		location        VARCHAR(255) NULL,
		category        VARCHAR(128) NULL,
		description     TEXT         NULL,
		image_url       VARCHAR(512) NULL,
		min_stock_level INT          NOT NULL DEFAULT 5,
		price_per_unit  DECIMAL(12,2) NOT NULL DEFAULT 0,
		is_active       BOOLEAN      NOT NULL DEFAULT TRUE,
		created_at      TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_items_barcode (barcode),
		KEY idx_items_name (name),
		KEY idx_items_category (category)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_transactions (
		id               BIGINT AUTO_INCREMENT PRIMARY KEY,
		item_id          BIGINT NOT NULL,
		user_id          VARCHAR(64) NULL,
		transaction_type ENUM('receive','adjust','dispense','return') NOT NULL,
		quantity_change  INT NOT NULL,
		price_per_unit   DECIMAL(12,2) NOT NULL DEFAULT 0,
		notes            TEXT NULL,
		transaction_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_tx_item_date (item_id, transaction_date),
		KEY idx_tx_type (transaction_type),
		CONSTRAINT fk_tx_item FOREIGN KEY (item_id) REFERENCES inventory_items(id)
	)`,
}

func (s *MySQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// stockRule computes the post-operation quantity from the locked current
// quantity, or rejects the operation.
type stockRule func(current int) (int, error)

// mutateStock is the shared lock-read-mutate-log skeleton: lock the item row,
// apply the rule, write the new quantity, append the ledger entry, commit.
// Any failure rolls the whole operation back.
func (s *MySQLStore) mutateStock(ctx context.Context, itemID int64, typ domain.TransactionType, userID, notes *string, rule stockRule) (*domain.StockMutation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		current int
		price   decimal.Decimal
	)
	err = tx.QueryRowContext(ctx,
		`SELECT quantity, price_per_unit FROM inventory_items WHERE id = ? FOR UPDATE`,
		itemID,
	).Scan(&current, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock item: %w", err)
	}

	newQty, err := rule(current)
	if err != nil {
		return nil, err
	}
	delta := newQty - current

	if _, err := tx.ExecContext(ctx,
		`UPDATE inventory_items SET quantity = ?, updated_at = NOW() WHERE id = ?`,
		newQty, itemID,
	); err != nil {
		return nil, fmt.Errorf("update quantity: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO inventory_transactions (item_id, user_id, transaction_type, quantity_change, price_per_unit, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		itemID, userID, typ, delta, price, notes,
	); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &domain.StockMutation{
		ItemID:         itemID,
		Type:           typ,
		QuantityChange: delta,
		NewQuantity:    newQty,
		PricePerUnit:   price,
	}, nil
}

func (s *MySQLStore) AdjustStock(ctx context.Context, itemID int64, newQuantity int, userID *string, notes string) (*domain.StockMutation, error) {
	return s.mutateStock(ctx, itemID, domain.TransactionAdjust, userID, &notes, func(current int) (int, error) {
		if newQuantity == current {
			return 0, domain.ErrNoAdjustmentNeeded
		}
		return newQuantity, nil
	})
}

func (s *MySQLStore) DispenseStock(ctx context.Context, itemID int64, quantity int, userID, notes *string) (*domain.StockMutation, error) {
	return s.mutateStock(ctx, itemID, domain.TransactionDispense, userID, notes, func(current int) (int, error) {
		if current < quantity {
			return 0, domain.ErrInsufficientStock
		}
		return current - quantity, nil
	})
}

func (s *MySQLStore) ReturnStock(ctx context.Context, itemID int64, quantity int, userID, notes *string) (*domain.StockMutation, error) {
	return s.mutateStock(ctx, itemID, domain.TransactionReturn, userID, notes, func(current int) (int, error) {
		return current + quantity, nil
	})
}

func (s *MySQLStore) ReceiveStock(ctx context.Context, in domain.ReceiveInput) (*domain.InventoryItem, *domain.StockMutation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Lock an existing item by barcode, falling back to name.
	var existing domain.InventoryItem
	var lookupErr error
	if in.Barcode != nil && *in.Barcode != "" {
		lookupErr = scanItem(tx.QueryRowContext(ctx,
			`SELECT `+itemColumns+` FROM inventory_items WHERE barcode = ? FOR UPDATE`, *in.Barcode), &existing)
	} else {
		lookupErr = scanItem(tx.QueryRowContext(ctx,
			`SELECT `+itemColumns+` FROM inventory_items WHERE name = ? FOR UPDATE`, in.Name), &existing)
	}

	var (
		itemID int64
		notes  string
	)
	switch {
	case lookupErr == nil:
		itemID = existing.ID
		notes = "Stock received"

		// Merge the batch at weighted-average cost; the ledger keeps the
		// batch's actual purchase price.
		totalQty := existing.Quantity + in.Quantity
		avgPrice := decimal.Zero
		if totalQty > 0 {
			existingValue := existing.PricePerUnit.Mul(decimal.NewFromInt(int64(existing.Quantity)))
			batchValue := in.PricePerUnit.Mul(decimal.NewFromInt(int64(in.Quantity)))
			avgPrice = existingValue.Add(batchValue).Div(decimal.NewFromInt(int64(totalQty))).Round(2)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE inventory_items
			 SET quantity = ?, price_per_unit = ?, image_url = COALESCE(?, image_url), updated_at = NOW()
			 WHERE id = ?`,
			totalQty, avgPrice, in.ImageURL, itemID,
		); err != nil {
			return nil, nil, fmt.Errorf("merge stock: %w", err)
		}

	case errors.Is(lookupErr, sql.ErrNoRows):
		notes = "Initial stock"
		res, err := tx.ExecContext(ctx,
			`INSERT INTO inventory_items (barcode, name, quantity, location, category, description, image_url, min_stock_level, price_per_unit)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Barcode, in.Name, in.Quantity, in.Location, in.Category, in.Description, in.ImageURL, in.MinStockLevel, in.PricePerUnit,
		)
		if err != nil {
			if isDupEntry(err) {
				return nil, nil, domain.ErrDuplicateBarcode
			}
			return nil, nil, fmt.Errorf("insert item: %w", err)
		}
		itemID, err = res.LastInsertId()
		if err != nil {
			return nil, nil, fmt.Errorf("last insert id: %w", err)
		}

	default:
		return nil, nil, fmt.Errorf("lookup item: %w", lookupErr)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO inventory_transactions (item_id, transaction_type, quantity_change, price_per_unit, notes)
		 VALUES (?, ?, ?, ?, ?)`,
		itemID, domain.TransactionReceive, in.Quantity, in.PricePerUnit, notes,
	); err != nil {
		return nil, nil, fmt.Errorf("insert transaction: %w", err)
	}

	var item domain.InventoryItem
	if err := scanItem(tx.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`, itemID), &item); err != nil {
		return nil, nil, fmt.Errorf("reload item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}

	return &item, &domain.StockMutation{
		ItemID:         itemID,
		Type:           domain.TransactionReceive,
		QuantityChange: in.Quantity,
		NewQuantity:    item.Quantity,
		PricePerUnit:   in.PricePerUnit,
	}, nil
}

const itemColumns = `id, barcode, name, quantity, location, category, description, image_url, min_stock_level, price_per_unit, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner, item *domain.InventoryItem) error {
	return row.Scan(
		&item.ID, &item.Barcode, &item.Name, &item.Quantity,
		&item.Location, &item.Category, &item.Description, &item.ImageURL,
		&item.MinStockLevel, &item.PricePerUnit, &item.IsActive,
		&item.CreatedAt, &item.UpdatedAt,
	)
}

func isDupEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDupEntry
}

func (s *MySQLStore) GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`, id), &item)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &item, nil
}

func (s *MySQLStore) GetItemByBarcode(ctx context.Context, barcode string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE barcode = ? AND is_active = TRUE`, barcode), &item)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query item by barcode: %w", err)
	}
	return &item, nil
}

func (s *MySQLStore) ListItems(ctx context.Context, q domain.ListQuery) ([]domain.InventoryItem, int, error) {
	where := []string{"is_active = TRUE"}
	args := []any{}

	if q.Search != "" {
		where = append(where, "(name LIKE ? OR barcode LIKE ? OR category LIKE ?)")
		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	whereSQL := "WHERE " + strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory_items `+whereSQL, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, q.Offset)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items `+whereSQL+` ORDER BY name ASC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []domain.InventoryItem{}
	for rows.Next() {
		var item domain.InventoryItem
		if err := scanItem(rows, &item); err != nil {
			return nil, 0, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (s *MySQLStore) UpdateItem(ctx context.Context, id int64, in domain.ItemUpdate) (*domain.InventoryItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM inventory_items WHERE id = ? FOR UPDATE`, id).Scan(&existingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock item: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE inventory_items
		 SET name = ?, barcode = ?, location = ?, category = ?, description = ?, image_url = ?, min_stock_level = ?, price_per_unit = ?, updated_at = NOW()
		 WHERE id = ?`,
		in.Name, in.Barcode, in.Location, in.Category, in.Description, in.ImageURL, in.MinStockLevel, in.PricePerUnit, id,
	); err != nil {
		if isDupEntry(err) {
			return nil, domain.ErrDuplicateBarcode
		}
		return nil, fmt.Errorf("update item: %w", err)
	}

	var item domain.InventoryItem
	if err := scanItem(tx.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`, id), &item); err != nil {
		return nil, fmt.Errorf("reload item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &item, nil
}

func (s *MySQLStore) DeactivateItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE inventory_items SET is_active = FALSE, updated_at = NOW() WHERE id = ? AND is_active = TRUE`, id)
	if err != nil {
		return fmt.Errorf("deactivate item: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (s *MySQLStore) ItemHistory(ctx context.Context, itemID int64) (*domain.ItemHistory, error) {
	history := &domain.ItemHistory{Transactions: []domain.HistoryRow{}}

	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM inventory_items WHERE id = ?`, itemID).Scan(&history.ItemName)
	if errors.Is(err, sql.ErrNoRows) {
		history.ItemName = fmt.Sprintf("Item ID %d", itemID)
	} else if err != nil {
		return nil, fmt.Errorf("query item name: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_id, user_id, transaction_type, quantity_change, price_per_unit, notes, transaction_date
		 FROM inventory_transactions
		 WHERE item_id = ?
		 ORDER BY transaction_date DESC, id DESC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(&entry.ID, &entry.ItemID, &entry.UserID, &entry.Type,
			&entry.QuantityChange, &entry.PricePerUnit, &entry.Notes, &entry.Date); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		row := domain.HistoryRow{
			LedgerEntry: entry,
			Value:       entry.ValueChange(),
			UserName:    "System",
		}
		if entry.UserID != nil {
			row.UserName = *entry.UserID
		}
		history.Transactions = append(history.Transactions, row)
	}
	return history, rows.Err()
}

func (s *MySQLStore) Dashboard(ctx context.Context) (*domain.DashboardData, error) {
	data := &domain.DashboardData{
		ValueByCategory: []domain.CategoryValue{},
		MostDispensed:   []domain.DispensedItem{},
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(quantity * price_per_unit), 0),
			COALESCE(SUM(quantity <= min_stock_level), 0),
			COUNT(*),
			COALESCE(SUM(quantity), 0)
		FROM inventory_items`,
	).Scan(&data.Stats.TotalStockValue, &data.Stats.ItemsRunningLow,
		&data.Stats.UniqueItems, &data.Stats.TotalQuantity)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COALESCE(SUM(quantity * price_per_unit), 0) AS value
		FROM inventory_items
		WHERE category IS NOT NULL AND category != ''
		GROUP BY category
		ORDER BY value DESC
		LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("query category values: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cv domain.CategoryValue
		if err := rows.Scan(&cv.Category, &cv.Value); err != nil {
			return nil, fmt.Errorf("scan category value: %w", err)
		}
		data.ValueByCategory = append(data.ValueByCategory, cv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dispensed, err := s.db.QueryContext(ctx, `
		SELECT i.name, ABS(SUM(t.quantity_change)) AS dispensed_count
		FROM inventory_transactions t
		JOIN inventory_items i ON t.item_id = i.id
		WHERE t.transaction_type = 'dispense' AND t.transaction_date >= NOW() - INTERVAL 90 DAY
		GROUP BY i.name
		ORDER BY dispensed_count DESC
		LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("query most dispensed: %w", err)
	}
	defer dispensed.Close()
	for dispensed.Next() {
		var di domain.DispensedItem
		if err := dispensed.Scan(&di.Name, &di.Count); err != nil {
			return nil, fmt.Errorf("scan dispensed item: %w", err)
		}
		data.MostDispensed = append(data.MostDispensed, di)
	}
	return data, dispensed.Err()
}

func (s *MySQLStore) ListTransactions(ctx context.Context, f domain.ReportFilter) ([]domain.ReportRow, error) {
	query := `
		SELECT t.id, i.name, COALESCE(t.user_id, 'System'), t.transaction_type, t.quantity_change, t.notes, t.transaction_date
		FROM inventory_transactions t
		JOIN inventory_items i ON t.item_id = i.id`

	where := []string{}
	args := []any{}
	if f.Start != nil {
		where = append(where, "t.transaction_date >= ?")
		args = append(args, *f.Start)
	}
	if f.End != nil {
		where = append(where, "t.transaction_date <= ?")
		args = append(args, *f.End)
	}
	if f.Type != "" && f.Type != "all" {
		where = append(where, "t.transaction_type = ?")
		args = append(args, f.Type)
	}
	if f.UserID != "" && f.UserID != "all" {
		where = append(where, "t.user_id = ?")
		args = append(args, f.UserID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.transaction_date DESC, t.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	report := []domain.ReportRow{}
	for rows.Next() {
		var r domain.ReportRow
		if err := rows.Scan(&r.ID, &r.ItemName, &r.UserName, &r.Type, &r.QuantityChange, &r.Notes, &r.Date); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		report = append(report, r)
	}
	return report, rows.Err()
}
