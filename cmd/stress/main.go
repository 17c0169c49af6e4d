// Concurrency driver: fires concurrent dispense operations at a single item
// and verifies that row locking admitted exactly as many as there was stock,
// with an intact ledger.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/itamhq/inventory/internal/adapter/storage"
	"github.com/itamhq/inventory/internal/config"
	"github.com/itamhq/inventory/internal/core/domain"
)

const (
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	store := storage.NewMySQLStore(db)
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	// Fresh item per run
	barcode := fmt.Sprintf("STRESS-%d", time.Now().UnixNano())
	item, _, err := store.ReceiveStock(ctx, domain.ReceiveInput{
		Barcode:      &barcode,
		Name:         "stress test item " + barcode,
		Quantity:     initialStock,
		PricePerUnit: decimal.NewFromFloat(1.00),
	})
	if err != nil {
		log.Fatalf("failed to create item: %v", err)
	}

	var successCount atomic.Int32
	var rejectedCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			userID := fmt.Sprintf("user-%d", n)
			_, err := store.DispenseStock(ctx, item.ID, 1, &userID, nil)
			if err == nil {
				successCount.Add(1)
			} else {
				rejectedCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	rejected := rejectedCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected:         %d\n", rejected)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && rejected == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d dispenses succeeded, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d rejected, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, rejected)
	}

	final, err := store.GetItem(ctx, item.ID)
	if err != nil {
		log.Fatalf("failed to reload item: %v", err)
	}
	fmt.Printf("Final Quantity:   %d\n", final.Quantity)
	if final.Quantity == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected quantity 0, got %d\n", final.Quantity)
	}

	// Ledger must sum to the final quantity.
	var sum int
	if err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity_change), 0) FROM inventory_transactions WHERE item_id = ?`,
		item.ID).Scan(&sum); err != nil {
		log.Fatalf("failed to sum ledger: %v", err)
	}
	if sum == final.Quantity {
		fmt.Println("PASS: Ledger sum matches final quantity")
	} else {
		fmt.Printf("FAIL: Ledger sum %d, quantity %d\n", sum, final.Quantity)
	}
}
