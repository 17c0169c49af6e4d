package tests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/itamhq/inventory/internal/adapter/storage"
	"github.com/itamhq/inventory/internal/core/domain"
	"github.com/itamhq/inventory/internal/core/service"
)

type testEnv struct {
	mysql *sql.DB
	store *storage.MySQLStore
	cache *storage.RedisCache
	redis *redis.Client
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/itam?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := storage.NewMySQLStore(db)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	env := &testEnv{mysql: db, store: store}

	// Redis is optional; cache-dependent assertions are skipped without it.
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err == nil {
		env.redis = rdb
		env.cache = storage.NewRedisCache(rdb, time.Minute)
		t.Cleanup(func() { rdb.Close() })
	} else {
		rdb.Close()
	}

	return env
}

func (env *testEnv) newService(t *testing.T) *service.InventoryService {
	t.Helper()
	svc := service.NewInventoryService(env.store, env.cache, 100)
	t.Cleanup(svc.Close)
	go func() {
		for range svc.Events() {
		}
	}()
	return svc
}

func (env *testEnv) receiveItem(t *testing.T, svc *service.InventoryService, quantity int, price float64) *domain.InventoryItem {
	t.Helper()
	barcode := fmt.Sprintf("ITG-%d", time.Now().UnixNano())
	item, err := svc.Receive(context.Background(), domain.ReceiveInput{
		Barcode:       &barcode,
		Name:          "integration item " + barcode,
		Quantity:      quantity,
		MinStockLevel: 5,
		PricePerUnit:  decimal.NewFromFloat(price),
	})
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	return item
}

func (env *testEnv) ledgerSum(t *testing.T, itemID int64) int {
	t.Helper()
	var sum int
	err := env.mysql.QueryRowContext(context.Background(),
		`SELECT COALESCE(SUM(quantity_change), 0) FROM inventory_transactions WHERE item_id = ?`,
		itemID).Scan(&sum)
	if err != nil {
		t.Fatalf("sum ledger: %v", err)
	}
	return sum
}

func TestIntegration_FullStockLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	svc := env.newService(t)
	ctx := context.Background()

	item := env.receiveItem(t, svc, 100, 2.50)

	// Cycle count finds 80 on the shelf.
	if err := svc.Adjust(ctx, item.ID, 80, nil, "cycle count"); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}

	// Issue 4 to a technician.
	user := "EMP-101"
	notes := "issued to EMP-101"
	if err := svc.Dispense(ctx, item.ID, 4, &user, &notes); err != nil {
		t.Fatalf("dispense failed: %v", err)
	}

	// 1 comes back unused.
	if err := svc.Return(ctx, item.ID, 1, &user, nil); err != nil {
		t.Fatalf("return failed: %v", err)
	}

	reloaded, err := svc.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item failed: %v", err)
	}
	if reloaded.Quantity != 77 {
		t.Errorf("expected quantity 77, got %d", reloaded.Quantity)
	}

	// The ledger must account for every unit: 100 - 20 - 4 + 1 = 77.
	if sum := env.ledgerSum(t, item.ID); sum != 77 {
		t.Errorf("expected ledger sum 77, got %d", sum)
	}

	history, err := svc.ItemHistory(ctx, item.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history.Transactions) != 4 {
		t.Errorf("expected 4 ledger entries, got %d", len(history.Transactions))
	}
}

func TestIntegration_ConcurrentDispenses(t *testing.T) {
	env := setupTestEnv(t)
	svc := env.newService(t)
	ctx := context.Background()

	initialStock := 10
	totalRequests := 20
	item := env.receiveItem(t, svc, initialStock, 1.00)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", n)
			err := svc.Dispense(ctx, item.ID, 1, &user, nil)
			if err == nil {
				successCount.Add(1)
			} else if !errors.Is(err, domain.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successful dispenses, got %d", initialStock, successCount.Load())
	}

	reloaded, _ := svc.GetItem(ctx, item.ID)
	if reloaded.Quantity != 0 {
		t.Errorf("expected quantity 0, got %d", reloaded.Quantity)
	}
	if sum := env.ledgerSum(t, item.ID); sum != 0 {
		t.Errorf("expected ledger sum 0, got %d", sum)
	}
}

func TestIntegration_CompetingDispensesOverlappingStock(t *testing.T) {
	env := setupTestEnv(t)
	svc := env.newService(t)
	ctx := context.Background()

	// Stock 5, two concurrent requests for 3: exactly one may win.
	item := env.receiveItem(t, svc, 5, 1.00)

	var successCount atomic.Int32
	var insufficientCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Dispense(ctx, item.ID, 3, nil, nil)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				insufficientCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 || insufficientCount.Load() != 1 {
		t.Errorf("expected 1 success and 1 insufficient, got %d/%d",
			successCount.Load(), insufficientCount.Load())
	}

	reloaded, _ := svc.GetItem(ctx, item.ID)
	if reloaded.Quantity != 2 {
		t.Errorf("expected final quantity 2, got %d", reloaded.Quantity)
	}
}

func TestIntegration_DashboardCacheInvalidatedOnMutation(t *testing.T) {
	env := setupTestEnv(t)
	if env.cache == nil {
		t.Skip("Redis not available")
	}
	svc := env.newService(t)
	ctx := context.Background()

	item := env.receiveItem(t, svc, 50, 2.00)

	// Prime the cache.
	first, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}

	// A dispense must invalidate it so the next read sees fresh numbers.
	if err := svc.Dispense(ctx, item.ID, 10, nil, nil); err != nil {
		t.Fatalf("dispense failed: %v", err)
	}

	second, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}

	wantDrop := int64(10)
	gotDrop := int64(first.Stats.TotalQuantity - second.Stats.TotalQuantity)
	if gotDrop < wantDrop {
		t.Errorf("expected total quantity to drop by at least %d, dropped %d", wantDrop, gotDrop)
	}
}

func TestIntegration_ReportsFilterByUser(t *testing.T) {
	env := setupTestEnv(t)
	svc := env.newService(t)
	ctx := context.Background()

	item := env.receiveItem(t, svc, 10, 1.00)
	user := fmt.Sprintf("auditor-%d", time.Now().UnixNano())
	notes := "audit issue"
	if err := svc.Dispense(ctx, item.ID, 2, &user, &notes); err != nil {
		t.Fatalf("dispense failed: %v", err)
	}

	rows, err := svc.ListTransactions(ctx, domain.ReportFilter{UserID: user})
	if err != nil {
		t.Fatalf("reports failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 report row, got %d", len(rows))
	}
	if rows[0].QuantityChange != -2 || rows[0].UserName != user {
		t.Errorf("unexpected report row: %+v", rows[0])
	}
}
