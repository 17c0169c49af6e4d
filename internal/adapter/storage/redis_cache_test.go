package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/itamhq/inventory/internal/core/domain"
)

func getRedisCache(t *testing.T) (*RedisCache, *redis.Client) {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, time.Minute), client
}

func sampleDashboard() *domain.DashboardData {
	return &domain.DashboardData{
		Stats: domain.DashboardStats{
			TotalStockValue: decimal.NewFromFloat(1234.56),
			ItemsRunningLow: 3,
			UniqueItems:     42,
			TotalQuantity:   980,
		},
		ValueByCategory: []domain.CategoryValue{
			{Category: "Cables", Value: decimal.NewFromFloat(400.00)},
		},
		MostDispensed: []domain.DispensedItem{
			{Name: "USB Mouse", Count: 17},
		},
	}
}

func TestDashboardCache_RoundTrip(t *testing.T) {
	cache, client := getRedisCache(t)
	ctx := context.Background()

	client.Del(ctx, dashboardKey)

	// Miss before anything is cached
	_, ok, err := cache.GetDashboard(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected miss on empty cache")
	}

	want := sampleDashboard()
	if err := cache.SetDashboard(ctx, want); err != nil {
		t.Fatalf("SetDashboard failed: %v", err)
	}

	got, ok, err := cache.GetDashboard(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected hit after set")
	}
	if !got.Stats.TotalStockValue.Equal(want.Stats.TotalStockValue) {
		t.Errorf("expected total value %s, got %s", want.Stats.TotalStockValue, got.Stats.TotalStockValue)
	}
	if got.Stats.ItemsRunningLow != 3 || got.Stats.UniqueItems != 42 {
		t.Errorf("stats mismatch: %+v", got.Stats)
	}
	if len(got.ValueByCategory) != 1 || got.ValueByCategory[0].Category != "Cables" {
		t.Errorf("category values mismatch: %+v", got.ValueByCategory)
	}
}

func TestDashboardCache_Invalidate(t *testing.T) {
	cache, client := getRedisCache(t)
	ctx := context.Background()

	client.Del(ctx, dashboardKey)

	if err := cache.SetDashboard(ctx, sampleDashboard()); err != nil {
		t.Fatalf("SetDashboard failed: %v", err)
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	_, ok, err := cache.GetDashboard(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected miss after invalidation")
	}
}

func TestDashboardCache_CorruptEntryTreatedAsMiss(t *testing.T) {
	cache, client := getRedisCache(t)
	ctx := context.Background()

	client.Set(ctx, dashboardKey, "{not json", time.Minute)

	_, ok, err := cache.GetDashboard(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected corrupt entry to read as miss")
	}
}
