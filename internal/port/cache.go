package port

import (
	"context"

	"github.com/itamhq/inventory/internal/core/domain"
)

// DashboardCache is a read-side cache for dashboard aggregates. It never
// holds authoritative stock state; the database remains the source of truth.
type DashboardCache interface {
	// GetDashboard returns the cached aggregates, with ok=false on a miss.
	GetDashboard(ctx context.Context) (data *domain.DashboardData, ok bool, err error)

	// SetDashboard stores the aggregates with the cache's configured TTL.
	SetDashboard(ctx context.Context, data *domain.DashboardData) error

	// Invalidate drops the cached aggregates after a stock mutation.
	Invalidate(ctx context.Context) error
}
