package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/itamhq/inventory/internal/core/domain"
	"github.com/itamhq/inventory/internal/metrics"
	"github.com/itamhq/inventory/internal/port"
)

// InventoryService orchestrates stock operations: it delegates the
// transactional work to the store, then invalidates the dashboard cache and
// enqueues a stock event for the publisher workers. The store alone enforces
// per-item serialization; nothing here locks in process memory.
type InventoryService struct {
	store  port.InventoryStore
	cache  port.DashboardCache // optional
	events chan domain.StockEvent
}

func NewInventoryService(store port.InventoryStore, cache port.DashboardCache, queueSize int) *InventoryService {
	return &InventoryService{
		store:  store,
		cache:  cache,
		events: make(chan domain.StockEvent, queueSize),
	}
}

func (s *InventoryService) Adjust(ctx context.Context, itemID int64, newQuantity int, userID *string, notes string) error {
	start := time.Now()
	mut, err := s.store.AdjustStock(ctx, itemID, newQuantity, userID, notes)
	s.observe(domain.TransactionAdjust, start, err)
	if err != nil {
		return err
	}
	s.afterMutation(ctx, mut, userID)
	return nil
}

func (s *InventoryService) Dispense(ctx context.Context, itemID int64, quantity int, userID, notes *string) error {
	start := time.Now()
	mut, err := s.store.DispenseStock(ctx, itemID, quantity, userID, notes)
	s.observe(domain.TransactionDispense, start, err)
	if err != nil {
		return err
	}
	s.afterMutation(ctx, mut, userID)
	return nil
}

func (s *InventoryService) Return(ctx context.Context, itemID int64, quantity int, userID, notes *string) error {
	start := time.Now()
	mut, err := s.store.ReturnStock(ctx, itemID, quantity, userID, notes)
	s.observe(domain.TransactionReturn, start, err)
	if err != nil {
		return err
	}
	s.afterMutation(ctx, mut, userID)
	return nil
}

func (s *InventoryService) Receive(ctx context.Context, in domain.ReceiveInput) (*domain.InventoryItem, error) {
	start := time.Now()
	item, mut, err := s.store.ReceiveStock(ctx, in)
	s.observe(domain.TransactionReceive, start, err)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx, mut, nil)
	return item, nil
}

func (s *InventoryService) GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	return s.store.GetItem(ctx, id)
}

func (s *InventoryService) GetItemByBarcode(ctx context.Context, barcode string) (*domain.InventoryItem, error) {
	return s.store.GetItemByBarcode(ctx, barcode)
}

func (s *InventoryService) ListItems(ctx context.Context, q domain.ListQuery) ([]domain.InventoryItem, int, error) {
	return s.store.ListItems(ctx, q)
}

func (s *InventoryService) UpdateItem(ctx context.Context, id int64, in domain.ItemUpdate) (*domain.InventoryItem, error) {
	item, err := s.store.UpdateItem(ctx, id, in)
	if err != nil {
		return nil, err
	}
	// Price and threshold changes shift the dashboard aggregates.
	s.invalidateDashboard(ctx)
	return item, nil
}

func (s *InventoryService) DeactivateItem(ctx context.Context, id int64) error {
	if err := s.store.DeactivateItem(ctx, id); err != nil {
		return err
	}
	s.invalidateDashboard(ctx)
	return nil
}

func (s *InventoryService) ItemHistory(ctx context.Context, itemID int64) (*domain.ItemHistory, error) {
	return s.store.ItemHistory(ctx, itemID)
}

func (s *InventoryService) Dashboard(ctx context.Context) (*domain.DashboardData, error) {
	if s.cache != nil {
		data, ok, err := s.cache.GetDashboard(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("dashboard cache read failed")
		} else if ok {
			return data, nil
		}
	}

	data, err := s.store.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	metrics.ItemsRunningLow.Set(float64(data.Stats.ItemsRunningLow))

	if s.cache != nil {
		if err := s.cache.SetDashboard(ctx, data); err != nil {
			log.Warn().Err(err).Msg("dashboard cache write failed")
		}
	}
	return data, nil
}

func (s *InventoryService) ListTransactions(ctx context.Context, f domain.ReportFilter) ([]domain.ReportRow, error) {
	return s.store.ListTransactions(ctx, f)
}

// Events exposes the stock event queue for the publisher worker pool.
func (s *InventoryService) Events() <-chan domain.StockEvent {
	return s.events
}

// Close closes the event queue. No mutations may be issued afterwards.
func (s *InventoryService) Close() {
	close(s.events)
}

func (s *InventoryService) afterMutation(ctx context.Context, mut *domain.StockMutation, userID *string) {
	s.invalidateDashboard(ctx)

	ev := domain.StockEvent{
		ItemID:         mut.ItemID,
		Type:           mut.Type,
		QuantityChange: mut.QuantityChange,
		NewQuantity:    mut.NewQuantity,
		PricePerUnit:   mut.PricePerUnit,
		UserID:         userID,
		OccurredAt:     time.Now().UTC(),
	}

	// Best-effort: a full queue drops the event rather than delaying the
	// caller's already-committed operation.
	select {
	case s.events <- ev:
	default:
		metrics.EventsDropped.Inc()
		log.Warn().Int64("item_id", ev.ItemID).Str("type", string(ev.Type)).Msg("event queue full, dropping stock event")
	}
}

func (s *InventoryService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("dashboard cache invalidation failed")
	}
}

func (s *InventoryService) observe(typ domain.TransactionType, start time.Time, err error) {
	metrics.TransactionDuration.WithLabelValues(string(typ)).Observe(time.Since(start).Seconds())
	metrics.TransactionsTotal.WithLabelValues(string(typ), outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrNoAdjustmentNeeded),
		errors.Is(err, domain.ErrDuplicateBarcode):
		return "rejected"
	default:
		return "error"
	}
}
