package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_transactions_total",
		Help: "Stock transactions by type and outcome.",
	}, []string{"type", "outcome"})

	TransactionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_transaction_duration_seconds",
		Help:    "Duration of stock transactions, including lock wait.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	ItemsRunningLow = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inventory_items_running_low",
		Help: "Items at or below their minimum stock level, as of the last dashboard refresh.",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_stock_events_dropped_total",
		Help: "Stock events dropped because the publish queue was full.",
	})
)
