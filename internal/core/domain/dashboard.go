package domain

import "github.com/shopspring/decimal"

type DashboardStats struct {
	TotalStockValue decimal.Decimal `json:"total_stock_value"`
	ItemsRunningLow int             `json:"items_running_low"`
	UniqueItems     int             `json:"total_unique_items"`
	TotalQuantity   int             `json:"total_quantity"`
}

type CategoryValue struct {
	Category string          `json:"category"`
	Value    decimal.Decimal `json:"value"`
}

type DispensedItem struct {
	Name  string `json:"name"`
	Count int    `json:"dispensed_count"`
}

type DashboardData struct {
	Stats           DashboardStats  `json:"stats"`
	ValueByCategory []CategoryValue `json:"valueByCategory"`
	MostDispensed   []DispensedItem `json:"mostDispensed"`
}
