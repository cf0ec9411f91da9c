package models

import "time"

// Event types
const (
	EventTypeSaleCreated = "SALE_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleCreatedEvent published when a sale is committed
type SaleCreatedEvent struct {
	BaseEvent
	SaleID      string         `json:"sale_id"`
	Total       float64        `json:"total"`
	Items       []SaleItemData `json:"items"`
	StockLevels []StockLevel   `json:"stock_levels"`
}

// SaleItemData represents item data in events
type SaleItemData struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}
