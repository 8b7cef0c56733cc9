package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderPlaced is emitted when an order has reserved its stock and been stored.
type OrderPlaced struct {
	OrderID  string          `json:"order_id"`
	Lines    []OrderLine     `json:"lines"`
	Total    decimal.Decimal `json:"total"`
	Status   OrderStatus     `json:"status"`
	Buyer    BuyerDetails    `json:"buyer"`
	PlacedAt time.Time       `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }

// OrderStatusChanged is the lifecycle event. It is stored in the order
// stream and published to subscribers with the same payload. Its JSON names
// are camelCase because lifecycle subscribers read orderId, previousStatus
// and newStatus.
type OrderStatusChanged struct {
	OrderID        string      `json:"orderId"`
	PreviousStatus OrderStatus `json:"previousStatus"`
	NewStatus      OrderStatus `json:"newStatus"`
	Actor          string      `json:"actor"`
	Comment        string      `json:"comment,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

func (e OrderStatusChanged) EventType() string { return "OrderStatusChanged" }

// StockUpdated is emitted after a committed stock change.
type StockUpdated struct {
	ProductID string        `json:"product_id"`
	NewStock  float64       `json:"new_stock"`
	Status    ProductStatus `json:"status"`
}

func (e StockUpdated) EventType() string { return "StockUpdated" }
