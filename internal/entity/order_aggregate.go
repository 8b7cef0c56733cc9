package entity

import (
	"fmt"
	"time"
)

// OrderStreamType is the stream type of order event streams.
const OrderStreamType = "order"

// OrderAggregate manages the state of an Order by replaying events.
type OrderAggregate struct {
	AggregateBase
	Order   Order
	History []OrderStatusChanged
}

// NewOrderAggregate creates an empty OrderAggregate for id.
func NewOrderAggregate(id string) *OrderAggregate {
	return &OrderAggregate{
		AggregateBase: AggregateBase{ID: id, Version: 0},
	}
}

// Exists reports whether the order has been placed.
func (a *OrderAggregate) Exists() bool {
	return a.Version > 0
}

// ChangeStatus validates cmd against the lifecycle table and returns the
// event to append. The aggregate is not mutated.
func (a *OrderAggregate) ChangeStatus(cmd ChangeOrderStatus, at time.Time) (OrderStatusChanged, error) {
	if !a.Exists() {
		return OrderStatusChanged{}, ErrOrderNotFound
	}
	if !a.Order.Status.CanTransitionTo(cmd.Status) {
		return OrderStatusChanged{}, &TransitionError{From: a.Order.Status, To: cmd.Status}
	}
	return OrderStatusChanged{
		OrderID:        a.ID,
		PreviousStatus: a.Order.Status,
		NewStatus:      cmd.Status,
		Actor:          cmd.Actor,
		Comment:        cmd.Comment,
		Timestamp:      at,
	}, nil
}

// ApplyEvent mutates the aggregate state based on the event.
func (a *OrderAggregate) ApplyEvent(e Event) error {
	switch e := e.(type) {
	case OrderPlaced:
		a.Order = Order{
			ID:        e.OrderID,
			Lines:     e.Lines,
			OrderDate: e.PlacedAt,
			Total:     e.Total,
			Status:    e.Status,
			Buyer:     e.Buyer,
		}
	case OrderStatusChanged:
		a.Order.Status = e.NewStatus
		a.History = append(a.History, e)
	default:
		return fmt.Errorf("unknown event type for OrderAggregate: %s", e.EventType())
	}
	a.Version++
	a.Order.Version = a.Version
	return nil
}

// Rehydrate rebuilds the aggregate from a list of records.
func (a *OrderAggregate) Rehydrate(records []EventStoreRecord) error {
	return Replay(a, records)
}
