package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, version int, e Event) EventStoreRecord {
	t.Helper()
	payload, err := json.Marshal(e)
	require.NoError(t, err)
	return EventStoreRecord{StreamID: "o-1", Version: version, EventType: e.EventType(), Payload: payload}
}

func placed() OrderPlaced {
	return OrderPlaced{
		OrderID: "o-1",
		Lines: []OrderLine{{
			Product: ProductSnapshot{ID: "p-1", Name: "Apples", UnitMode: UnitWeight, Price: decimal.NewNullDecimal(decimal.RequireFromString("4"))},
			Amount:  1500,
		}},
		Total:    decimal.RequireFromString("6"),
		Status:   StatusPending,
		Buyer:    BuyerDetails{Name: "alice"},
		PlacedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestOrderAggregate_Rehydrate(t *testing.T) {
	agg := NewOrderAggregate("o-1")

	err := agg.Rehydrate([]EventStoreRecord{
		record(t, 1, placed()),
		record(t, 2, OrderStatusChanged{OrderID: "o-1", PreviousStatus: StatusPending, NewStatus: StatusAccepted, Actor: "admin", Comment: "ok"}),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, agg.GetVersion())
	assert.Equal(t, StatusAccepted, agg.Order.Status)
	assert.Equal(t, 2, agg.Order.Version)
	assert.True(t, decimal.RequireFromString("6").Equal(agg.Order.Total))
	require.Len(t, agg.History, 1)
	assert.Equal(t, "ok", agg.History[0].Comment)
}

func TestOrderAggregate_RehydrateUnknownEvent(t *testing.T) {
	agg := NewOrderAggregate("o-1")

	err := agg.Rehydrate([]EventStoreRecord{{StreamID: "o-1", EventType: "OrderShipped", Payload: []byte(`{}`)}})

	assert.ErrorContains(t, err, "unknown event type")
}

func TestOrderAggregate_RehydrateRejectsStockEvent(t *testing.T) {
	agg := NewOrderAggregate("o-1")

	err := agg.Rehydrate([]EventStoreRecord{
		record(t, 1, placed()),
		record(t, 2, StockUpdated{ProductID: "p-1", NewStock: 3, Status: ProductActive}),
	})

	assert.ErrorContains(t, err, "unknown event type")
}

func TestOrderAggregate_ChangeStatus(t *testing.T) {
	agg := NewOrderAggregate("o-1")
	require.NoError(t, agg.ApplyEvent(placed()))
	at := time.Now()

	ev, err := agg.ChangeStatus(ChangeOrderStatus{OrderID: "o-1", Status: StatusAccepted, Actor: "admin"}, at)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, ev.PreviousStatus)
	assert.Equal(t, StatusAccepted, ev.NewStatus)
	assert.Equal(t, at, ev.Timestamp)
	assert.Equal(t, StatusPending, agg.Order.Status, "ChangeStatus must not mutate")

	_, err = agg.ChangeStatus(ChangeOrderStatus{OrderID: "o-1", Status: StatusDelivered}, at)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderAggregate_ChangeStatusMissingOrder(t *testing.T) {
	_, err := NewOrderAggregate("nope").ChangeStatus(ChangeOrderStatus{Status: StatusAccepted}, time.Now())

	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.True(t, IsNotFound(err))
}
