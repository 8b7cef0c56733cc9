package watermill

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

func newGoChannel(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	return pubSub
}

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestPublisher_LifecycleEventGoesToStatusTopic(t *testing.T) {
	pubSub := newGoChannel(t)
	messages, err := pubSub.Subscribe(context.Background(), "orders.status")
	require.NoError(t, err)
	pub := New(pubSub, "orders.status")

	event := entity.OrderStatusChanged{
		OrderID:        "o-1",
		PreviousStatus: entity.StatusPending,
		NewStatus:      entity.StatusAccepted,
		Actor:          "admin",
		Timestamp:      time.Now().UTC(),
	}
	require.NoError(t, pub.PublishEvent(context.Background(), messaging.TopicOrderStatusGlobal, "o-1", event))

	msg := receive(t, messages)
	assert.Equal(t, "o-1", msg.Metadata.Get(keyMetadata))
	assert.Equal(t, "OrderStatusChanged", msg.Metadata.Get(eventTypeMetadata))

	var got entity.OrderStatusChanged
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, entity.StatusAccepted, got.NewStatus)
	assert.Equal(t, entity.StatusPending, got.PreviousStatus)
}

func TestPublisher_OtherTopicsPassThrough(t *testing.T) {
	pubSub := newGoChannel(t)
	messages, err := pubSub.Subscribe(context.Background(), messaging.TopicStockUpdated)
	require.NoError(t, err)
	pub := New(pubSub, "orders.status")

	event := entity.StockUpdated{ProductID: "bread", NewStock: 4, Status: entity.ProductActive}
	require.NoError(t, pub.PublishEvent(context.Background(), messaging.TopicStockUpdated, "bread", event))

	msg := receive(t, messages)
	assert.Equal(t, "bread", msg.Metadata.Get(keyMetadata))
}

func TestPublisher_EncodeFailure(t *testing.T) {
	pub := New(newGoChannel(t), "orders.status")

	err := pub.PublishEvent(context.Background(), messaging.TopicOrderPlaced, "o-1", func() {})

	assert.ErrorIs(t, err, messaging.ErrEncode)
}
