package messaging

import (
	"context"
	"errors"
	"strings"
)

const (
	// TopicOrderStatusGlobal receives every order lifecycle event.
	TopicOrderStatusGlobal = "orders.status.global"
	TopicOrderPlaced       = "orders.placed"
	TopicStockUpdated      = "products.stock"

	orderStatusPrefix = "orders.status."
)

// ErrEncode marks an event that could not be serialized. Retrying it is pointless.
var ErrEncode = errors.New("failed to encode event")

// OrderStatusTopic is the per-order lifecycle topic.
func OrderStatusTopic(orderID string) string {
	return orderStatusPrefix + orderID
}

// IsOrderStatusTopic reports whether topic is the global or a per-order
// lifecycle topic.
func IsOrderStatusTopic(topic string) bool {
	return strings.HasPrefix(topic, orderStatusPrefix)
}

// BrokerTopic maps a logical topic onto a broker topic. Lifecycle events go
// to statusTopic keyed by order ID, so the per-order stream is the key's
// partition and publishing the per-order copy would duplicate it; ok is false
// for those.
func BrokerTopic(topic, statusTopic string) (string, bool) {
	switch {
	case topic == TopicOrderStatusGlobal:
		return statusTopic, true
	case IsOrderStatusTopic(topic):
		return "", false
	}
	return topic, true
}

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber defines an interface for subscribing to a message topic.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, key, payload []byte) error)
}
