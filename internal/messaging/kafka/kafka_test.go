package kafka

import (
	"context"
	"testing"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

// The unreachable broker address makes any real write fail, so a nil error
// proves nothing was written.
func newTestBroker() *Broker {
	return NewKafkaBroker([]string{"127.0.0.1:1"}, "orders.status")
}

func TestPublishEvent_SkipsPerOrderTopic(t *testing.T) {
	b := newTestBroker()
	defer b.Close()

	err := b.PublishEvent(context.Background(), messaging.OrderStatusTopic("o-1"), "o-1", map[string]string{"a": "b"})

	assert.NoError(t, err)
}

func TestPublishEvent_EncodeFailure(t *testing.T) {
	b := newTestBroker()
	defer b.Close()

	err := b.PublishEvent(context.Background(), messaging.TopicOrderPlaced, "o-1", make(chan int))

	assert.ErrorIs(t, err, messaging.ErrEncode)
}

func TestNewKafkaBroker_WriterRoutesByKey(t *testing.T) {
	b := newTestBroker()
	defer b.Close()

	assert.Empty(t, b.writer.Topic)
	assert.IsType(t, &kafkaGo.Hash{}, b.writer.Balancer)
}
