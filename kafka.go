package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/config"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/kafka"
	wmpub "github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/watermill"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/websocket"
)

type events struct {
	publisher messaging.Publisher
	relay     func(ctx context.Context)
	closers   []io.Closer
}

// Close flushes the queued events before closing the broker connections.
func (e *events) Close() {
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			slog.Error("Failed to close publisher", "err", err)
		}
	}
}

// buildPublisher composes the event pipeline. Without Kafka events are
// logged and pushed straight to the hub. With Kafka they go to the broker
// through the retrying async queue, and lifecycle events come back to the
// hub through the relay so every instance sees them.
func buildPublisher(cfg *config.Config, hub *websocket.Hub, logger *slog.Logger) (*events, error) {
	if len(cfg.KafkaBrokers) == 0 {
		slog.Warn("KAFKA_BROKERS not set, events are only logged and sent to websocket clients")
		return &events{
			publisher: messaging.FanOut(messaging.NewLogPublisher(logger), hub),
			relay:     func(context.Context) {},
		}, nil
	}

	var (
		broker  messaging.Publisher
		closers []io.Closer
	)
	consumer := kafka.NewKafkaBroker(cfg.KafkaBrokers, cfg.OrderStatusTopic)
	switch cfg.BrokerDriver {
	case config.DriverWatermill:
		pub, err := wmpub.NewKafkaPublisher(cfg.KafkaBrokers, cfg.OrderStatusTopic, watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, err
		}
		broker = pub
		closers = append(closers, pub)
	default:
		broker = consumer
	}

	async := messaging.NewAsync(messaging.Retry(broker, cfg.PublishMaxTries), cfg.PublishBuffer)
	// async drains into broker, so it closes first.
	closers = append([]io.Closer{async}, closers...)
	closers = append(closers, consumer)

	groupID := "storefront-ws-" + uuid.NewString()
	return &events{
		publisher: messaging.FanOut(async, localOnly{next: hub}),
		relay: func(ctx context.Context) {
			hub.Relay(ctx, consumer, cfg.OrderStatusTopic, groupID)
		},
		closers: closers,
	}, nil
}

// localOnly passes everything but lifecycle events, which reach the hub
// through the relay.
type localOnly struct {
	next messaging.Publisher
}

func (l localOnly) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	if messaging.IsOrderStatusTopic(topic) {
		return nil
	}
	return l.next.PublishEvent(ctx, topic, key, event)
}
