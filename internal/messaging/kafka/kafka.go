package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

// Broker publishes with one shared writer and consumes with a reader per
// Consume call.
type Broker struct {
	brokers     []string
	statusTopic string
	writer      *kafkaGo.Writer
}

// NewKafkaBroker creates a new Kafka publisher and subscriber. Lifecycle
// events are written to statusTopic.
func NewKafkaBroker(brokers []string, statusTopic string) *Broker {
	return &Broker{
		brokers:     brokers,
		statusTopic: statusTopic,
		writer: &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(brokers...),
			Balancer:               &kafkaGo.Hash{},
			RequiredAcks:           kafkaGo.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (k *Broker) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	brokerTopic, ok := messaging.BrokerTopic(topic, k.statusTopic)
	if !ok {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: %w", messaging.ErrEncode, err)
	}

	err = k.writer.WriteMessages(ctx, kafkaGo.Message{
		Topic: brokerTopic,
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to write to %s: %w", brokerTopic, err)
	}
	return nil
}

// Consume blocks until ctx is done.
func (k *Broker) Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, key, payload []byte) error) {
	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers: k.brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Consumer shutting down", "topic", topic)
				return
			}
			slog.Error("Error reading message", "topic", topic, "err", err)
			continue
		}

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			slog.Error("Error handling message", "topic", topic, "err", err)
		}
	}
}

func (k *Broker) Close() error {
	return k.writer.Close()
}
