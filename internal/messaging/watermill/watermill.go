// Package watermill publishes domain events through a Watermill publisher.
package watermill

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

const (
	keyMetadata       = "key"
	eventTypeMetadata = "event_type"
)

type eventTyper interface {
	EventType() string
}

// Publisher adapts a message.Publisher to messaging.Publisher.
type Publisher struct {
	pub         message.Publisher
	statusTopic string
}

// New wraps pub. Lifecycle events go to statusTopic.
func New(pub message.Publisher, statusTopic string) *Publisher {
	return &Publisher{pub: pub, statusTopic: statusTopic}
}

// NewKafkaPublisher creates a Publisher backed by watermill-kafka. The key
// metadata becomes the Kafka partition key.
func NewKafkaPublisher(brokers []string, statusTopic string, logger watermill.LoggerAdapter) (*Publisher, error) {
	saramaConfig := kafka.DefaultSaramaSyncPublisherConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.ClientID = "storefront"

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers: brokers,
		Marshaler: kafka.NewWithPartitioningMarshaler(func(_ string, msg *message.Message) (string, error) {
			return msg.Metadata.Get(keyMetadata), nil
		}),
		OverwriteSaramaConfig: saramaConfig,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create watermill kafka publisher: %w", err)
	}
	return New(pub, statusTopic), nil
}

func (p *Publisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	brokerTopic, ok := messaging.BrokerTopic(topic, p.statusTopic)
	if !ok {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: %w", messaging.ErrEncode, err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set(keyMetadata, key)
	if e, ok := event.(eventTyper); ok {
		msg.Metadata.Set(eventTypeMetadata, e.EventType())
	}
	msg.SetContext(ctx)

	if err := p.pub.Publish(brokerTopic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", brokerTopic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.pub.Close()
}
