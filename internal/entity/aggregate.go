package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventStoreRecord is one persisted event of a stream.
type EventStoreRecord struct {
	ID         string    `json:"id"`
	StreamID   string    `json:"stream_id"`
	StreamType string    `json:"stream_type"`
	Version    int       `json:"version"`
	EventType  string    `json:"event_type"`
	Payload    []byte    `json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
}

// Event represents a domain event.
type Event interface {
	EventType() string
}

// Aggregate is an aggregate root rebuilt from its stream.
type Aggregate interface {
	GetAggregateID() string
	GetVersion() int
	ApplyEvent(event Event) error
}

// AggregateBase carries the stream identity and the number of applied events.
type AggregateBase struct {
	ID      string
	Version int
}

func (a *AggregateBase) GetAggregateID() string { return a.ID }

func (a *AggregateBase) GetVersion() int { return a.Version }

type eventDecoder func(payload []byte) (Event, error)

func decodeAs[E Event](payload []byte) (Event, error) {
	var e E
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return e, nil
}

// decoders maps a stored event type back to its Go type.
var decoders = map[string]eventDecoder{
	OrderPlaced{}.EventType():        decodeAs[OrderPlaced],
	OrderStatusChanged{}.EventType(): decodeAs[OrderStatusChanged],
}

// DecodeEvent turns a stored record back into its event.
func DecodeEvent(rec EventStoreRecord) (Event, error) {
	decode, ok := decoders[rec.EventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type in stream %s: %s", rec.StreamID, rec.EventType)
	}
	e, err := decode(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", rec.EventType, err)
	}
	return e, nil
}

// Replay applies records to agg in order.
func Replay(agg Aggregate, records []EventStoreRecord) error {
	for _, rec := range records {
		e, err := DecodeEvent(rec)
		if err != nil {
			return err
		}
		if err := agg.ApplyEvent(e); err != nil {
			return fmt.Errorf("failed to apply event from stream: %w", err)
		}
	}
	return nil
}
