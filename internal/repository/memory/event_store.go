package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type eventStore struct {
	mu      sync.RWMutex
	streams map[string][]entity.EventStoreRecord
	now     func() time.Time
}

// NewEventStore creates an in-memory EventStore.
func NewEventStore() repository.EventStore {
	return &eventStore{
		streams: make(map[string][]entity.EventStoreRecord),
		now:     time.Now,
	}
}

func (s *eventStore) SaveEvents(_ context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Marshal outside the lock.
	records := make([]entity.EventStoreRecord, 0, len(events))
	now := s.now()
	for i, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}
		records = append(records, entity.EventStoreRecord{
			ID:         uuid.NewString(),
			StreamID:   streamID,
			StreamType: streamType,
			Version:    expectedVersion + i + 1,
			EventType:  event.EventType(),
			Payload:    payload,
			CreatedAt:  now,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	currentVersion := len(s.streams[streamID])
	if currentVersion != expectedVersion {
		return fmt.Errorf("%w: stream %s expected version %d, got %d",
			entity.ErrVersionConflict, streamID, expectedVersion, currentVersion)
	}
	s.streams[streamID] = append(s.streams[streamID], records...)
	return nil
}

func (s *eventStore) LoadEvents(_ context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.streams[streamID]), nil
}
