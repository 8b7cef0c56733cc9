package messaging

import (
	"context"
	"log/slog"
)

type logPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher logs events instead of sending them anywhere. It stands in
// for a broker when none is configured.
func NewLogPublisher(logger *slog.Logger) Publisher {
	return &logPublisher{logger: logger}
}

func (p *logPublisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	p.logger.InfoContext(ctx, "Event published", "topic", topic, "key", key, "event", event)
	return nil
}
