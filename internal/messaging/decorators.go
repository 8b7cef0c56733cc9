package messaging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hashicorp/go-multierror"
)

var (
	ErrQueueFull       = errors.New("publish queue full")
	ErrPublisherClosed = errors.New("publisher closed")
)

type fanOut []Publisher

// FanOut publishes every event to all pubs. Each publisher is tried even if
// an earlier one fails.
func FanOut(pubs ...Publisher) Publisher {
	return fanOut(pubs)
}

func (f fanOut) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	var result error
	for _, p := range f {
		if err := p.PublishEvent(ctx, topic, key, event); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

type retryPublisher struct {
	next       Publisher
	maxTries   uint
	newBackOff func() backoff.BackOff
}

// Retry retries failed publishes with exponential backoff, at most maxTries
// times in total. Encoding failures are not retried.
func Retry(next Publisher, maxTries uint) Publisher {
	return &retryPublisher{
		next:     next,
		maxTries: maxTries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

func (r *retryPublisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := r.next.PublishEvent(ctx, topic, key, event)
		if errors.Is(err, ErrEncode) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(r.newBackOff()), backoff.WithMaxTries(r.maxTries))
	return err
}

type envelope struct {
	ctx   context.Context
	topic string
	key   string
	event any
}

// AsyncPublisher hands events to a background worker. PublishEvent never
// waits for the broker.
type AsyncPublisher struct {
	next    Publisher
	timeout time.Duration
	queue   chan envelope
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsync starts the worker. Close must be called to stop it.
func NewAsync(next Publisher, buffer int) *AsyncPublisher {
	a := &AsyncPublisher{
		next:    next,
		timeout: 30 * time.Second,
		queue:   make(chan envelope, buffer),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// PublishEvent enqueues the event, or fails with ErrQueueFull without
// blocking when the worker is behind.
func (a *AsyncPublisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrPublisherClosed
	}

	select {
	case a.queue <- envelope{ctx: context.WithoutCancel(ctx), topic: topic, key: key, event: event}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *AsyncPublisher) run() {
	defer close(a.done)
	for env := range a.queue {
		ctx, cancel := context.WithTimeout(env.ctx, a.timeout)
		if err := a.next.PublishEvent(ctx, env.topic, env.key, env.event); err != nil {
			slog.Error("Failed to publish event", "topic", env.topic, "key", env.key, "err", err)
		}
		cancel()
	}
}

// Close stops accepting events and waits until the queued ones are published.
func (a *AsyncPublisher) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
	return nil
}
