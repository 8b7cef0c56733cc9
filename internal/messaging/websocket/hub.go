// Package websocket pushes published events to websocket clients. Each
// client subscribes to one topic with the topic query parameter.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxReadSize  = 512
	clientBuffer = 16
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the frame written to clients.
type Message struct {
	Topic string `json:"topic"`
	Key   string `json:"key"`
	Event any    `json:"event"`
}

type client struct {
	conn  *ws.Conn
	topic string
	send  chan []byte
	done  chan struct{}
	once  sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub is a messaging.Publisher that fans events out to connected clients.
// A slow client misses events rather than holding up the publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// ServeHTTP upgrades the request and subscribes the connection to the topic
// query parameter, the global order status stream by default.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = messaging.TopicOrderStatusGlobal
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "err", err)
		return
	}

	c := &client{
		conn:  conn,
		topic: topic,
		send:  make(chan []byte, clientBuffer),
		done:  make(chan struct{}),
	}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.wg.Add(2)
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// readPump only watches the connection; clients never send anything useful.
func (h *Hub) readPump(c *client) {
	defer h.wg.Done()
	defer h.unregister(c)

	c.conn.SetReadLimit(maxReadSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseGoingAway, ws.CloseAbnormalClosure) {
				slog.Warn("WebSocket read error", "topic", c.topic, "err", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer h.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) PublishEvent(_ context.Context, topic string, key string, event any) error {
	data, err := json.Marshal(Message{Topic: topic, Key: key, Event: event})
	if err != nil {
		return fmt.Errorf("%w: %w", messaging.ErrEncode, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.topic != topic {
			continue
		}
		select {
		case c.send <- data:
		default:
			slog.Warn("Dropping event for slow websocket client", "topic", topic, "key", key)
		}
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Relay feeds lifecycle events read from a broker topic into the hub, so a
// client sees transitions made by every instance. It blocks until ctx is done.
func (h *Hub) Relay(ctx context.Context, sub messaging.Subscriber, brokerTopic, groupID string) {
	sub.Consume(ctx, brokerTopic, groupID, func(ctx context.Context, key, payload []byte) error {
		orderID := string(key)
		if orderID == "" {
			var probe struct {
				OrderID string `json:"orderId"`
			}
			if err := json.Unmarshal(payload, &probe); err != nil {
				return fmt.Errorf("failed to decode lifecycle event: %w", err)
			}
			orderID = probe.OrderID
		}

		event := json.RawMessage(payload)
		if err := h.PublishEvent(ctx, messaging.TopicOrderStatusGlobal, orderID, event); err != nil {
			return err
		}
		return h.PublishEvent(ctx, messaging.OrderStatusTopic(orderID), orderID, event)
	})
}

// Close disconnects every client and waits for their goroutines.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	h.wg.Wait()
	return nil
}
