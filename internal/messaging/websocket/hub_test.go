package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func dial(t *testing.T, srv *httptest.Server, topic string) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?topic=" + topic
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readMessage(t *testing.T, conn *ws.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_DeliversOnlySubscribedTopic(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	perOrder := dial(t, srv, messaging.OrderStatusTopic("o-1"))
	defer perOrder.Close()
	other := dial(t, srv, messaging.OrderStatusTopic("o-2"))
	defer other.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, hub.PublishEvent(ctx, messaging.OrderStatusTopic("o-1"), "o-1", map[string]string{"newStatus": "ACCEPTED"}))

	msg := readMessage(t, perOrder)
	assert.Equal(t, messaging.OrderStatusTopic("o-1"), msg.Topic)
	assert.Equal(t, "o-1", msg.Key)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv, messaging.TopicOrderStatusGlobal)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, hub.ClientCount())
}

type fakeSubscriber struct {
	key, payload []byte
}

func (f fakeSubscriber) Consume(ctx context.Context, _ string, _ string, handler func(ctx context.Context, key, payload []byte) error) {
	_ = handler(ctx, f.key, f.payload)
}

func TestHub_RelayFansOutToGlobalAndPerOrder(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	global := dial(t, srv, messaging.TopicOrderStatusGlobal)
	defer global.Close()
	perOrder := dial(t, srv, messaging.OrderStatusTopic("o-9"))
	defer perOrder.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	payload := []byte(`{"orderId":"o-9","previousStatus":"PENDING","newStatus":"ACCEPTED"}`)
	hub.Relay(context.Background(), fakeSubscriber{payload: payload}, "orders.status", "test")

	assert.Equal(t, "o-9", readMessage(t, global).Key)
	msg := readMessage(t, perOrder)
	event, ok := msg.Event.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ACCEPTED", event["newStatus"])
}
