package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/refdata/internal/server/events"
	"github.com/agentstation/refdata/internal/server/sse"
	ws "github.com/agentstation/refdata/internal/server/websocket"
)

func TestBrokerToWebSocket(t *testing.T) {
	logger := zerolog.Nop()
	broker := events.NewBroker(&logger)
	hub := ws.NewHub(&logger)

	unsubscribe := broker.Subscribe(WebSocket(hub))
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go broker.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := ws.NewClient("test", hub, conn)
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.True(t, broker.Publish(events.ValueMappingCreated, map[string]any{"raw_value": "Maried"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg ws.Message
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "value_mapping.created", msg.Type)
	assert.EqualValues(t, 1, msg.Seq)
	assert.Equal(t, map[string]any{"raw_value": "Maried"}, msg.Data)
	assert.Zero(t, broker.Stats().Dropped)
}

func TestSubscribersNeverFail(t *testing.T) {
	logger := zerolog.Nop()
	hub := ws.NewHub(&logger)
	broadcaster := sse.NewBroadcaster(&logger)

	tests := []struct {
		name string
		sub  events.Subscriber
	}{
		{"websocket", WebSocket(hub)},
		{"sse", SSE(broadcaster)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, typ := range []events.EventType{events.CanonicalCreated, events.DimensionDeleted, events.ConfigUpdated} {
				assert.NoError(t, tt.sub.Send(events.Event{Seq: uint64(i + 1), Type: typ, Timestamp: time.Now()}))
			}
		})
	}
}
