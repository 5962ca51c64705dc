package websocket

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
)

func newHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	logger := zerolog.Nop()
	hub := NewHub(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, cancel
}

func TestHubBroadcastEncodesOnce(t *testing.T) {
	hub, _ := newHub(t)

	a, b := NewClient("a", hub, nil), NewClient("b", hub, nil)
	require.True(t, hub.Register(a))
	require.True(t, hub.Register(b))

	hub.Broadcast(Message{Type: "canonical.created", Seq: 4, Data: map[string]any{"id": 1}})

	pa, pb := <-a.send, <-b.send
	assert.Equal(t, pa, pb)

	var msg Message
	require.NoError(t, json.Unmarshal(pa, &msg))
	assert.Equal(t, "canonical.created", msg.Type)
	assert.EqualValues(t, 4, msg.Seq)
}

func TestHubUnregister(t *testing.T) {
	hub, _ := newHub(t)

	client := NewClient("c", hub, nil)
	hub.Register(client)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(client)
	hub.Unregister(client)
	assert.Zero(t, hub.ClientCount())

	_, open := <-client.send
	assert.False(t, open)
}

func TestHubStopRefusesClients(t *testing.T) {
	hub, cancel := newHub(t)

	first := NewClient("first", hub, nil)
	hub.Register(first)

	cancel()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-first.send
	assert.False(t, open)

	require.Eventually(t, func() bool { return !hub.Register(NewClient("late", hub, nil)) }, time.Second, 5*time.Millisecond)
}

func TestHubEvictsSlowClient(t *testing.T) {
	hub, _ := newHub(t)

	slow := NewClient("slow", hub, nil)
	hub.Register(slow)

	for range sendBuffer + 1 {
		hub.Broadcast(Message{Type: "value_mapping.created"})
	}
	assert.Zero(t, hub.ClientCount())
	assert.EqualValues(t, 1, hub.Evicted())
}

func TestHubBroadcastUnencodable(t *testing.T) {
	hub, _ := newHub(t)
	client := NewClient("c", hub, nil)
	hub.Register(client)

	hub.Broadcast(Message{Type: "bad", Data: make(chan int)})
	assert.Empty(t, client.send)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestClientPumps(t *testing.T) {
	hub, _ := newHub(t)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient("pump", hub, conn)
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	hub.Broadcast(Message{Type: "config.updated", Data: map[string]any{"top_k": 3}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "config.updated", msg.Type)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
