// Package adapters turns realtime transports into event subscribers.
package adapters

import (
	"strconv"

	"github.com/agentstation/refdata/internal/server/events"
	"github.com/agentstation/refdata/internal/server/sse"
	ws "github.com/agentstation/refdata/internal/server/websocket"
)

// WebSocket forwards events to every client of hub.
func WebSocket(hub *ws.Hub) events.SubscriberFunc {
	return func(event events.Event) error {
		hub.Broadcast(ws.Message{
			Type:      string(event.Type),
			Seq:       event.Seq,
			Timestamp: event.Timestamp,
			Data:      event.Data,
		})
		return nil
	}
}

// SSE forwards events to every stream of b. The frame id is the event
// sequence number so clients can spot gaps.
func SSE(b *sse.Broadcaster) events.SubscriberFunc {
	return func(event events.Event) error {
		b.Broadcast(sse.Event{
			Name: string(event.Type),
			ID:   strconv.FormatUint(event.Seq, 10),
			Data: event.Data,
		})
		return nil
	}
}
