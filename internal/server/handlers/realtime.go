package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	ws "github.com/agentstation/refdata/internal/server/websocket"
)

// HandleWebSocket upgrades GET /api/updates/ws and streams every hub change
// as a JSON message. Origins outside the CORS list are refused.
// @Summary WebSocket updates
// @Description WebSocket connection for hub change events
// @Tags updates
// @Success 101 "Switching Protocols"
// @Router /api/updates/ws [get].
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.Debug().Err(err).Str("origin", r.Header.Get("Origin")).Msg("WebSocket upgrade refused")
		return
	}

	client := ws.NewClient(uuid.NewString(), h.wsHub, conn)
	if !h.wsHub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"))
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// HandleSSE streams hub changes as Server-Sent Events on
// GET /api/updates/stream.
// @Summary SSE updates stream
// @Description Server-Sent Events stream of hub change events
// @Tags updates
// @Produce text/event-stream
// @Success 200 "Event stream"
// @Router /api/updates/stream [get].
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sseBroadcaster.ServeHTTP(w, r)
}
