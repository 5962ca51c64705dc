package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/agentstation/refdata/internal/server/response"
)

// HandleStats handles GET /api/admin/stats.
// @Summary Server statistics
// @Description Runtime, table, event and cache statistics
// @Tags admin
// @Produce json
// @Success 200 {object} object
// @Failure 500 {object} response.Error
// @Security ApiKeyAuth
// @Router /api/admin/stats [get].
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	tables, err := h.hub.Store().TableCounts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response.OK(w, map[string]any{
		"runtime": map[string]any{
			"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
			"goroutines":     runtime.NumGoroutine(),
			"memory_mb":      memStats.Alloc / 1024 / 1024,
			"memory_sys_mb":  memStats.Sys / 1024 / 1024,
		},
		"tables": tables,
		"events": h.broker.Stats(),
		"realtime": map[string]any{
			"websocket_clients": h.wsHub.ClientCount(),
			"websocket_evicted": h.wsHub.Evicted(),
			"sse_clients":       h.sseBroadcaster.ClientCount(),
			"sse_skipped":       h.sseBroadcaster.Skipped(),
		},
		"cache": h.cache.GetStats(),
	})
}
