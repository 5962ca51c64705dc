package handlers

import (
	"net/http"

	"github.com/agentstation/refdata/internal/server/response"
)

// HandleHealth handles GET /health.
// @Summary Health check
// @Description Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} object
// @Router /health [get].
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// HandleReady handles GET /api/ready. It answers 503 until the hub
// database responds to a count of every table.
// @Summary Readiness check
// @Description Checks that the hub database answers queries
// @Tags health
// @Produce json
// @Success 200 {object} object
// @Failure 503 {object} response.Error
// @Router /api/ready [get].
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	counts, err := h.hub.Store().TableCounts(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Readiness check failed")
		response.ServiceUnavailable(w, "Database not available")
		return
	}

	response.OK(w, map[string]any{
		"status": "ready",
		"tables": len(counts),
	})
}
