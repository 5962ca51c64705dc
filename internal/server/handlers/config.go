package handlers

import (
	"net/http"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/internal/server/response"
)

// HandleGetConfig handles GET /api/config.
// @Summary System configuration
// @Description Matcher configuration. The API key is reported only as llm_api_key_set.
// @Tags config
// @Produce json
// @Success 200 {object} refdata.SystemConfigView
// @Router /api/config [get].
func (h *Handlers) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	view, err := h.hub.ConfigView(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, view)
}

// HandleUpdateConfig handles PUT /api/config.
func (h *Handlers) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var in refdata.SystemConfigUpdate
	if !bind(w, r, &in) {
		return
	}
	view, err := h.hub.UpdateConfig(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, view)
}
