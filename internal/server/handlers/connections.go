package handlers

import (
	"net/http"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/internal/server/response"
	"github.com/agentstation/refdata/internal/sources"
)

// HandleListConnections handles GET /api/source/connections.
func (h *Handlers) HandleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.hub.ListConnections(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, conns)
}

// HandleGetConnection handles GET /api/source/connections/{id}.
func (h *Handlers) HandleGetConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	conn, err := h.hub.GetConnection(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, conn)
}

// HandleCreateConnection handles POST /api/source/connections.
func (h *Handlers) HandleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var in refdata.ConnectionCreate
	if !bind(w, r, &in) {
		return
	}
	conn, err := h.hub.CreateConnection(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, conn)
}

// HandleUpdateConnection handles PUT /api/source/connections/{id}.
func (h *Handlers) HandleUpdateConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in refdata.ConnectionUpdate
	if !bind(w, r, &in) {
		return
	}
	conn, err := h.hub.UpdateConnection(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, conn)
}

// HandleDeleteConnection handles DELETE /api/source/connections/{id}.
func (h *Handlers) HandleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.hub.DeleteConnection(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w)
}

// HandleTestConnectionSettings handles POST /api/source/connections/test.
// @Summary Test unsaved connection settings
// @Description Opens the database, pings it and runs SELECT 1
// @Tags source
// @Accept json
// @Produce json
// @Success 200 {object} sources.TestResult
// @Failure 400 {object} response.Error
// @Router /api/source/connections/test [post].
func (h *Handlers) HandleTestConnectionSettings(w http.ResponseWriter, r *http.Request) {
	var in refdata.ConnectionCreate
	if !bind(w, r, &in) {
		return
	}
	result, err := h.hub.TestConnectionSettings(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, result)
}

// HandleTestConnection handles POST /api/source/connections/{id}/test. The
// optional body overrides stored settings for this test only.
func (h *Handlers) HandleTestConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var overrides *sources.Overrides
	if !bind(w, r, &overrides) {
		return
	}
	result, err := h.hub.TestConnection(r.Context(), id, overrides)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, result)
}

// HandleListTables handles GET /api/source/connections/{id}/tables.
func (h *Handlers) HandleListTables(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tables, err := h.hub.ListTables(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, tables)
}

// HandleListFields handles GET /api/source/connections/{id}/tables/{table}/fields.
func (h *Handlers) HandleListFields(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fields, err := h.hub.ListFields(r.Context(), id, r.PathValue("table"), r.URL.Query().Get("schema"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, fields)
}
