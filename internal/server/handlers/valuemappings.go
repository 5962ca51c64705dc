package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/agentstation/utc"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/internal/importer"
	"github.com/agentstation/refdata/internal/server/response"
)

// HandleListValueMappings handles GET /api/source/connections/{id}/value-mappings.
func (h *Handlers) HandleListValueMappings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	mappings, err := h.hub.ListValueMappings(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, mappings)
}

// HandleCreateValueMapping handles POST /api/source/connections/{id}/value-mappings.
func (h *Handlers) HandleCreateValueMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in refdata.ValueMappingCreate
	if !bind(w, r, &in) {
		return
	}
	mapping, err := h.hub.CreateValueMapping(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, mapping)
}

// HandleUpdateValueMapping handles PUT /api/source/connections/{id}/value-mappings/{mapping_id}.
func (h *Handlers) HandleUpdateValueMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	mappingID, ok := pathID(w, r, "mapping_id")
	if !ok {
		return
	}
	var in refdata.ValueMappingUpdate
	if !bind(w, r, &in) {
		return
	}
	mapping, err := h.hub.UpdateValueMapping(r.Context(), id, mappingID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, mapping)
}

// HandleDeleteValueMapping handles DELETE /api/source/connections/{id}/value-mappings/{mapping_id}.
func (h *Handlers) HandleDeleteValueMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	mappingID, ok := pathID(w, r, "mapping_id")
	if !ok {
		return
	}
	if err := h.hub.DeleteValueMapping(r.Context(), id, mappingID); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w)
}

// HandleListAllValueMappings handles GET /api/source/value-mappings.
func (h *Handlers) HandleListAllValueMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.hub.ListAllValueMappings(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, mappings)
}

// HandleExportValueMappings handles GET /api/source/value-mappings/export.
// @Summary Export value mappings
// @Description Downloads value mappings as CSV or XLSX
// @Tags source
// @Produce text/csv
// @Param format query string false "csv or xlsx"
// @Param connection_id query integer false "Limit to one connection"
// @Success 200 {file} file
// @Failure 400 {object} response.Error
// @Router /api/source/value-mappings/export [get].
func (h *Handlers) HandleExportValueMappings(w http.ResponseWriter, r *http.Request) {
	format, err := importer.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	connectionID, err := queryID(r, "connection_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Buffer so a failure can still produce an error response.
	var buf bytes.Buffer
	if err := h.hub.ExportValueMappings(r.Context(), &buf, format, connectionID); err != nil {
		h.fail(w, r, err)
		return
	}

	filename := fmt.Sprintf("value_mappings_%s.%s", utc.Now().Format("20060102T150405Z"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// HandleImportValueMappings handles POST /api/source/value-mappings/import.
func (h *Handlers) HandleImportValueMappings(w http.ResponseWriter, r *http.Request) {
	connectionID, err := queryID(r, "connection_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	up, closeFile, err := upload(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer closeFile()

	result, err := h.hub.ImportValueMappings(r.Context(), refdata.ValueMappingImport{
		Upload:       up,
		ConnectionID: connectionID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, result)
}
