package handlers

import (
	"net/http"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/internal/server/response"
	"github.com/agentstation/refdata/internal/storage"
)

// HandleListFieldMappings handles GET /api/source/connections/{id}/mappings.
func (h *Handlers) HandleListFieldMappings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	mappings, err := h.hub.ListFieldMappings(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, mappings)
}

// HandleCreateFieldMapping handles POST /api/source/connections/{id}/mappings.
func (h *Handlers) HandleCreateFieldMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in refdata.FieldMappingCreate
	if !bind(w, r, &in) {
		return
	}
	mapping, err := h.hub.CreateFieldMapping(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, mapping)
}

// HandleUpdateFieldMapping handles PUT /api/source/connections/{id}/mappings/{mapping_id}.
func (h *Handlers) HandleUpdateFieldMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	mappingID, ok := pathID(w, r, "mapping_id")
	if !ok {
		return
	}
	var in refdata.FieldMappingUpdate
	if !bind(w, r, &in) {
		return
	}
	mapping, err := h.hub.UpdateFieldMapping(r.Context(), id, mappingID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, mapping)
}

// HandleDeleteFieldMapping handles DELETE /api/source/connections/{id}/mappings/{mapping_id}.
func (h *Handlers) HandleDeleteFieldMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	mappingID, ok := pathID(w, r, "mapping_id")
	if !ok {
		return
	}
	if err := h.hub.DeleteFieldMapping(r.Context(), id, mappingID); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w)
}

// HandleListSamples handles GET /api/source/connections/{id}/samples.
func (h *Handlers) HandleListSamples(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	q := r.URL.Query()
	samples, err := h.hub.ListSamples(r.Context(), id, storage.SampleFilter{
		SourceTable: q.Get("source_table"),
		SourceField: q.Get("source_field"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, samples)
}

// HandleIngestSamples handles POST /api/source/connections/{id}/samples.
func (h *Handlers) HandleIngestSamples(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in refdata.SampleIngest
	if !bind(w, r, &in) {
		return
	}
	samples, err := h.hub.IngestSamples(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, samples)
}

// HandleMatchStats handles GET /api/source/connections/{id}/match-stats.
// @Summary Field match statistics
// @Description Per field mapping, how many sample occurrences resolve to a canonical value
// @Tags source
// @Produce json
// @Param id path integer true "Connection ID"
// @Success 200 {array} refdata.FieldMatchStats
// @Failure 404 {object} response.Error
// @Router /api/source/connections/{id}/match-stats [get].
func (h *Handlers) HandleMatchStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	stats, err := h.hub.MatchStats(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, stats)
}

// HandleUnmatched handles GET /api/source/connections/{id}/unmatched.
func (h *Handlers) HandleUnmatched(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	records, err := h.hub.Unmatched(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, records)
}
