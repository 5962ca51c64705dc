package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/internal/importer"
	"github.com/agentstation/refdata/internal/server/cache"
	"github.com/agentstation/refdata/internal/server/filter"
	"github.com/agentstation/refdata/internal/server/response"
	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/errors"
)

// HandleListCanonical handles GET /api/reference/canonical.
// @Summary List canonical values
// @Description Canonical values ordered by dimension then label, optionally filtered
// @Tags reference
// @Produce json
// @Param dimension query string false "Dimension code"
// @Param label_contains query string false "Partial label match"
// @Param search query string false "Label or description substring"
// @Param limit query integer false "Maximum number of results"
// @Param offset query integer false "Result offset"
// @Success 200 {array} storage.CanonicalValue
// @Router /api/reference/canonical [get].
func (h *Handlers) HandleListCanonical(w http.ResponseWriter, r *http.Request) {
	var values []storage.CanonicalValue
	generation := h.cache.Generation()
	if cached, found := h.cache.Get(cache.KeyCanonicalValues); found {
		values = cached.([]storage.CanonicalValue)
	} else {
		var err error
		if values, err = h.hub.ListCanonicalValues(r.Context()); err != nil {
			h.fail(w, r, err)
			return
		}
		h.cache.Fill(cache.KeyCanonicalValues, values, generation)
	}

	if f := filter.ParseCanonicalFilter(r); !f.IsZero() {
		values = f.Apply(values)
	}
	response.OK(w, values)
}

// HandleCreateCanonical handles POST /api/reference/canonical.
func (h *Handlers) HandleCreateCanonical(w http.ResponseWriter, r *http.Request) {
	var in refdata.CanonicalValueCreate
	if !bind(w, r, &in) {
		return
	}
	value, err := h.hub.CreateCanonicalValue(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, value)
}

// HandleUpdateCanonical handles PUT /api/reference/canonical/{id}.
func (h *Handlers) HandleUpdateCanonical(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in refdata.CanonicalValueUpdate
	if !bind(w, r, &in) {
		return
	}
	value, err := h.hub.UpdateCanonicalValue(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, value)
}

// HandleDeleteCanonical handles DELETE /api/reference/canonical/{id}.
func (h *Handlers) HandleDeleteCanonical(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.hub.DeleteCanonicalValue(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w)
}

// HandlePropose handles POST /api/reference/propose.
// @Summary Propose canonical matches
// @Description Ranks canonical values for a raw value and records the proposal
// @Tags reference
// @Accept json
// @Produce json
// @Success 200 {object} refdata.MatchResponse
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /api/reference/propose [post].
func (h *Handlers) HandlePropose(w http.ResponseWriter, r *http.Request) {
	var in refdata.MatchRequest
	if !bind(w, r, &in) {
		return
	}
	result, err := h.hub.Propose(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, result)
}

// HandleImportCanonical handles POST /api/reference/canonical/import.
// @Summary Bulk import canonical values
// @Description Imports a CSV or XLSX upload. Row failures are reported, not fatal.
// @Tags reference
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or XLSX file"
// @Param dimension formData string false "Fallback dimension"
// @Param mapping formData string false "Column mapping JSON"
// @Success 201 {object} refdata.ImportResult
// @Failure 400 {object} response.Error
// @Router /api/reference/canonical/import [post].
func (h *Handlers) HandleImportCanonical(w http.ResponseWriter, r *http.Request) {
	up, closeFile, err := upload(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer closeFile()

	in := refdata.CanonicalImport{
		Upload:    up,
		Dimension: strings.TrimSpace(r.FormValue("dimension")),
	}
	if raw := strings.TrimSpace(r.FormValue("mapping")); raw != "" {
		var mapping importer.Mapping
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			h.fail(w, r, errors.Invalidf("Mapping must be a JSON object."))
			return
		}
		in.Mapping = &mapping
	}

	result, err := h.hub.ImportCanonicalValues(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, result)
}

// HandlePreviewImport handles POST /api/reference/canonical/import/preview.
func (h *Handlers) HandlePreviewImport(w http.ResponseWriter, r *http.Request) {
	up, closeFile, err := upload(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer closeFile()

	preview, err := h.hub.PreviewImport(r.Context(), up)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, preview)
}
