package handlers

import (
	"net/http"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/internal/server/cache"
	"github.com/agentstation/refdata/internal/server/response"
)

// HandleListDimensions handles GET /api/reference/dimensions.
func (h *Handlers) HandleListDimensions(w http.ResponseWriter, r *http.Request) {
	generation := h.cache.Generation()
	if cached, found := h.cache.Get(cache.KeyDimensions); found {
		response.OK(w, cached)
		return
	}
	dims, err := h.hub.ListDimensions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.cache.Fill(cache.KeyDimensions, dims, generation)
	response.OK(w, dims)
}

// HandleGetDimension handles GET /api/reference/dimensions/{code}.
func (h *Handlers) HandleGetDimension(w http.ResponseWriter, r *http.Request) {
	dim, err := h.hub.GetDimension(r.Context(), r.PathValue("code"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, dim)
}

// HandleCreateDimension handles POST /api/reference/dimensions.
func (h *Handlers) HandleCreateDimension(w http.ResponseWriter, r *http.Request) {
	var in refdata.DimensionCreate
	if !bind(w, r, &in) {
		return
	}
	dim, err := h.hub.CreateDimension(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, dim)
}

// HandleUpdateDimension handles PUT /api/reference/dimensions/{code}.
func (h *Handlers) HandleUpdateDimension(w http.ResponseWriter, r *http.Request) {
	var in refdata.DimensionUpdate
	if !bind(w, r, &in) {
		return
	}
	dim, err := h.hub.UpdateDimension(r.Context(), r.PathValue("code"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, dim)
}

// HandleDeleteDimension handles DELETE /api/reference/dimensions/{code}.
func (h *Handlers) HandleDeleteDimension(w http.ResponseWriter, r *http.Request) {
	if err := h.hub.DeleteDimension(r.Context(), r.PathValue("code")); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w)
}

// HandleListRelations handles GET /api/reference/dimension-relations.
func (h *Handlers) HandleListRelations(w http.ResponseWriter, r *http.Request) {
	relations, err := h.hub.ListRelations(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, relations)
}

// HandleGetRelation handles GET /api/reference/dimension-relations/{id}.
func (h *Handlers) HandleGetRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	relation, err := h.hub.GetRelation(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, relation)
}

// HandleCreateRelation handles POST /api/reference/dimension-relations.
func (h *Handlers) HandleCreateRelation(w http.ResponseWriter, r *http.Request) {
	var in refdata.RelationCreate
	if !bind(w, r, &in) {
		return
	}
	relation, err := h.hub.CreateRelation(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, relation)
}

// HandleUpdateRelation handles PUT /api/reference/dimension-relations/{id}.
func (h *Handlers) HandleUpdateRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in refdata.RelationUpdate
	if !bind(w, r, &in) {
		return
	}
	relation, err := h.hub.UpdateRelation(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, relation)
}

// HandleDeleteRelation handles DELETE /api/reference/dimension-relations/{id}.
func (h *Handlers) HandleDeleteRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.hub.DeleteRelation(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w)
}

// HandleListRelationLinks handles GET /api/reference/dimension-relations/{id}/links.
func (h *Handlers) HandleListRelationLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	links, err := h.hub.ListRelationLinks(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, links)
}

// HandleCreateRelationLink handles POST /api/reference/dimension-relations/{id}/links.
func (h *Handlers) HandleCreateRelationLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in refdata.LinkCreate
	if !bind(w, r, &in) {
		return
	}
	link, err := h.hub.CreateRelationLink(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, link)
}

// HandleDeleteRelationLink handles DELETE /api/reference/dimension-relations/{id}/links/{link_id}.
func (h *Handlers) HandleDeleteRelationLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	linkID, ok := pathID(w, r, "link_id")
	if !ok {
		return
	}
	if err := h.hub.DeleteRelationLink(r.Context(), id, linkID); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w)
}
