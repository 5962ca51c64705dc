package refdata

import (
	"context"
	"strings"

	"github.com/agentstation/refdata/internal/dimensions"
	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/errors"
)

// DimensionCreate is the payload for creating a dimension.
type DimensionCreate struct {
	Code        string               `json:"code"`
	Label       string               `json:"label"`
	Description *string              `json:"description"`
	ExtraFields []storage.ExtraField `json:"extra_fields"`
}

// DimensionUpdate is a partial update. Nil fields are left unchanged.
type DimensionUpdate struct {
	Label       *string               `json:"label"`
	Description *string               `json:"description"`
	ExtraFields *[]storage.ExtraField `json:"extra_fields"`
}

// RelationCreate is the payload for creating a dimension relation.
type RelationCreate struct {
	Label               string  `json:"label"`
	ParentDimensionCode string  `json:"parent_dimension_code"`
	ChildDimensionCode  string  `json:"child_dimension_code"`
	Description         *string `json:"description"`
}

// RelationUpdate changes the label and description of a relation.
type RelationUpdate struct {
	Label       *string `json:"label"`
	Description *string `json:"description"`
}

// Relation is a relation with both of its dimensions expanded.
type Relation struct {
	storage.DimensionRelation
	ParentDimension storage.Dimension `json:"parent_dimension"`
	ChildDimension  storage.Dimension `json:"child_dimension"`
}

// LinkCreate pairs a parent canonical value with a child canonical value.
type LinkCreate struct {
	ParentCanonicalID int64 `json:"parent_canonical_id"`
	ChildCanonicalID  int64 `json:"child_canonical_id"`
}

// ListDimensions returns every dimension ordered by code.
func (h *Hub) ListDimensions(ctx context.Context) ([]storage.Dimension, error) {
	return h.store.ListDimensions(ctx)
}

// GetDimension returns one dimension by code.
func (h *Hub) GetDimension(ctx context.Context, code string) (storage.Dimension, error) {
	return h.store.GetDimension(ctx, strings.TrimSpace(code))
}

// CreateDimension validates the schema and persists a new dimension.
func (h *Hub) CreateDimension(ctx context.Context, in DimensionCreate) (storage.Dimension, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return storage.Dimension{}, errors.NewValidationError("code", in.Code, "Dimension code is required.")
	}
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return storage.Dimension{}, errors.NewValidationError("label", in.Label, "Dimension label is required.")
	}
	fields, err := dimensions.ValidateExtraFields(in.ExtraFields)
	if err != nil {
		return storage.Dimension{}, err
	}

	dimension := storage.Dimension{
		Code:        code,
		Label:       label,
		Description: trimmed(in.Description),
		ExtraFields: fields,
	}
	if err := h.store.CreateDimension(ctx, &dimension); err != nil {
		return storage.Dimension{}, err
	}
	h.hooks.trigger(DimensionCreated, dimension)
	return dimension, nil
}

// UpdateDimension applies a partial update to the dimension with code.
func (h *Hub) UpdateDimension(ctx context.Context, code string, in DimensionUpdate) (storage.Dimension, error) {
	dimension, err := h.store.GetDimension(ctx, strings.TrimSpace(code))
	if err != nil {
		return dimension, err
	}
	if in.Label != nil {
		label := strings.TrimSpace(*in.Label)
		if label == "" {
			return dimension, errors.NewValidationError("label", *in.Label, "Dimension label is required.")
		}
		dimension.Label = label
	}
	if in.Description != nil {
		dimension.Description = trimmed(in.Description)
	}
	if in.ExtraFields != nil {
		if dimension.ExtraFields, err = dimensions.ValidateExtraFields(*in.ExtraFields); err != nil {
			return dimension, err
		}
	}

	if err := h.store.UpdateDimension(ctx, dimension); err != nil {
		return dimension, err
	}
	if dimension, err = h.store.GetDimension(ctx, dimension.Code); err != nil {
		return dimension, err
	}
	h.hooks.trigger(DimensionUpdated, dimension)
	return dimension, nil
}

// DeleteDimension removes a dimension that has no canonical values and takes
// part in no relation.
func (h *Hub) DeleteDimension(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if _, err := h.store.GetDimension(ctx, code); err != nil {
		return err
	}
	values, err := h.store.CountCanonicalValues(ctx, code)
	if err != nil {
		return err
	}
	if values > 0 {
		return errors.Invalidf("Cannot delete a dimension that still has canonical values.")
	}
	relations, err := h.store.CountRelationsForDimension(ctx, code)
	if err != nil {
		return err
	}
	if relations > 0 {
		return errors.Invalidf("Cannot delete a dimension that participates in relations.")
	}

	if err := h.store.DeleteDimension(ctx, code); err != nil {
		return err
	}
	h.hooks.trigger(DimensionDeleted, map[string]string{"code": code})
	return nil
}

// ListRelations returns every relation with its dimensions expanded.
func (h *Hub) ListRelations(ctx context.Context) ([]Relation, error) {
	relations, err := h.store.ListRelations(ctx)
	if err != nil {
		return nil, err
	}
	all, err := h.store.ListDimensions(ctx)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]storage.Dimension, len(all))
	for _, d := range all {
		byCode[d.Code] = d
	}

	out := make([]Relation, 0, len(relations))
	for _, r := range relations {
		out = append(out, Relation{
			DimensionRelation: r,
			ParentDimension:   byCode[r.ParentDimensionCode],
			ChildDimension:    byCode[r.ChildDimensionCode],
		})
	}
	return out, nil
}

// GetRelation returns one relation with its dimensions expanded.
func (h *Hub) GetRelation(ctx context.Context, id int64) (Relation, error) {
	relation, err := h.store.GetRelation(ctx, id)
	if err != nil {
		return Relation{}, err
	}
	return h.expandRelation(ctx, relation)
}

func (h *Hub) expandRelation(ctx context.Context, relation storage.DimensionRelation) (Relation, error) {
	parent, err := h.store.GetDimension(ctx, relation.ParentDimensionCode)
	if err != nil {
		return Relation{}, err
	}
	child, err := h.store.GetDimension(ctx, relation.ChildDimensionCode)
	if err != nil {
		return Relation{}, err
	}
	return Relation{DimensionRelation: relation, ParentDimension: parent, ChildDimension: child}, nil
}

// CreateRelation links two existing dimensions.
func (h *Hub) CreateRelation(ctx context.Context, in RelationCreate) (Relation, error) {
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return Relation{}, errors.NewValidationError("label", in.Label, "Relation label is required.")
	}
	relation := storage.DimensionRelation{
		Label:               label,
		ParentDimensionCode: strings.TrimSpace(in.ParentDimensionCode),
		ChildDimensionCode:  strings.TrimSpace(in.ChildDimensionCode),
		Description:         trimmed(in.Description),
	}
	if _, err := h.store.GetDimension(ctx, relation.ParentDimensionCode); err != nil {
		return Relation{}, err
	}
	if _, err := h.store.GetDimension(ctx, relation.ChildDimensionCode); err != nil {
		return Relation{}, err
	}
	if err := h.store.CreateRelation(ctx, &relation); err != nil {
		return Relation{}, err
	}
	return h.expandRelation(ctx, relation)
}

// UpdateRelation changes the label and description of a relation.
func (h *Hub) UpdateRelation(ctx context.Context, id int64, in RelationUpdate) (Relation, error) {
	relation, err := h.store.GetRelation(ctx, id)
	if err != nil {
		return Relation{}, err
	}
	if in.Label != nil {
		label := strings.TrimSpace(*in.Label)
		if label == "" {
			return Relation{}, errors.NewValidationError("label", *in.Label, "Relation label is required.")
		}
		relation.Label = label
	}
	if in.Description != nil {
		relation.Description = trimmed(in.Description)
	}
	if err := h.store.UpdateRelation(ctx, relation); err != nil {
		return Relation{}, err
	}
	return h.GetRelation(ctx, id)
}

// DeleteRelation removes a relation with its links.
func (h *Hub) DeleteRelation(ctx context.Context, id int64) error {
	return h.store.DeleteRelation(ctx, id)
}

// ListRelationLinks returns the links of a relation.
func (h *Hub) ListRelationLinks(ctx context.Context, relationID int64) ([]storage.RelationLink, error) {
	if _, err := h.store.GetRelation(ctx, relationID); err != nil {
		return nil, err
	}
	return h.store.ListRelationLinks(ctx, relationID)
}

// CreateRelationLink links a parent canonical value to a child canonical
// value. Each must belong to its side of the relation.
func (h *Hub) CreateRelationLink(ctx context.Context, relationID int64, in LinkCreate) (storage.RelationLink, error) {
	relation, err := h.store.GetRelation(ctx, relationID)
	if err != nil {
		return storage.RelationLink{}, err
	}
	parent, err := h.canonicalIn(ctx, in.ParentCanonicalID, relation.ParentDimensionCode)
	if err != nil {
		return storage.RelationLink{}, err
	}
	child, err := h.canonicalIn(ctx, in.ChildCanonicalID, relation.ChildDimensionCode)
	if err != nil {
		return storage.RelationLink{}, err
	}

	link := storage.RelationLink{
		RelationID:        relationID,
		ParentCanonicalID: parent.ID,
		ChildCanonicalID:  child.ID,
	}
	if err := h.store.CreateRelationLink(ctx, &link); err != nil {
		return storage.RelationLink{}, err
	}
	link.ParentLabel = parent.CanonicalLabel
	link.ChildLabel = child.CanonicalLabel
	return link, nil
}

// DeleteRelationLink removes one link of a relation.
func (h *Hub) DeleteRelationLink(ctx context.Context, relationID, linkID int64) error {
	return h.store.DeleteRelationLink(ctx, relationID, linkID)
}

func (h *Hub) canonicalIn(ctx context.Context, id int64, dimension string) (storage.CanonicalValue, error) {
	value, err := h.store.GetCanonicalValue(ctx, id)
	if err != nil {
		return value, err
	}
	if value.Dimension != dimension {
		return value, errors.Invalidf("Canonical value %d does not belong to dimension '%s'.", id, dimension)
	}
	return value, nil
}
