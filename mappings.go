package refdata

import (
	"context"
	"strings"

	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/errors"
)

// FieldMappingCreate is the payload for mapping a source field to a dimension.
type FieldMappingCreate struct {
	SourceTable  string  `json:"source_table"`
	SourceField  string  `json:"source_field"`
	RefDimension string  `json:"ref_dimension"`
	Description  *string `json:"description"`
}

// FieldMappingUpdate is a partial update. Nil fields are left unchanged.
type FieldMappingUpdate struct {
	SourceTable  *string `json:"source_table"`
	SourceField  *string `json:"source_field"`
	RefDimension *string `json:"ref_dimension"`
	Description  *string `json:"description"`
}

// SampleInput is one observed value. A missing count means one occurrence.
type SampleInput struct {
	RawValue        string  `json:"raw_value"`
	OccurrenceCount *int    `json:"occurrence_count"`
	Dimension       *string `json:"dimension"`
}

// SampleIngest is a batch of observed values of one source field.
type SampleIngest struct {
	SourceTable string        `json:"source_table"`
	SourceField string        `json:"source_field"`
	Values      []SampleInput `json:"values"`
}

// ListFieldMappings returns the mappings of a connection ordered by table
// then field.
func (h *Hub) ListFieldMappings(ctx context.Context, connectionID int64) ([]storage.FieldMapping, error) {
	if _, err := h.store.GetConnection(ctx, connectionID); err != nil {
		return nil, err
	}
	return h.store.ListFieldMappings(ctx, connectionID)
}

// CreateFieldMapping maps a source field of a connection to a dimension.
func (h *Hub) CreateFieldMapping(ctx context.Context, connectionID int64, in FieldMappingCreate) (storage.FieldMapping, error) {
	if _, err := h.store.GetConnection(ctx, connectionID); err != nil {
		return storage.FieldMapping{}, err
	}
	mapping := storage.FieldMapping{
		SourceConnectionID: connectionID,
		SourceTable:        strings.TrimSpace(in.SourceTable),
		SourceField:        strings.TrimSpace(in.SourceField),
		RefDimension:       strings.TrimSpace(in.RefDimension),
		Description:        trimmed(in.Description),
	}
	if err := validFieldMapping(mapping); err != nil {
		return storage.FieldMapping{}, err
	}
	if err := h.store.CreateFieldMapping(ctx, &mapping); err != nil {
		return storage.FieldMapping{}, err
	}
	return mapping, nil
}

// UpdateFieldMapping applies a partial update to a mapping of the connection.
func (h *Hub) UpdateFieldMapping(ctx context.Context, connectionID, id int64, in FieldMappingUpdate) (storage.FieldMapping, error) {
	mapping, err := h.store.GetFieldMapping(ctx, connectionID, id)
	if err != nil {
		return mapping, err
	}
	setString(&mapping.SourceTable, in.SourceTable)
	setString(&mapping.SourceField, in.SourceField)
	setString(&mapping.RefDimension, in.RefDimension)
	if in.Description != nil {
		mapping.Description = trimmed(in.Description)
	}
	if err := validFieldMapping(mapping); err != nil {
		return mapping, err
	}
	if err := h.store.UpdateFieldMapping(ctx, mapping); err != nil {
		return mapping, err
	}
	return h.store.GetFieldMapping(ctx, connectionID, id)
}

// DeleteFieldMapping removes a mapping of the connection.
func (h *Hub) DeleteFieldMapping(ctx context.Context, connectionID, id int64) error {
	return h.store.DeleteFieldMapping(ctx, connectionID, id)
}

func validFieldMapping(m storage.FieldMapping) error {
	switch {
	case m.SourceTable == "":
		return errors.NewValidationError("source_table", m.SourceTable, "Source table is required.")
	case m.SourceField == "":
		return errors.NewValidationError("source_field", m.SourceField, "Source field is required.")
	case m.RefDimension == "":
		return errors.NewValidationError("ref_dimension", m.RefDimension, "Reference dimension is required.")
	}
	return nil
}

// ListSamples returns the samples of a connection, optionally narrowed to a
// table and field.
func (h *Hub) ListSamples(ctx context.Context, connectionID int64, filter storage.SampleFilter) ([]storage.SourceSample, error) {
	if _, err := h.store.GetConnection(ctx, connectionID); err != nil {
		return nil, err
	}
	return h.store.ListSamples(ctx, connectionID, filter)
}

// IngestSamples records observed values. Counts of known values accumulate.
func (h *Hub) IngestSamples(ctx context.Context, connectionID int64, in SampleIngest) ([]storage.SourceSample, error) {
	if _, err := h.store.GetConnection(ctx, connectionID); err != nil {
		return nil, err
	}
	table := strings.TrimSpace(in.SourceTable)
	field := strings.TrimSpace(in.SourceField)
	if table == "" || field == "" {
		return nil, errors.Invalidf("Source table and field are required.")
	}
	values := make([]storage.SampleValue, 0, len(in.Values))
	for _, v := range in.Values {
		count := 1
		if v.OccurrenceCount != nil {
			count = *v.OccurrenceCount
		}
		if count < 0 {
			return nil, errors.NewValidationError("occurrence_count", count, "Occurrence count must not be negative.")
		}
		values = append(values, storage.SampleValue{
			RawValue:        v.RawValue,
			OccurrenceCount: count,
			Dimension:       trimmed(v.Dimension),
		})
	}
	return h.store.UpsertSamples(ctx, connectionID, table, field, values)
}
