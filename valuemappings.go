package refdata

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agentstation/refdata/internal/importer"
	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/errors"
	"github.com/agentstation/refdata/pkg/logging"
)

// ValueMappingCreate is the payload for mapping a raw value to a canonical value.
type ValueMappingCreate struct {
	SourceTable    string   `json:"source_table"`
	SourceField    string   `json:"source_field"`
	RawValue       string   `json:"raw_value"`
	CanonicalID    int64    `json:"canonical_id"`
	Status         *string  `json:"status"`
	Confidence     *float64 `json:"confidence"`
	SuggestedLabel *string  `json:"suggested_label"`
	Notes          *string  `json:"notes"`
}

// ValueMappingUpdate is a partial update. Nil fields are left unchanged.
type ValueMappingUpdate struct {
	SourceTable    *string  `json:"source_table"`
	SourceField    *string  `json:"source_field"`
	RawValue       *string  `json:"raw_value"`
	CanonicalID    *int64   `json:"canonical_id"`
	Status         *string  `json:"status"`
	Confidence     *float64 `json:"confidence"`
	SuggestedLabel *string  `json:"suggested_label"`
	Notes          *string  `json:"notes"`
}

// ValueMappingImport is an upload of value mappings. ConnectionID applies to
// rows without a source_connection_id column value.
type ValueMappingImport struct {
	Upload
	ConnectionID int64
}

// ValueMappingImportResult counts the upserted rows and lists row failures.
type ValueMappingImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

func validConfidence(c *float64) error {
	if c != nil && (*c < 0 || *c > 1) {
		return errors.NewValidationError("confidence", *c, "Confidence must be between 0 and 1.")
	}
	return nil
}

// ListValueMappings returns the expanded value mappings of a connection.
func (h *Hub) ListValueMappings(ctx context.Context, connectionID int64) ([]storage.ExpandedValueMapping, error) {
	if _, err := h.store.GetConnection(ctx, connectionID); err != nil {
		return nil, err
	}
	return h.store.ListValueMappings(ctx, storage.ValueMappingFilter{ConnectionID: connectionID})
}

// ListAllValueMappings returns the expanded value mappings of every connection.
func (h *Hub) ListAllValueMappings(ctx context.Context) ([]storage.ExpandedValueMapping, error) {
	return h.store.ListValueMappings(ctx, storage.ValueMappingFilter{})
}

// CreateValueMapping maps a raw value of a connection to a canonical value.
func (h *Hub) CreateValueMapping(ctx context.Context, connectionID int64, in ValueMappingCreate) (storage.ValueMapping, error) {
	if _, err := h.store.GetConnection(ctx, connectionID); err != nil {
		return storage.ValueMapping{}, err
	}
	if _, err := h.store.GetCanonicalValue(ctx, in.CanonicalID); err != nil {
		return storage.ValueMapping{}, err
	}
	if err := validConfidence(in.Confidence); err != nil {
		return storage.ValueMapping{}, err
	}

	mapping := storage.ValueMapping{
		SourceConnectionID: connectionID,
		SourceTable:        strings.TrimSpace(in.SourceTable),
		SourceField:        strings.TrimSpace(in.SourceField),
		RawValue:           in.RawValue,
		CanonicalID:        in.CanonicalID,
		Status:             statusOrDefault(in.Status),
		Confidence:         in.Confidence,
		SuggestedLabel:     trimmed(in.SuggestedLabel),
		Notes:              trimmed(in.Notes),
	}
	if err := h.store.CreateValueMapping(ctx, &mapping); err != nil {
		return storage.ValueMapping{}, err
	}
	h.hooks.trigger(ValueMappingCreated, mapping)
	return mapping, nil
}

// UpdateValueMapping applies a partial update to a value mapping of the
// connection.
func (h *Hub) UpdateValueMapping(ctx context.Context, connectionID, id int64, in ValueMappingUpdate) (storage.ValueMapping, error) {
	mapping, err := h.store.GetValueMapping(ctx, connectionID, id)
	if err != nil {
		return mapping, err
	}
	if in.CanonicalID != nil {
		if _, err := h.store.GetCanonicalValue(ctx, *in.CanonicalID); err != nil {
			return mapping, err
		}
		mapping.CanonicalID = *in.CanonicalID
	}
	if err := validConfidence(in.Confidence); err != nil {
		return mapping, err
	}
	setString(&mapping.SourceTable, in.SourceTable)
	setString(&mapping.SourceField, in.SourceField)
	if in.RawValue != nil {
		mapping.RawValue = *in.RawValue
	}
	if in.Status != nil {
		mapping.Status = statusOrDefault(in.Status)
	}
	if in.Confidence != nil {
		mapping.Confidence = in.Confidence
	}
	if in.SuggestedLabel != nil {
		mapping.SuggestedLabel = trimmed(in.SuggestedLabel)
	}
	if in.Notes != nil {
		mapping.Notes = trimmed(in.Notes)
	}

	if err := h.store.UpdateValueMapping(ctx, mapping); err != nil {
		return mapping, err
	}
	if mapping, err = h.store.GetValueMapping(ctx, connectionID, id); err != nil {
		return mapping, err
	}
	h.hooks.trigger(ValueMappingUpdated, mapping)
	return mapping, nil
}

// DeleteValueMapping removes a value mapping of the connection.
func (h *Hub) DeleteValueMapping(ctx context.Context, connectionID, id int64) error {
	if err := h.store.DeleteValueMapping(ctx, connectionID, id); err != nil {
		return err
	}
	h.hooks.trigger(ValueMappingDeleted, map[string]int64{"id": id, "source_connection_id": connectionID})
	return nil
}

// ExportValueMappings writes the value mappings of one connection, or of
// every connection when connectionID is zero, to w.
func (h *Hub) ExportValueMappings(ctx context.Context, w io.Writer, format importer.Format, connectionID int64) error {
	if connectionID != 0 {
		if _, err := h.store.GetConnection(ctx, connectionID); err != nil {
			return err
		}
	}
	mappings, err := h.store.ListValueMappings(ctx, storage.ValueMappingFilter{ConnectionID: connectionID})
	if err != nil {
		return err
	}
	return importer.WriteValueMappings(w, format, mappings)
}

// ImportValueMappings upserts value mappings from an upload keyed by
// connection, table, field and raw value.
func (h *Hub) ImportValueMappings(ctx context.Context, in ValueMappingImport) (ValueMappingImportResult, error) {
	result := ValueMappingImportResult{Errors: []string{}}
	ctx = logging.WithOperation(logging.Attach(ctx, h.logger), "import_value_mappings")

	sheets, err := importer.ReadSheets(in.Filename, in.ContentType, in.Body)
	if err != nil {
		return result, err
	}
	rows, err := importer.ReadValueMappingRows(sheets)
	if err != nil {
		return result, err
	}

	known := map[int64]bool{}
	for _, row := range rows {
		created, err := h.importValueMappingRow(ctx, row, in.ConnectionID, known)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", row.Row, errors.Message(err)))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	logging.FromContext(ctx).Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("errors", len(result.Errors)).
		Msg("imported value mappings")
	return result, nil
}

// importValueMappingRow upserts one row and reports whether it was created.
func (h *Hub) importValueMappingRow(ctx context.Context, row importer.ValueMappingRow, fallbackConnection int64, known map[int64]bool) (bool, error) {
	connectionID := fallbackConnection
	if raw := row.Get("source_connection_id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return false, errors.Invalidf("Invalid source_connection_id '%s'.", raw)
		}
		connectionID = id
	}
	if connectionID == 0 {
		return false, errors.Invalidf("Missing source_connection_id.")
	}
	if !known[connectionID] {
		if _, err := h.store.GetConnection(ctx, connectionID); err != nil {
			return false, err
		}
		known[connectionID] = true
	}

	table, field := row.Get("source_table"), row.Get("source_field")
	rawValue := row.Values["raw_value"]
	if table == "" || field == "" || strings.TrimSpace(rawValue) == "" {
		return false, errors.Invalidf("source_table, source_field and raw_value are required.")
	}

	canonicalRaw := row.Get("canonical_id")
	canonicalID, err := parseID(canonicalRaw)
	if err != nil {
		return false, errors.Invalidf("Invalid canonical_id '%s'.", canonicalRaw)
	}
	if _, err := h.store.GetCanonicalValue(ctx, canonicalID); err != nil {
		return false, err
	}

	var confidence *float64
	if raw := row.Get("confidence"); raw != "" {
		c, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return false, errors.Invalidf("Invalid confidence '%s'.", raw)
		}
		confidence = &c
		if err := validConfidence(confidence); err != nil {
			return false, err
		}
	}
	status := row.Get("status")

	existing, err := h.store.FindValueMapping(ctx, storage.ValueMappingKey{
		ConnectionID: connectionID,
		SourceTable:  table,
		SourceField:  field,
		RawValue:     rawValue,
	})
	switch {
	case err == nil:
		existing.CanonicalID = canonicalID
		existing.Confidence = confidence
		existing.SuggestedLabel = optional(row.Get("suggested_label"))
		existing.Notes = optional(row.Get("notes"))
		if status != "" {
			existing.Status = status
		}
		if err := h.store.UpdateValueMapping(ctx, existing); err != nil {
			return false, err
		}
		h.hooks.trigger(ValueMappingUpdated, existing)
		return false, nil
	case errors.IsNotFound(err):
		mapping := storage.ValueMapping{
			SourceConnectionID: connectionID,
			SourceTable:        table,
			SourceField:        field,
			RawValue:           rawValue,
			CanonicalID:        canonicalID,
			Status:             statusOrDefault(&status),
			Confidence:         confidence,
			SuggestedLabel:     optional(row.Get("suggested_label")),
			Notes:              optional(row.Get("notes")),
		}
		if err := h.store.CreateValueMapping(ctx, &mapping); err != nil {
			return false, err
		}
		h.hooks.trigger(ValueMappingCreated, mapping)
		return true, nil
	default:
		return false, err
	}
}

// parseID accepts integer ids, including the "7.0" form spreadsheets produce.
func parseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return int64(f), nil
}

func statusOrDefault(status *string) string {
	if status == nil || strings.TrimSpace(*status) == "" {
		return storage.DefaultValueMappingStatus
	}
	return strings.TrimSpace(*status)
}
