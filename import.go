package refdata

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/agentstation/refdata/internal/dimensions"
	"github.com/agentstation/refdata/internal/importer"
	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/errors"
	"github.com/agentstation/refdata/pkg/logging"
)

// Upload is a spreadsheet sent for import.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// CanonicalImport configures a bulk import of canonical values.
type CanonicalImport struct {
	Upload
	// Dimension is used for rows without a dimension cell when the mapping
	// names no default dimension.
	Dimension string
	Mapping   *importer.Mapping
}

// ImportResult lists the created values and the per-row failures.
type ImportResult struct {
	Created []storage.CanonicalValue `json:"created"`
	Errors  []string                 `json:"errors"`
}

// ImportCanonicalValues creates a canonical value for every data row of the
// upload. Row failures are collected and the import continues.
func (h *Hub) ImportCanonicalValues(ctx context.Context, in CanonicalImport) (ImportResult, error) {
	result := ImportResult{Created: []storage.CanonicalValue{}, Errors: []string{}}
	ctx = logging.WithOperation(logging.Attach(ctx, h.logger), "import_canonical")

	sheets, err := importer.ReadSheets(in.Filename, in.ContentType, in.Body)
	if err != nil {
		return result, err
	}
	table, err := importer.DetectTable(sheets, in.Mapping)
	if err != nil {
		return result, err
	}
	roles, err := importer.AssignRoles(table.Header, in.Mapping)
	if err != nil {
		return result, err
	}

	if in.Mapping != nil && in.Mapping.DimensionDefinition != nil {
		if err := h.ensureDimension(ctx, *in.Mapping.DimensionDefinition); err != nil {
			return result, err
		}
	}

	fallback, err := h.importFallbackDimension(ctx, in)
	if err != nil {
		return result, err
	}

	for _, rec := range table.Records(roles) {
		dimension := rec.Dimension
		if dimension == "" {
			dimension = fallback
		}
		value, err := h.createCanonical(ctx, CanonicalValueCreate{
			Dimension:      dimension,
			CanonicalLabel: rec.Label,
			Description:    rec.Description,
			Attributes:     rec.Attributes,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", rec.Row, errors.Message(err)))
			continue
		}
		result.Created = append(result.Created, value)
		h.hooks.trigger(CanonicalCreated, value)
	}

	logging.FromContext(ctx).Info().
		Str("sheet", table.Sheet).
		Int("created", len(result.Created)).
		Int("errors", len(result.Errors)).
		Msg("imported canonical values")
	return result, nil
}

// PreviewImport suggests a column mapping for an upload without importing it.
func (h *Hub) PreviewImport(ctx context.Context, upload Upload) (importer.Preview, error) {
	sheets, err := importer.ReadSheets(upload.Filename, upload.ContentType, upload.Body)
	if err != nil {
		return importer.Preview{}, err
	}
	table, err := importer.DetectTable(sheets, nil)
	if err != nil {
		return importer.Preview{}, err
	}
	known, err := h.store.ListDimensions(ctx)
	if err != nil {
		return importer.Preview{}, err
	}
	return importer.BuildPreview(table, upload.Filename, known), nil
}

// importFallbackDimension picks the dimension for rows without one: the
// mapping default, then the form dimension, then the configured default.
func (h *Hub) importFallbackDimension(ctx context.Context, in CanonicalImport) (string, error) {
	if in.Mapping != nil && in.Mapping.DefaultDimension != nil {
		if d := strings.TrimSpace(*in.Mapping.DefaultDimension); d != "" {
			return d, nil
		}
	}
	if d := strings.TrimSpace(in.Dimension); d != "" {
		return d, nil
	}
	cfg, err := h.GetConfig(ctx)
	if err != nil {
		return "", err
	}
	return cfg.DefaultDimension, nil
}

// ensureDimension creates the dimension described by def unless it exists.
func (h *Hub) ensureDimension(ctx context.Context, def importer.DimensionDefinition) error {
	code := strings.TrimSpace(def.Code)
	if code == "" {
		return errors.NewValidationError("dimension_definition.code", def.Code, "Dimension code is required.")
	}
	if _, err := h.store.GetDimension(ctx, code); err == nil {
		return nil
	} else if !errors.IsNotFound(err) {
		return err
	}

	label := strings.TrimSpace(def.Label)
	if label == "" {
		label = dimensions.HumanizeCode(code)
	}
	_, err := h.CreateDimension(ctx, DimensionCreate{
		Code:        code,
		Label:       label,
		Description: def.Description,
		ExtraFields: def.ExtraFields,
	})
	return err
}
