package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/errors"
)

const valueMappingSheet = "value_mappings"

// ValueMappingColumns is the column order of value mapping exports.
var ValueMappingColumns = []string{
	"source_connection_id",
	"source_table",
	"source_field",
	"raw_value",
	"canonical_id",
	"canonical_label",
	"ref_dimension",
	"status",
	"confidence",
	"suggested_label",
	"notes",
}

// ParseFormat validates an export format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", errors.Invalidf("Unsupported export format '%s'", name)
	}
}

// ContentType returns the MIME type written for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}

func exportRow(m storage.ExpandedValueMapping) []any {
	var confidence any = ""
	if m.Confidence != nil {
		confidence = *m.Confidence
	}
	return []any{
		m.SourceConnectionID,
		m.SourceTable,
		m.SourceField,
		m.RawValue,
		m.CanonicalID,
		m.CanonicalLabel,
		m.RefDimension,
		m.Status,
		confidence,
		deref(m.SuggestedLabel),
		deref(m.Notes),
	}
}

// WriteValueMappings writes mappings to w in the given format.
func WriteValueMappings(w io.Writer, format Format, mappings []storage.ExpandedValueMapping) error {
	if format == FormatXLSX {
		return writeValueMappingsXLSX(w, mappings)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ValueMappingColumns); err != nil {
		return errors.WrapIO("write", "csv", err)
	}
	for _, m := range mappings {
		values := exportRow(m)
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = formatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return errors.WrapIO("write", "csv", err)
		}
	}
	cw.Flush()
	return errors.WrapIO("write", "csv", cw.Error())
}

func writeValueMappingsXLSX(w io.Writer, mappings []storage.ExpandedValueMapping) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), valueMappingSheet); err != nil {
		return errors.WrapIO("write", "xlsx", err)
	}

	header := make([]any, len(ValueMappingColumns))
	for i, c := range ValueMappingColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(valueMappingSheet, "A1", &header); err != nil {
		return errors.WrapIO("write", "xlsx", err)
	}
	for i, m := range mappings {
		row := exportRow(m)
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.WrapIO("write", "xlsx", err)
		}
		if err := f.SetSheetRow(valueMappingSheet, axis, &row); err != nil {
			return errors.WrapIO("write", "xlsx", err)
		}
	}

	_, err := f.WriteTo(w)
	return errors.WrapIO("write", "xlsx", err)
}

func formatCell(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// ValueMappingRow is one data row of a value mapping upload, keyed by
// lowercased column name.
type ValueMappingRow struct {
	Row    int
	Values map[string]string
}

// Get returns the trimmed value of a column.
func (r ValueMappingRow) Get(column string) string {
	return strings.TrimSpace(r.Values[column])
}

// ReadValueMappingRows reads the first sheet region whose header has a
// raw_value column.
func ReadValueMappingRows(sheets []Sheet) ([]ValueMappingRow, error) {
	for _, sheet := range sheets {
		for i, header := range sheet.Rows {
			if findColumn(header, "raw_value") < 0 {
				continue
			}
			columns := make([]string, len(header))
			for j, h := range header {
				columns[j] = strings.ToLower(strings.TrimSpace(h))
			}

			var rows []ValueMappingRow
			for j, row := range sheet.Rows[i+1:] {
				if blank(row) {
					continue
				}
				values := make(map[string]string, len(columns))
				for k, name := range columns {
					if name != "" {
						values[name] = cell(row, k)
					}
				}
				rows = append(rows, ValueMappingRow{Row: i + j + 2, Values: values})
			}
			return rows, nil
		}
	}
	return nil, errors.Invalidf("Could not find a header row with a raw_value column.")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
