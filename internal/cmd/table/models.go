// Package table converts hub records into rows for tabular CLI output.
package table

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/agentstation/refdata/internal/matcher"
	"github.com/agentstation/refdata/internal/storage"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data is a rendered table.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// CanonicalValues converts canonical values to table format. Wide output
// adds descriptions and attributes.
func CanonicalValues(values []storage.CanonicalValue, wide bool) Data {
	headers := []string{"ID", "Dimension", "Label"}
	align := []Align{AlignRight, AlignLeft, AlignLeft}
	if wide {
		headers = append(headers, "Description", "Attributes")
		align = append(align, AlignLeft, AlignLeft)
	}

	rows := make([][]string, 0, len(values))
	for _, v := range values {
		row := []string{strconv.FormatInt(v.ID, 10), v.Dimension, v.CanonicalLabel}
		if wide {
			row = append(row, Optional(v.Description), Attributes(v.Attributes))
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// Dimensions converts dimensions to table format.
func Dimensions(dims []storage.Dimension, wide bool) Data {
	headers := []string{"Code", "Label", "Fields"}
	if wide {
		headers = append(headers, "Description")
	}

	rows := make([][]string, 0, len(dims))
	for _, d := range dims {
		keys := make([]string, 0, len(d.ExtraFields))
		for _, f := range d.ExtraFields {
			key := f.Key + ":" + f.DataType
			if f.Required {
				key += "*"
			}
			keys = append(keys, key)
		}
		row := []string{d.Code, d.Label, Dash(strings.Join(keys, ", "))}
		if wide {
			row = append(row, Optional(d.Description))
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows}
}

// Connections converts source connections to table format. Passwords are
// never shown.
func Connections(conns []storage.SourceConnection, wide bool) Data {
	headers := []string{"ID", "Name", "Type", "Host", "Port", "Database"}
	align := []Align{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft}
	if wide {
		headers = append(headers, "Username", "Options")
		align = append(align, AlignLeft, AlignLeft)
	}

	rows := make([][]string, 0, len(conns))
	for _, c := range conns {
		row := []string{
			strconv.FormatInt(c.ID, 10), c.Name, c.DBType, Dash(c.Host), strconv.Itoa(c.Port), c.Database,
		}
		if wide {
			row = append(row, Dash(c.Username), Optional(c.Options))
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// ValueMappings converts expanded value mappings to table format.
func ValueMappings(mappings []storage.ExpandedValueMapping, wide bool) Data {
	headers := []string{"Conn", "Table", "Field", "Raw Value", "Canonical", "Status"}
	if wide {
		headers = append(headers, "Dimension", "Confidence", "Notes")
	}

	rows := make([][]string, 0, len(mappings))
	for _, m := range mappings {
		row := []string{
			strconv.FormatInt(m.SourceConnectionID, 10), m.SourceTable, m.SourceField,
			m.RawValue, m.CanonicalLabel, m.Status,
		}
		if wide {
			confidence := "-"
			if m.Confidence != nil {
				confidence = strconv.FormatFloat(*m.Confidence, 'f', 2, 64)
			}
			row = append(row, Dash(m.RefDimension), confidence, Optional(m.Notes))
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows}
}

// Matches converts ranked matches to table format.
func Matches(matches []matcher.Match) Data {
	rows := make([][]string, 0, len(matches))
	for i, m := range matches {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.CanonicalLabel,
			m.Dimension,
			strconv.FormatFloat(m.Score, 'f', 3, 64),
		})
	}
	return Data{
		Headers:         []string{"#", "Canonical", "Dimension", "Score"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignLeft, AlignRight},
	}
}

// Attributes renders an attribute map as sorted key=value pairs.
func Attributes(attrs map[string]any) string {
	if len(attrs) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(attrs))
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		v := attrs[k]
		if v == nil {
			v = "null"
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ", ")
}

// Optional renders a nullable string, with "-" for nil or empty.
func Optional(s *string) string {
	if s == nil {
		return "-"
	}
	return Dash(*s)
}

// Dash returns s, or "-" when s is blank.
func Dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
