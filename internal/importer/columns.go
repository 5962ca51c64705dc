package importer

import (
	"strings"

	"github.com/agentstation/refdata/internal/dimensions"
	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/errors"
)

// Column roles.
const (
	RoleLabel       = "label"
	RoleDimension   = "dimension"
	RoleDescription = "description"
	RoleAttribute   = "attribute"
)

// ErrNoHeader is reported when no sheet has a usable header row.
var ErrNoHeader = errors.Invalidf("Could not detect a header row with a label column.")

var (
	dimensionHeaders   = set("dimension", "dimension code", "dimension name", "dimension label")
	labelHeaders       = set("label", "canonical label", "canonical value", "canonical", "value", "name", "canonical name")
	descriptionHeaders = set("description", "long description", "desc", "details", "definition")
)

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, item := range items {
		m[item] = struct{}{}
	}
	return m
}

// normalizeHeader lowercases a header and folds separators to single spaces.
func normalizeHeader(header string) string {
	h := strings.NewReplacer("_", " ", "-", " ").Replace(strings.ToLower(header))
	return strings.Join(strings.Fields(h), " ")
}

// RoleFor suggests the role of a column from its header.
func RoleFor(header string) string {
	h := normalizeHeader(header)
	if h == "" {
		return ""
	}
	if _, ok := dimensionHeaders[h]; ok {
		return RoleDimension
	}
	if _, ok := descriptionHeaders[h]; ok {
		return RoleDescription
	}
	if _, ok := labelHeaders[h]; ok {
		return RoleLabel
	}
	if strings.HasSuffix(h, " label") || strings.HasSuffix(h, " name") {
		return RoleLabel
	}
	return RoleAttribute
}

// Mapping overrides automatic column detection. Column names are matched
// case-insensitively.
type Mapping struct {
	Label               *string              `json:"label"`
	Dimension           *string              `json:"dimension"`
	Description         *string              `json:"description"`
	Attributes          map[string]string    `json:"attributes"`
	DefaultDimension    *string              `json:"default_dimension"`
	DimensionDefinition *DimensionDefinition `json:"dimension_definition"`
}

// DimensionDefinition describes a dimension to create before importing.
type DimensionDefinition struct {
	Code        string               `json:"code"`
	Label       string               `json:"label"`
	Description *string              `json:"description"`
	ExtraFields []storage.ExtraField `json:"extra_fields"`
}

// Roles maps column indexes to their roles. Missing columns are -1.
type Roles struct {
	Label       int
	Dimension   int
	Description int
	Attributes  map[string]int
}

func findColumn(header []string, name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i
		}
	}
	return -1
}

// AssignRoles decides the role of every header column. A mapping replaces
// detection for each column it names.
func AssignRoles(header []string, mapping *Mapping) (Roles, error) {
	roles := Roles{Label: -1, Dimension: -1, Description: -1, Attributes: map[string]int{}}
	for i, h := range header {
		switch RoleFor(h) {
		case RoleDimension:
			if roles.Dimension < 0 {
				roles.Dimension = i
				continue
			}
		case RoleDescription:
			if roles.Description < 0 {
				roles.Description = i
				continue
			}
		case RoleLabel:
			if roles.Label < 0 {
				roles.Label = i
				continue
			}
		case "":
			continue
		}
		if key := dimensions.NormalizeKey(h); key != "" {
			if _, taken := roles.Attributes[key]; !taken {
				roles.Attributes[key] = i
			}
		}
	}

	if mapping == nil {
		return roles, nil
	}

	override := func(name *string, target *int) error {
		if name == nil || strings.TrimSpace(*name) == "" {
			return nil
		}
		idx := findColumn(header, *name)
		if idx < 0 {
			return errors.Invalidf("Column '%s' not found in upload.", *name)
		}
		*target = idx
		return nil
	}
	if err := override(mapping.Label, &roles.Label); err != nil {
		return roles, err
	}
	if err := override(mapping.Dimension, &roles.Dimension); err != nil {
		return roles, err
	}
	if err := override(mapping.Description, &roles.Description); err != nil {
		return roles, err
	}

	if len(mapping.Attributes) > 0 {
		roles.Attributes = make(map[string]int, len(mapping.Attributes))
		for key, column := range mapping.Attributes {
			idx := findColumn(header, column)
			if idx < 0 {
				return roles, errors.Invalidf("Column '%s' not found in upload.", column)
			}
			roles.Attributes[key] = idx
		}
		return roles, nil
	}

	for key, idx := range roles.Attributes {
		if idx == roles.Label || idx == roles.Dimension || idx == roles.Description {
			delete(roles.Attributes, key)
		}
	}
	return roles, nil
}

// Table is the part of a sheet below its detected header.
type Table struct {
	Sheet     string
	Header    []string
	HeaderRow int
	Rows      [][]string
}

// DetectTable returns the first sheet region whose header row holds a label
// column and is followed by at least one data row. With a mapping label the
// label column is the named one.
func DetectTable(sheets []Sheet, mapping *Mapping) (Table, error) {
	for _, sheet := range sheets {
		for i, row := range sheet.Rows {
			if !hasLabelColumn(row, mapping) {
				continue
			}
			if !hasDataBelow(sheet.Rows[i+1:]) {
				continue
			}
			return Table{Sheet: sheet.Name, Header: row, HeaderRow: i + 1, Rows: sheet.Rows[i+1:]}, nil
		}
	}
	return Table{}, ErrNoHeader
}

func hasLabelColumn(row []string, mapping *Mapping) bool {
	if mapping != nil && mapping.Label != nil && strings.TrimSpace(*mapping.Label) != "" {
		return findColumn(row, *mapping.Label) >= 0
	}
	for _, h := range row {
		if RoleFor(h) == RoleLabel {
			return true
		}
	}
	return false
}

func hasDataBelow(rows [][]string) bool {
	for _, row := range rows {
		if !blank(row) {
			return true
		}
	}
	return false
}

// Record is one data row resolved through the column roles.
type Record struct {
	Row         int
	Dimension   string
	Label       string
	Description *string
	Attributes  map[string]any
}

// Records resolves every non-blank data row. Blank cells are omitted from
// the attributes.
func (t Table) Records(roles Roles) []Record {
	records := make([]Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		if blank(row) {
			continue
		}
		rec := Record{
			Row:        t.HeaderRow + i + 1,
			Dimension:  cell(row, roles.Dimension),
			Label:      cell(row, roles.Label),
			Attributes: map[string]any{},
		}
		if desc := cell(row, roles.Description); desc != "" {
			rec.Description = &desc
		}
		for key, idx := range roles.Attributes {
			if value := cell(row, idx); value != "" {
				rec.Attributes[key] = value
			}
		}
		records = append(records, rec)
	}
	return records
}
