package importer

import (
	"strings"

	"github.com/agentstation/refdata/internal/dimensions"
	"github.com/agentstation/refdata/internal/storage"
)

const maxSampleValues = 5

// PreviewColumn describes one uploaded column and the suggested mapping for it.
type PreviewColumn struct {
	Name                  string   `json:"name"`
	Sample                []string `json:"sample"`
	SuggestedRole         *string  `json:"suggested_role"`
	SuggestedAttributeKey *string  `json:"suggested_attribute_key"`
	SuggestedDimension    *string  `json:"suggested_dimension"`
}

// ProposedDimension is a dimension the upload could be imported into.
type ProposedDimension struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Preview summarizes an upload before import.
type Preview struct {
	Columns            []PreviewColumn    `json:"columns"`
	SuggestedDimension *string            `json:"suggested_dimension"`
	ProposedDimension  *ProposedDimension `json:"proposed_dimension"`
}

// roleWords are dropped from a label header when proposing a dimension.
var roleWords = set("label", "name", "canonical", "value", "values", "code")

// BuildPreview suggests a role for every column of t. Attribute columns are
// matched against the fields of the known dimensions.
func BuildPreview(t Table, filename string, known []storage.Dimension) Preview {
	dimensionCodes := make(map[string]struct{}, len(known))
	for _, d := range known {
		dimensionCodes[d.Code] = struct{}{}
	}

	preview := Preview{Columns: make([]PreviewColumn, 0, len(t.Header))}
	counts := map[string]int{}
	var order []string
	suggest := func(code string) {
		if _, seen := counts[code]; !seen {
			order = append(order, code)
		}
		counts[code]++
	}

	labelHeader := ""
	for i, header := range t.Header {
		if strings.TrimSpace(header) == "" {
			continue
		}
		col := PreviewColumn{Name: header, Sample: sampleValues(t.Rows, i)}
		role := RoleFor(header)
		col.SuggestedRole = &role

		switch role {
		case RoleLabel:
			if labelHeader == "" {
				labelHeader = header
			}
		case RoleDimension:
			for _, v := range col.Sample {
				if _, ok := dimensionCodes[v]; ok {
					code := v
					col.SuggestedDimension = &code
					suggest(code)
					break
				}
			}
		case RoleAttribute:
			key := dimensions.NormalizeKey(header)
			if dim, field, ok := matchField(key, known); ok {
				col.SuggestedAttributeKey = &field
				col.SuggestedDimension = &dim
				suggest(dim)
			} else if key != "" {
				col.SuggestedAttributeKey = &key
			}
		}
		preview.Columns = append(preview.Columns, col)
	}

	best := 0
	for _, code := range order {
		if counts[code] > best {
			best = counts[code]
			c := code
			preview.SuggestedDimension = &c
		}
	}
	preview.ProposedDimension = proposeDimension(labelHeader, filename)
	return preview
}

func sampleValues(rows [][]string, idx int) []string {
	sample := make([]string, 0, maxSampleValues)
	for _, row := range rows {
		if v := cell(row, idx); v != "" {
			sample = append(sample, v)
			if len(sample) == maxSampleValues {
				break
			}
		}
	}
	return sample
}

func matchField(key string, known []storage.Dimension) (string, string, bool) {
	if key == "" {
		return "", "", false
	}
	for _, d := range known {
		if field, ok := dimensions.SchemaLookup(d.ExtraFields)[key]; ok {
			return d.Code, field.Key, true
		}
	}
	return "", "", false
}

func proposeDimension(labelHeader, filename string) *ProposedDimension {
	var words []string
	for _, w := range strings.Fields(normalizeHeader(labelHeader)) {
		if _, drop := roleWords[w]; !drop {
			words = append(words, w)
		}
	}
	code := dimensions.NormalizeKey(strings.Join(words, " "))
	if code == "" {
		code = dimensions.NormalizeKey(stem(filename))
	}
	if code == "" {
		return nil
	}
	return &ProposedDimension{Code: code, Label: dimensions.HumanizeCode(code)}
}
