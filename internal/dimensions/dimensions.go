// Package dimensions validates dimension schemas and the typed attributes
// canonical values carry under them.
package dimensions

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/errors"
)

// Supported extra field data types.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeKey lowercases s and collapses every run of characters outside
// [a-z0-9] into a single underscore, trimming underscores at both ends.
func NormalizeKey(s string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_"), "_")
}

// HumanizeCode turns a dimension code such as "marital_status" into "Marital Status".
func HumanizeCode(code string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(code))
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// ValidateExtraFields checks a schema definition and returns a cleaned copy.
func ValidateExtraFields(fields []storage.ExtraField) ([]storage.ExtraField, error) {
	seen := make(map[string]struct{}, len(fields))
	validated := make([]storage.ExtraField, 0, len(fields))

	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			return nil, errors.NewValidationError("extra_fields", field.Key, "Dimension field keys cannot be empty.")
		}
		normalized := NormalizeKey(key)
		if normalized == "" {
			return nil, errors.NewValidationError("extra_fields", field.Key, fmt.Sprintf("Invalid dimension field key '%s'.", field.Key))
		}
		if _, dup := seen[normalized]; dup {
			return nil, errors.NewValidationError("extra_fields", field.Key, fmt.Sprintf("Duplicate dimension field key '%s'.", field.Key))
		}
		switch field.DataType {
		case TypeString, TypeNumber, TypeBoolean:
		default:
			return nil, errors.NewValidationError("extra_fields", field.DataType, fmt.Sprintf("Unsupported data type '%s'.", field.DataType))
		}
		seen[normalized] = struct{}{}

		label := strings.TrimSpace(field.Label)
		if label == "" {
			label = key
		}
		validated = append(validated, storage.ExtraField{
			Key:         key,
			Label:       label,
			Description: field.Description,
			DataType:    field.DataType,
			Required:    field.Required,
		})
	}
	return validated, nil
}

// SchemaLookup indexes fields by normalized key, then by normalized label
// where the label does not collide with a key.
func SchemaLookup(fields []storage.ExtraField) map[string]storage.ExtraField {
	lookup := make(map[string]storage.ExtraField, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		lookup[NormalizeKey(field.Key)] = field
	}
	for _, field := range fields {
		if field.Key == "" || field.Label == "" {
			continue
		}
		if _, taken := lookup[NormalizeKey(field.Label)]; !taken {
			lookup[NormalizeKey(field.Label)] = field
		}
	}
	return lookup
}

// ValidateAttributes checks attributes against a dimension schema. Without
// a schema, null values are dropped and everything else is kept. With a
// schema, unknown keys are dropped, values are coerced to the declared type
// and required fields must be present.
func ValidateAttributes(dimension storage.Dimension, attributes map[string]any) (map[string]any, error) {
	if len(dimension.ExtraFields) == 0 {
		cleaned := make(map[string]any, len(attributes))
		for k, v := range attributes {
			if v != nil {
				cleaned[k] = v
			}
		}
		return cleaned, nil
	}

	lookup := SchemaLookup(dimension.ExtraFields)
	cleaned := make(map[string]any, len(dimension.ExtraFields))
	for rawKey, rawValue := range attributes {
		field, ok := lookup[NormalizeKey(rawKey)]
		if !ok {
			continue
		}
		value, err := CoerceValue(rawValue, field.DataType)
		if err != nil {
			return nil, err
		}
		cleaned[field.Key] = value
	}

	for _, field := range dimension.ExtraFields {
		if field.Required && cleaned[field.Key] == nil {
			return nil, errors.NewValidationError(field.Key, nil, fmt.Sprintf("Missing required attribute '%s'.", field.Key))
		}
	}
	return cleaned, nil
}

// CoerceValue converts a raw attribute value to the given data type.
// Nil and blank strings coerce to nil.
func CoerceValue(value any, dataType string) (any, error) {
	if value == nil {
		return nil, nil
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}

	switch dataType {
	case TypeString:
		return strings.TrimSpace(stringify(value)), nil
	case TypeNumber:
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		case int:
			f = float64(v)
		case int64:
			f = float64(v)
		case bool:
			if v {
				f = 1
			}
		default:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(stringify(value)), 64)
			if err != nil {
				return nil, invalidNumber(value)
			}
			f = parsed
		}
		// JSON has no encoding for NaN or the infinities.
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, invalidNumber(value)
		}
		return f, nil
	case TypeBoolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
		switch strings.ToLower(strings.TrimSpace(stringify(value))) {
		case "true", "1", "yes", "y":
			return true, nil
		case "false", "0", "no", "n":
			return false, nil
		}
		return nil, errors.NewValidationError("attributes", value, fmt.Sprintf("Value '%s' is not a valid boolean.", stringify(value)))
	default:
		return value, nil
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func invalidNumber(value any) error {
	return errors.NewValidationError("attributes", value, fmt.Sprintf("Value '%s' is not a valid number.", stringify(value)))
}
