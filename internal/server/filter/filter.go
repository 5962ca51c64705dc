// Package filter parses query parameters that narrow reference listings.
package filter

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/agentstation/refdata/internal/storage"
)

// MaxLimit caps the page size of a listing.
const MaxLimit = 1000

// CanonicalFilter narrows a canonical value listing. Zero values match
// everything.
type CanonicalFilter struct {
	Dimension     string
	Label         string
	LabelContains string
	Search        string
	Attribute     string
	AttributeEq   string

	Limit  int
	Offset int
}

// ParseCanonicalFilter extracts canonical filter parameters from the request.
//
// Supported parameters: dimension, label (case-insensitive exact),
// label_contains, search (label or description substring), attribute
// (key=value), limit and offset.
func ParseCanonicalFilter(r *http.Request) CanonicalFilter {
	q := r.URL.Query()

	f := CanonicalFilter{
		Dimension:     strings.TrimSpace(q.Get("dimension")),
		Label:         strings.TrimSpace(q.Get("label")),
		LabelContains: strings.TrimSpace(q.Get("label_contains")),
		Search:        strings.TrimSpace(q.Get("search")),
		Limit:         parseIntOrDefault(q.Get("limit"), 0),
		Offset:        parseIntOrDefault(q.Get("offset"), 0),
	}
	if attr := q.Get("attribute"); attr != "" {
		key, value, _ := strings.Cut(attr, "=")
		f.Attribute = strings.TrimSpace(key)
		f.AttributeEq = strings.TrimSpace(value)
	}
	if f.Limit < 0 {
		f.Limit = 0
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// IsZero reports whether the filter leaves a listing unchanged.
func (f CanonicalFilter) IsZero() bool {
	return f == CanonicalFilter{}
}

// Apply returns the values matching the filter, paginated. The input order
// is kept.
func (f CanonicalFilter) Apply(values []storage.CanonicalValue) []storage.CanonicalValue {
	out := make([]storage.CanonicalValue, 0, len(values))
	for _, v := range values {
		if f.matches(v) {
			out = append(out, v)
		}
	}

	if f.Offset >= len(out) {
		return []storage.CanonicalValue{}
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}

func (f CanonicalFilter) matches(v storage.CanonicalValue) bool {
	if f.Dimension != "" && v.Dimension != f.Dimension {
		return false
	}
	if f.Label != "" && !strings.EqualFold(v.CanonicalLabel, f.Label) {
		return false
	}
	if f.LabelContains != "" &&
		!strings.Contains(strings.ToLower(v.CanonicalLabel), strings.ToLower(f.LabelContains)) {
		return false
	}
	if f.Search != "" && !containsFold(v.CanonicalLabel, f.Search) &&
		(v.Description == nil || !containsFold(*v.Description, f.Search)) {
		return false
	}
	if f.Attribute != "" {
		value, ok := v.Attributes[f.Attribute]
		if !ok || value == nil {
			return false
		}
		if f.AttributeEq != "" && !strings.EqualFold(attributeString(value), f.AttributeEq) {
			return false
		}
	}
	return true
}

// attributeString renders an attribute value the way it would appear in a
// query string.
func attributeString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func parseIntOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
