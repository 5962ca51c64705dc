// Package storage defines the records persisted by the hub and the store
// contracts the domain layer depends on.
package storage

import "time"

// CanonicalValue is a standardized reference record within a dimension.
type CanonicalValue struct {
	ID             int64          `json:"id"`
	Dimension      string         `json:"dimension"`
	CanonicalLabel string         `json:"canonical_label"`
	Description    *string        `json:"description"`
	Attributes     map[string]any `json:"attributes"`
	CreatedAt      time.Time      `json:"created_at"`
}

// RawValue records a raw input that was sent through the matcher.
type RawValue struct {
	ID                  int64     `json:"id"`
	Dimension           string    `json:"dimension"`
	RawText             string    `json:"raw_text"`
	Status              string    `json:"status"`
	ProposedCanonicalID *int64    `json:"proposed_canonical_id"`
	Notes               *string   `json:"notes"`
	CreatedAt           time.Time `json:"created_at"`
}

// Raw value statuses.
const (
	RawStatusPending   = "pending"
	RawStatusSuggested = "suggested"
)

// SystemConfig is the persisted matcher configuration. There is a single row.
type SystemConfig struct {
	DefaultDimension string    `json:"default_dimension"`
	MatchThreshold   float64   `json:"match_threshold"`
	MatcherBackend   string    `json:"matcher_backend"`
	EmbeddingModel   string    `json:"embedding_model"`
	LLMMode          string    `json:"llm_mode"`
	LLMModel         *string   `json:"llm_model"`
	LLMAPIBase       *string   `json:"llm_api_base"`
	LLMAPIKey        *string   `json:"-"`
	TopK             int       `json:"top_k"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ExtraField describes one typed attribute of a dimension schema.
type ExtraField struct {
	Key         string  `json:"key"`
	Label       string  `json:"label"`
	Description *string `json:"description"`
	DataType    string  `json:"data_type"`
	Required    bool    `json:"required"`
}

// Dimension is a semantic category grouping canonical values.
type Dimension struct {
	ID          int64        `json:"id"`
	Code        string       `json:"code"`
	Label       string       `json:"label"`
	Description *string      `json:"description"`
	ExtraFields []ExtraField `json:"extra_fields"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// DimensionRelation links a parent dimension to a child dimension.
type DimensionRelation struct {
	ID                  int64     `json:"id"`
	Label               string    `json:"label"`
	ParentDimensionCode string    `json:"parent_dimension_code"`
	ChildDimensionCode  string    `json:"child_dimension_code"`
	Description         *string   `json:"description"`
	LinkCount           int       `json:"link_count"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// RelationLink pairs a parent canonical value with a child canonical value.
type RelationLink struct {
	ID                int64     `json:"id"`
	RelationID        int64     `json:"relation_id"`
	ParentCanonicalID int64     `json:"parent_canonical_id"`
	ChildCanonicalID  int64     `json:"child_canonical_id"`
	ParentLabel       string    `json:"parent_label"`
	ChildLabel        string    `json:"child_label"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SourceConnection holds the settings for an operational database.
type SourceConnection struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	DBType    string    `json:"db_type"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Database  string    `json:"database"`
	Username  string    `json:"username"`
	Password  *string   `json:"-"`
	Options   *string   `json:"options"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FieldMapping associates a source table field with a reference dimension.
type FieldMapping struct {
	ID                 int64     `json:"id"`
	SourceConnectionID int64     `json:"source_connection_id"`
	SourceTable        string    `json:"source_table"`
	SourceField        string    `json:"source_field"`
	RefDimension       string    `json:"ref_dimension"`
	Description        *string   `json:"description"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// SourceSample is an observed raw value with its occurrence count.
type SourceSample struct {
	ID                 int64     `json:"id"`
	SourceConnectionID int64     `json:"source_connection_id"`
	SourceTable        string    `json:"source_table"`
	SourceField        string    `json:"source_field"`
	Dimension          *string   `json:"dimension"`
	RawValue           string    `json:"raw_value"`
	OccurrenceCount    int       `json:"occurrence_count"`
	LastSeenAt         time.Time `json:"last_seen_at"`
}

// SampleValue is one value of a sample ingest batch.
type SampleValue struct {
	RawValue        string  `json:"raw_value"`
	OccurrenceCount int     `json:"occurrence_count"`
	Dimension       *string `json:"dimension"`
}

// SampleFilter narrows sample listings. Empty fields match everything.
type SampleFilter struct {
	SourceTable string
	SourceField string
}

// ValueMapping links a raw source value to a canonical value.
type ValueMapping struct {
	ID                 int64     `json:"id"`
	SourceConnectionID int64     `json:"source_connection_id"`
	SourceTable        string    `json:"source_table"`
	SourceField        string    `json:"source_field"`
	RawValue           string    `json:"raw_value"`
	CanonicalID        int64     `json:"canonical_id"`
	Status             string    `json:"status"`
	Confidence         *float64  `json:"confidence"`
	SuggestedLabel     *string   `json:"suggested_label"`
	Notes              *string   `json:"notes"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultValueMappingStatus is applied when a mapping is created without a status.
const DefaultValueMappingStatus = "approved"

// ExpandedValueMapping is a value mapping joined with its canonical value.
type ExpandedValueMapping struct {
	ValueMapping
	CanonicalLabel string `json:"canonical_label"`
	RefDimension   string `json:"ref_dimension"`
}

// ValueMappingFilter narrows value mapping listings. Zero values match everything.
type ValueMappingFilter struct {
	ConnectionID int64
	SourceTable  string
	SourceField  string
}

// ValueMappingKey identifies a value mapping by its natural key.
type ValueMappingKey struct {
	ConnectionID int64
	SourceTable  string
	SourceField  string
	RawValue     string
}
