package storage

import "context"

// CanonicalStore persists canonical values.
type CanonicalStore interface {
	ListCanonicalValues(ctx context.Context, dimension string) ([]CanonicalValue, error)
	GetCanonicalValue(ctx context.Context, id int64) (CanonicalValue, error)
	CreateCanonicalValue(ctx context.Context, value *CanonicalValue) error
	UpdateCanonicalValue(ctx context.Context, value CanonicalValue) error
	// DeleteCanonicalValue removes the value and every relation link that references it.
	DeleteCanonicalValue(ctx context.Context, id int64) error
	CountCanonicalValues(ctx context.Context, dimension string) (int, error)
}

// RawValueStore persists raw values sent through the matcher.
type RawValueStore interface {
	CreateRawValue(ctx context.Context, value *RawValue) error
}

// ConfigStore persists the system configuration row.
type ConfigStore interface {
	GetSystemConfig(ctx context.Context) (SystemConfig, error)
	SaveSystemConfig(ctx context.Context, cfg SystemConfig) error
}

// DimensionStore persists dimensions and their relations.
type DimensionStore interface {
	ListDimensions(ctx context.Context) ([]Dimension, error)
	GetDimension(ctx context.Context, code string) (Dimension, error)
	CreateDimension(ctx context.Context, dimension *Dimension) error
	UpdateDimension(ctx context.Context, dimension Dimension) error
	DeleteDimension(ctx context.Context, code string) error
	CountRelationsForDimension(ctx context.Context, code string) (int, error)

	ListRelations(ctx context.Context) ([]DimensionRelation, error)
	GetRelation(ctx context.Context, id int64) (DimensionRelation, error)
	CreateRelation(ctx context.Context, relation *DimensionRelation) error
	UpdateRelation(ctx context.Context, relation DimensionRelation) error
	// DeleteRelation removes the relation and its links.
	DeleteRelation(ctx context.Context, id int64) error

	ListRelationLinks(ctx context.Context, relationID int64) ([]RelationLink, error)
	CreateRelationLink(ctx context.Context, link *RelationLink) error
	DeleteRelationLink(ctx context.Context, relationID, linkID int64) error
}

// SourceStore persists source connections and everything scoped to them.
type SourceStore interface {
	ListConnections(ctx context.Context) ([]SourceConnection, error)
	GetConnection(ctx context.Context, id int64) (SourceConnection, error)
	CreateConnection(ctx context.Context, conn *SourceConnection) error
	UpdateConnection(ctx context.Context, conn SourceConnection) error
	// DeleteConnection removes the connection with its field mappings,
	// samples and value mappings.
	DeleteConnection(ctx context.Context, id int64) error

	ListFieldMappings(ctx context.Context, connectionID int64) ([]FieldMapping, error)
	GetFieldMapping(ctx context.Context, connectionID, id int64) (FieldMapping, error)
	CreateFieldMapping(ctx context.Context, mapping *FieldMapping) error
	UpdateFieldMapping(ctx context.Context, mapping FieldMapping) error
	DeleteFieldMapping(ctx context.Context, connectionID, id int64) error

	ListSamples(ctx context.Context, connectionID int64, filter SampleFilter) ([]SourceSample, error)
	// UpsertSamples adds occurrence counts to existing samples and inserts new ones.
	UpsertSamples(ctx context.Context, connectionID int64, table, field string, values []SampleValue) ([]SourceSample, error)

	ListValueMappings(ctx context.Context, filter ValueMappingFilter) ([]ExpandedValueMapping, error)
	GetValueMapping(ctx context.Context, connectionID, id int64) (ValueMapping, error)
	FindValueMapping(ctx context.Context, key ValueMappingKey) (ValueMapping, error)
	CreateValueMapping(ctx context.Context, mapping *ValueMapping) error
	UpdateValueMapping(ctx context.Context, mapping ValueMapping) error
	DeleteValueMapping(ctx context.Context, connectionID, id int64) error
}

// Store is the full persistence surface of the hub.
type Store interface {
	CanonicalStore
	RawValueStore
	ConfigStore
	DimensionStore
	SourceStore

	// TableCounts reports the row count of every hub table.
	TableCounts(ctx context.Context) (map[string]int64, error)
	Close() error
}
