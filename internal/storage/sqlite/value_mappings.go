package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agentstation/refdata/internal/storage"
	pkgerrors "github.com/agentstation/refdata/pkg/errors"
)

const valueMappingColumns = `m.id, m.source_connection_id, m.source_table, m.source_field, m.raw_value, m.canonical_id,
       m.status, m.confidence, m.suggested_label, m.notes, m.created_at, m.updated_at`

func valueMappingNotFound() error {
	return pkgerrors.NotFoundf("value mapping", "Value mapping not found")
}

func scanValueMapping(row interface{ Scan(...any) error }, extra ...any) (storage.ValueMapping, error) {
	var (
		mapping    storage.ValueMapping
		confidence sql.NullFloat64
		suggested  sql.NullString
		notes      sql.NullString
		createdAt  int64
		updatedAt  int64
	)
	dest := []any{
		&mapping.ID,
		&mapping.SourceConnectionID,
		&mapping.SourceTable,
		&mapping.SourceField,
		&mapping.RawValue,
		&mapping.CanonicalID,
		&mapping.Status,
		&confidence,
		&suggested,
		&notes,
		&createdAt,
		&updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return storage.ValueMapping{}, err
	}
	mapping.Confidence = floatPtr(confidence)
	mapping.SuggestedLabel = stringPtr(suggested)
	mapping.Notes = stringPtr(notes)
	mapping.CreatedAt = fromMillis(createdAt)
	mapping.UpdatedAt = fromMillis(updatedAt)
	return mapping, nil
}

// ListValueMappings returns mappings joined with their canonical values,
// ordered by connection, table, field and raw value.
func (s *Store) ListValueMappings(ctx context.Context, filter storage.ValueMappingFilter) ([]storage.ExpandedValueMapping, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `SELECT ` + valueMappingColumns + `, c.canonical_label, c.dimension
FROM value_mappings m
LEFT JOIN canonical_values c ON c.id = m.canonical_id
WHERE 1 = 1`
	var args []any
	if filter.ConnectionID != 0 {
		query += ` AND m.source_connection_id = ?`
		args = append(args, filter.ConnectionID)
	}
	if filter.SourceTable != "" {
		query += ` AND m.source_table = ?`
		args = append(args, filter.SourceTable)
	}
	if filter.SourceField != "" {
		query += ` AND m.source_field = ?`
		args = append(args, filter.SourceField)
	}
	query += ` ORDER BY m.source_connection_id, m.source_table, m.source_field, m.raw_value`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list value mappings: %w", err)
	}
	defer rows.Close()

	mappings := []storage.ExpandedValueMapping{}
	for rows.Next() {
		var label, dimension sql.NullString
		mapping, err := scanValueMapping(rows, &label, &dimension)
		if err != nil {
			return nil, fmt.Errorf("scan value mapping: %w", err)
		}
		expanded := storage.ExpandedValueMapping{ValueMapping: mapping, CanonicalLabel: "Unknown"}
		if label.Valid {
			expanded.CanonicalLabel = label.String
		}
		if dimension.Valid {
			expanded.RefDimension = dimension.String
		}
		mappings = append(mappings, expanded)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate value mappings: %w", err)
	}
	return mappings, nil
}

// GetValueMapping returns a mapping that belongs to the connection.
func (s *Store) GetValueMapping(ctx context.Context, connectionID, id int64) (storage.ValueMapping, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ValueMapping{}, err
	}
	mapping, err := scanValueMapping(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+valueMappingColumns+` FROM value_mappings m WHERE m.id = ? AND m.source_connection_id = ?`,
		id, connectionID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ValueMapping{}, valueMappingNotFound()
	}
	if err != nil {
		return storage.ValueMapping{}, fmt.Errorf("get value mapping: %w", err)
	}
	return mapping, nil
}

// FindValueMapping returns the first mapping with the given natural key.
func (s *Store) FindValueMapping(ctx context.Context, key storage.ValueMappingKey) (storage.ValueMapping, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ValueMapping{}, err
	}
	mapping, err := scanValueMapping(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+valueMappingColumns+` FROM value_mappings m
		 WHERE m.source_connection_id = ? AND m.source_table = ? AND m.source_field = ? AND m.raw_value = ?
		 ORDER BY m.id LIMIT 1`,
		key.ConnectionID, key.SourceTable, key.SourceField, key.RawValue,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ValueMapping{}, valueMappingNotFound()
	}
	if err != nil {
		return storage.ValueMapping{}, fmt.Errorf("find value mapping: %w", err)
	}
	return mapping, nil
}

// CreateValueMapping inserts a value mapping.
func (s *Store) CreateValueMapping(ctx context.Context, mapping *storage.ValueMapping) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if mapping.Status == "" {
		mapping.Status = storage.DefaultValueMappingStatus
	}
	ts := now()
	result, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO value_mappings (source_connection_id, source_table, source_field, raw_value, canonical_id,
		                             status, confidence, suggested_label, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mapping.SourceConnectionID,
		mapping.SourceTable,
		mapping.SourceField,
		mapping.RawValue,
		mapping.CanonicalID,
		mapping.Status,
		nullFloat(mapping.Confidence),
		nullString(mapping.SuggestedLabel),
		nullString(mapping.Notes),
		toMillis(ts),
		toMillis(ts),
	)
	if err != nil {
		return fmt.Errorf("create value mapping: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create value mapping: %w", err)
	}
	mapping.ID = id
	mapping.CreatedAt, mapping.UpdatedAt = ts, ts
	return nil
}

// UpdateValueMapping overwrites the mutable fields of a value mapping.
func (s *Store) UpdateValueMapping(ctx context.Context, mapping storage.ValueMapping) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE value_mappings
		 SET source_table = ?, source_field = ?, raw_value = ?, canonical_id = ?, status = ?,
		     confidence = ?, suggested_label = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND source_connection_id = ?`,
		mapping.SourceTable,
		mapping.SourceField,
		mapping.RawValue,
		mapping.CanonicalID,
		mapping.Status,
		nullFloat(mapping.Confidence),
		nullString(mapping.SuggestedLabel),
		nullString(mapping.Notes),
		toMillis(now()),
		mapping.ID,
		mapping.SourceConnectionID,
	)
	if err != nil {
		return fmt.Errorf("update value mapping: %w", err)
	}
	return requireAffected(result, valueMappingNotFound())
}

// DeleteValueMapping removes a value mapping of the connection.
func (s *Store) DeleteValueMapping(ctx context.Context, connectionID, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM value_mappings WHERE id = ? AND source_connection_id = ?`, id, connectionID)
	if err != nil {
		return fmt.Errorf("delete value mapping: %w", err)
	}
	return requireAffected(result, valueMappingNotFound())
}
