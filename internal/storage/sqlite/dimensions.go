package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentstation/refdata/internal/storage"
	pkgerrors "github.com/agentstation/refdata/pkg/errors"
)

const dimensionColumns = `id, code, label, description, extra_schema, created_at, updated_at`

func scanDimension(row interface{ Scan(...any) error }) (storage.Dimension, error) {
	var (
		dimension   storage.Dimension
		description sql.NullString
		schema      string
		createdAt   int64
		updatedAt   int64
	)
	if err := row.Scan(&dimension.ID, &dimension.Code, &dimension.Label, &description, &schema, &createdAt, &updatedAt); err != nil {
		return storage.Dimension{}, err
	}
	dimension.ExtraFields = []storage.ExtraField{}
	if schema != "" && schema != "null" {
		if err := json.Unmarshal([]byte(schema), &dimension.ExtraFields); err != nil {
			return storage.Dimension{}, fmt.Errorf("decode extra schema: %w", err)
		}
	}
	dimension.Description = stringPtr(description)
	dimension.CreatedAt = fromMillis(createdAt)
	dimension.UpdatedAt = fromMillis(updatedAt)
	return dimension, nil
}

func dimensionNotFound(code string) error {
	return pkgerrors.NotFoundf("dimension", "Dimension '%s' not found.", code)
}

// ListDimensions returns every dimension ordered by code.
func (s *Store) ListDimensions(ctx context.Context) ([]storage.Dimension, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+dimensionColumns+` FROM dimensions ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list dimensions: %w", err)
	}
	defer rows.Close()

	dimensions := []storage.Dimension{}
	for rows.Next() {
		dimension, err := scanDimension(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dimension: %w", err)
		}
		dimensions = append(dimensions, dimension)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dimensions: %w", err)
	}
	return dimensions, nil
}

// GetDimension returns one dimension by code.
func (s *Store) GetDimension(ctx context.Context, code string) (storage.Dimension, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Dimension{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+dimensionColumns+` FROM dimensions WHERE code = ?`, code)
	dimension, err := scanDimension(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Dimension{}, dimensionNotFound(code)
	}
	if err != nil {
		return storage.Dimension{}, fmt.Errorf("get dimension: %w", err)
	}
	return dimension, nil
}

// CreateDimension inserts a dimension and assigns its id and timestamps.
func (s *Store) CreateDimension(ctx context.Context, dimension *storage.Dimension) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return insertDimension(ctx, s.sqlDB, dimension)
}

func insertDimension(ctx context.Context, db execer, dimension *storage.Dimension) error {
	if dimension.ExtraFields == nil {
		dimension.ExtraFields = []storage.ExtraField{}
	}
	schema, err := encodeJSON(dimension.ExtraFields, "[]")
	if err != nil {
		return err
	}
	ts := now()
	dimension.CreatedAt, dimension.UpdatedAt = ts, ts
	result, err := db.ExecContext(ctx,
		`INSERT INTO dimensions (code, label, description, extra_schema, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		dimension.Code,
		dimension.Label,
		nullString(dimension.Description),
		schema,
		toMillis(ts),
		toMillis(ts),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.NewConflictError("dimension", fmt.Sprintf("Dimension '%s' already exists.", dimension.Code), err)
		}
		return fmt.Errorf("create dimension: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create dimension: %w", err)
	}
	dimension.ID = id
	return nil
}

// UpdateDimension overwrites label, description and schema by code.
func (s *Store) UpdateDimension(ctx context.Context, dimension storage.Dimension) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	schema, err := encodeJSON(dimension.ExtraFields, "[]")
	if err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE dimensions SET label = ?, description = ?, extra_schema = ?, updated_at = ? WHERE code = ?`,
		dimension.Label,
		nullString(dimension.Description),
		schema,
		toMillis(now()),
		dimension.Code,
	)
	if err != nil {
		return fmt.Errorf("update dimension: %w", err)
	}
	return requireAffected(result, dimensionNotFound(dimension.Code))
}

// DeleteDimension removes a dimension by code.
func (s *Store) DeleteDimension(ctx context.Context, code string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM dimensions WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("delete dimension: %w", err)
	}
	return requireAffected(result, dimensionNotFound(code))
}

// CountRelationsForDimension counts relations where code is parent or child.
func (s *Store) CountRelationsForDimension(ctx context.Context, code string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var n int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dimension_relations WHERE parent_dimension_code = ? OR child_dimension_code = ?`,
		code, code,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count relations: %w", err)
	}
	return n, nil
}
