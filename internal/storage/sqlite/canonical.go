package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/agentstation/refdata/internal/storage"
	pkgerrors "github.com/agentstation/refdata/pkg/errors"
)

const canonicalColumns = `id, dimension, canonical_label, description, attributes, created_at`

func scanCanonical(row interface{ Scan(...any) error }) (storage.CanonicalValue, error) {
	var (
		value       storage.CanonicalValue
		description sql.NullString
		attributes  sql.NullString
		createdAt   int64
	)
	if err := row.Scan(&value.ID, &value.Dimension, &value.CanonicalLabel, &description, &attributes, &createdAt); err != nil {
		return storage.CanonicalValue{}, err
	}
	attrs, err := decodeAttributes(attributes)
	if err != nil {
		return storage.CanonicalValue{}, err
	}
	value.Description = stringPtr(description)
	value.Attributes = attrs
	value.CreatedAt = fromMillis(createdAt)
	return value, nil
}

// ListCanonicalValues returns values ordered by dimension then label.
// An empty dimension lists every value.
func (s *Store) ListCanonicalValues(ctx context.Context, dimension string) ([]storage.CanonicalValue, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `SELECT ` + canonicalColumns + ` FROM canonical_values`
	var args []any
	if dimension = strings.TrimSpace(dimension); dimension != "" {
		query += ` WHERE dimension = ?`
		args = append(args, dimension)
	}
	query += ` ORDER BY dimension, canonical_label, id`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list canonical values: %w", err)
	}
	defer rows.Close()

	values := []storage.CanonicalValue{}
	for rows.Next() {
		value, err := scanCanonical(rows)
		if err != nil {
			return nil, fmt.Errorf("scan canonical value: %w", err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate canonical values: %w", err)
	}
	return values, nil
}

// GetCanonicalValue returns one canonical value by id.
func (s *Store) GetCanonicalValue(ctx context.Context, id int64) (storage.CanonicalValue, error) {
	if err := s.ready(ctx); err != nil {
		return storage.CanonicalValue{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+canonicalColumns+` FROM canonical_values WHERE id = ?`, id)
	value, err := scanCanonical(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.CanonicalValue{}, pkgerrors.NotFoundf("canonical value", "Canonical value not found")
	}
	if err != nil {
		return storage.CanonicalValue{}, fmt.Errorf("get canonical value: %w", err)
	}
	return value, nil
}

// CreateCanonicalValue inserts a value and assigns its id and timestamp.
func (s *Store) CreateCanonicalValue(ctx context.Context, value *storage.CanonicalValue) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return insertCanonical(ctx, s.sqlDB, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertCanonical(ctx context.Context, db execer, value *storage.CanonicalValue) error {
	if value.Attributes == nil {
		value.Attributes = map[string]any{}
	}
	attributes, err := encodeJSON(value.Attributes, "{}")
	if err != nil {
		return err
	}
	if value.CreatedAt.IsZero() {
		value.CreatedAt = now()
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO canonical_values (dimension, canonical_label, description, attributes, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		value.Dimension,
		value.CanonicalLabel,
		nullString(value.Description),
		attributes,
		toMillis(value.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create canonical value: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create canonical value: %w", err)
	}
	value.ID = id
	return nil
}

// UpdateCanonicalValue overwrites the mutable fields of a value.
func (s *Store) UpdateCanonicalValue(ctx context.Context, value storage.CanonicalValue) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	attributes, err := encodeJSON(value.Attributes, "{}")
	if err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE canonical_values
		 SET dimension = ?, canonical_label = ?, description = ?, attributes = ?
		 WHERE id = ?`,
		value.Dimension,
		value.CanonicalLabel,
		nullString(value.Description),
		attributes,
		value.ID,
	)
	if err != nil {
		return fmt.Errorf("update canonical value: %w", err)
	}
	return requireAffected(result, pkgerrors.NotFoundf("canonical value", "Canonical value not found"))
}

// DeleteCanonicalValue removes the value and every relation link that references it.
func (s *Store) DeleteCanonicalValue(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM dimension_relation_links WHERE parent_canonical_id = ? OR child_canonical_id = ?`,
			id, id,
		); err != nil {
			return fmt.Errorf("delete canonical links: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM canonical_values WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete canonical value: %w", err)
		}
		return requireAffected(result, pkgerrors.NotFoundf("canonical value", "Canonical value not found"))
	})
}

// CountCanonicalValues counts values, optionally within one dimension.
func (s *Store) CountCanonicalValues(ctx context.Context, dimension string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	query := `SELECT COUNT(*) FROM canonical_values`
	var args []any
	if dimension != "" {
		query += ` WHERE dimension = ?`
		args = append(args, dimension)
	}
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count canonical values: %w", err)
	}
	return n, nil
}

// CreateRawValue records a raw input and its proposal outcome.
func (s *Store) CreateRawValue(ctx context.Context, value *storage.RawValue) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if value.Status == "" {
		value.Status = storage.RawStatusPending
	}
	if value.CreatedAt.IsZero() {
		value.CreatedAt = now()
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO raw_values (dimension, raw_text, status, proposed_canonical_id, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		value.Dimension,
		value.RawText,
		value.Status,
		nullInt64(value.ProposedCanonicalID),
		nullString(value.Notes),
		toMillis(value.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create raw value: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create raw value: %w", err)
	}
	value.ID = id
	return nil
}

func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
