package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agentstation/refdata/internal/storage"
	pkgerrors "github.com/agentstation/refdata/pkg/errors"
)

const connectionColumns = `id, name, db_type, host, port, database_name, username, password, options, created_at, updated_at`

func connectionNotFound() error {
	return pkgerrors.NotFoundf("connection", "Connection not found")
}

func connectionConflict(err error) error {
	return pkgerrors.NewConflictError("connection", "Connection name must be unique", err)
}

func scanConnection(row interface{ Scan(...any) error }) (storage.SourceConnection, error) {
	var (
		conn      storage.SourceConnection
		password  sql.NullString
		options   sql.NullString
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&conn.ID,
		&conn.Name,
		&conn.DBType,
		&conn.Host,
		&conn.Port,
		&conn.Database,
		&conn.Username,
		&password,
		&options,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.SourceConnection{}, err
	}
	conn.Password = stringPtr(password)
	conn.Options = stringPtr(options)
	conn.CreatedAt = fromMillis(createdAt)
	conn.UpdatedAt = fromMillis(updatedAt)
	return conn, nil
}

// ListConnections returns every connection ordered by name.
func (s *Store) ListConnections(ctx context.Context) ([]storage.SourceConnection, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+connectionColumns+` FROM source_connections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	conns := []storage.SourceConnection{}
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conns = append(conns, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}
	return conns, nil
}

// GetConnection returns one connection by id.
func (s *Store) GetConnection(ctx context.Context, id int64) (storage.SourceConnection, error) {
	if err := s.ready(ctx); err != nil {
		return storage.SourceConnection{}, err
	}
	conn, err := scanConnection(s.sqlDB.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM source_connections WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.SourceConnection{}, connectionNotFound()
	}
	if err != nil {
		return storage.SourceConnection{}, fmt.Errorf("get connection: %w", err)
	}
	return conn, nil
}

// CreateConnection inserts a connection.
func (s *Store) CreateConnection(ctx context.Context, conn *storage.SourceConnection) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	ts := now()
	result, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO source_connections (name, db_type, host, port, database_name, username, password, options, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conn.Name,
		conn.DBType,
		conn.Host,
		conn.Port,
		conn.Database,
		conn.Username,
		nullString(conn.Password),
		nullString(conn.Options),
		toMillis(ts),
		toMillis(ts),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return connectionConflict(err)
		}
		return fmt.Errorf("create connection: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create connection: %w", err)
	}
	conn.ID = id
	conn.CreatedAt, conn.UpdatedAt = ts, ts
	return nil
}

// UpdateConnection overwrites every mutable field of a connection.
func (s *Store) UpdateConnection(ctx context.Context, conn storage.SourceConnection) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE source_connections
		 SET name = ?, db_type = ?, host = ?, port = ?, database_name = ?, username = ?,
		     password = ?, options = ?, updated_at = ?
		 WHERE id = ?`,
		conn.Name,
		conn.DBType,
		conn.Host,
		conn.Port,
		conn.Database,
		conn.Username,
		nullString(conn.Password),
		nullString(conn.Options),
		toMillis(now()),
		conn.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return connectionConflict(err)
		}
		return fmt.Errorf("update connection: %w", err)
	}
	return requireAffected(result, connectionNotFound())
}

// DeleteConnection removes the connection with its field mappings,
// samples and value mappings.
func (s *Store) DeleteConnection(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"value_mappings", "source_samples", "source_field_mappings"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE source_connection_id = ?`, id); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM source_connections WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete connection: %w", err)
		}
		return requireAffected(result, connectionNotFound())
	})
}

const fieldMappingColumns = `id, source_connection_id, source_table, source_field, ref_dimension, description, created_at, updated_at`

func mappingNotFound() error {
	return pkgerrors.NotFoundf("field mapping", "Mapping not found")
}

func scanFieldMapping(row interface{ Scan(...any) error }) (storage.FieldMapping, error) {
	var (
		mapping     storage.FieldMapping
		description sql.NullString
		createdAt   int64
		updatedAt   int64
	)
	if err := row.Scan(
		&mapping.ID,
		&mapping.SourceConnectionID,
		&mapping.SourceTable,
		&mapping.SourceField,
		&mapping.RefDimension,
		&description,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.FieldMapping{}, err
	}
	mapping.Description = stringPtr(description)
	mapping.CreatedAt = fromMillis(createdAt)
	mapping.UpdatedAt = fromMillis(updatedAt)
	return mapping, nil
}

// ListFieldMappings returns the mappings of a connection ordered by table then field.
func (s *Store) ListFieldMappings(ctx context.Context, connectionID int64) ([]storage.FieldMapping, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+fieldMappingColumns+` FROM source_field_mappings
		 WHERE source_connection_id = ?
		 ORDER BY source_table, source_field, id`,
		connectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list field mappings: %w", err)
	}
	defer rows.Close()

	mappings := []storage.FieldMapping{}
	for rows.Next() {
		mapping, err := scanFieldMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan field mapping: %w", err)
		}
		mappings = append(mappings, mapping)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate field mappings: %w", err)
	}
	return mappings, nil
}

// GetFieldMapping returns a mapping that belongs to the connection.
func (s *Store) GetFieldMapping(ctx context.Context, connectionID, id int64) (storage.FieldMapping, error) {
	if err := s.ready(ctx); err != nil {
		return storage.FieldMapping{}, err
	}
	mapping, err := scanFieldMapping(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+fieldMappingColumns+` FROM source_field_mappings WHERE id = ? AND source_connection_id = ?`,
		id, connectionID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.FieldMapping{}, mappingNotFound()
	}
	if err != nil {
		return storage.FieldMapping{}, fmt.Errorf("get field mapping: %w", err)
	}
	return mapping, nil
}

// CreateFieldMapping inserts a field mapping.
func (s *Store) CreateFieldMapping(ctx context.Context, mapping *storage.FieldMapping) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	ts := now()
	result, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO source_field_mappings (source_connection_id, source_table, source_field, ref_dimension, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		mapping.SourceConnectionID,
		mapping.SourceTable,
		mapping.SourceField,
		mapping.RefDimension,
		nullString(mapping.Description),
		toMillis(ts),
		toMillis(ts),
	)
	if err != nil {
		return fmt.Errorf("create field mapping: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create field mapping: %w", err)
	}
	mapping.ID = id
	mapping.CreatedAt, mapping.UpdatedAt = ts, ts
	return nil
}

// UpdateFieldMapping overwrites the mutable fields of a mapping.
func (s *Store) UpdateFieldMapping(ctx context.Context, mapping storage.FieldMapping) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE source_field_mappings
		 SET source_table = ?, source_field = ?, ref_dimension = ?, description = ?, updated_at = ?
		 WHERE id = ? AND source_connection_id = ?`,
		mapping.SourceTable,
		mapping.SourceField,
		mapping.RefDimension,
		nullString(mapping.Description),
		toMillis(now()),
		mapping.ID,
		mapping.SourceConnectionID,
	)
	if err != nil {
		return fmt.Errorf("update field mapping: %w", err)
	}
	return requireAffected(result, mappingNotFound())
}

// DeleteFieldMapping removes a mapping of the connection.
func (s *Store) DeleteFieldMapping(ctx context.Context, connectionID, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM source_field_mappings WHERE id = ? AND source_connection_id = ?`, id, connectionID)
	if err != nil {
		return fmt.Errorf("delete field mapping: %w", err)
	}
	return requireAffected(result, mappingNotFound())
}
