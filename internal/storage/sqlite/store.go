// Package sqlite provides the SQLite-backed hub store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentstation/utc"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/internal/storage/sqlite/migrations"
	"github.com/agentstation/refdata/internal/storage/sqlitemigrate"
)

const memoryPath = ":memory:"

const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Store persists hub state in SQLite.
type Store struct {
	sqlDB   *sql.DB
	applied []string
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return utc.New(time.UnixMilli(value)).Time
}

func now() time.Time {
	return utc.Now().Time
}

// Open opens a SQLite hub store and applies embedded migrations.
// The path may be a file path, a file: DSN or ":memory:".
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == memoryPath {
		// every connection to :memory: is a distinct database
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if path != memoryPath {
		if _, err := sqlDB.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("enable wal: %w", err)
		}
	}
	applied, err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, "")
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, applied: applied}, nil
}

func dsn(path string) string {
	switch {
	case path == memoryPath:
		return "file::memory:?" + pragmas
	case strings.HasPrefix(path, "file:"):
		if strings.Contains(path, "?") {
			return path + "&" + pragmas
		}
		return path + "?" + pragmas
	default:
		return filepath.Clean(path) + "?" + pragmas
	}
}

// AppliedMigrations lists the migrations run by Open.
func (s *Store) AppliedMigrations() []string {
	return append([]string(nil), s.applied...)
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// DB exposes the handle for maintenance commands and tests.
func (s *Store) DB() *sql.DB {
	return s.sqlDB
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

var hubTables = []string{
	"canonical_values",
	"raw_values",
	"system_config",
	"dimensions",
	"dimension_relations",
	"dimension_relation_links",
	"source_connections",
	"source_field_mappings",
	"source_samples",
	"value_mappings",
}

// TableCounts reports the row count of every hub table.
func (s *Store) TableCounts(ctx context.Context) (map[string]int64, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(hubTables))
	for _, table := range hubTables {
		var n int64
		if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func nullFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}

func floatPtr(value sql.NullFloat64) *float64 {
	if !value.Valid {
		return nil
	}
	v := value.Float64
	return &v
}

func nullInt64(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}

func encodeJSON(value any, fallback string) (string, error) {
	if value == nil {
		return fallback, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(data), nil
}

func decodeAttributes(raw sql.NullString) (map[string]any, error) {
	attributes := map[string]any{}
	if !raw.Valid || strings.TrimSpace(raw.String) == "" || raw.String == "null" {
		return attributes, nil
	}
	if err := json.Unmarshal([]byte(raw.String), &attributes); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	if attributes == nil {
		attributes = map[string]any{}
	}
	return attributes, nil
}

var _ storage.Store = (*Store)(nil)
