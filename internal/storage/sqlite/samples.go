package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agentstation/refdata/internal/storage"
)

const sampleColumns = `id, source_connection_id, source_table, source_field, dimension, raw_value, occurrence_count, last_seen_at`

func scanSample(row interface{ Scan(...any) error }) (storage.SourceSample, error) {
	var (
		sample    storage.SourceSample
		dimension sql.NullString
		lastSeen  int64
	)
	if err := row.Scan(
		&sample.ID,
		&sample.SourceConnectionID,
		&sample.SourceTable,
		&sample.SourceField,
		&dimension,
		&sample.RawValue,
		&sample.OccurrenceCount,
		&lastSeen,
	); err != nil {
		return storage.SourceSample{}, err
	}
	sample.Dimension = stringPtr(dimension)
	sample.LastSeenAt = fromMillis(lastSeen)
	return sample, nil
}

// ListSamples returns samples ordered by table, field and raw value.
func (s *Store) ListSamples(ctx context.Context, connectionID int64, filter storage.SampleFilter) ([]storage.SourceSample, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `SELECT ` + sampleColumns + ` FROM source_samples WHERE source_connection_id = ?`
	args := []any{connectionID}
	if filter.SourceTable != "" {
		query += ` AND source_table = ?`
		args = append(args, filter.SourceTable)
	}
	if filter.SourceField != "" {
		query += ` AND source_field = ?`
		args = append(args, filter.SourceField)
	}
	query += ` ORDER BY source_table, source_field, raw_value`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	samples := []storage.SourceSample{}
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

// UpsertSamples adds occurrence counts to existing samples and inserts new
// ones. An existing sample keeps its dimension unless the batch names one.
func (s *Store) UpsertSamples(ctx context.Context, connectionID int64, table, field string, values []storage.SampleValue) ([]storage.SourceSample, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	touched := make([]storage.SourceSample, 0, len(values))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ts := now()
		for _, value := range values {
			existing, err := scanSample(tx.QueryRowContext(ctx,
				`SELECT `+sampleColumns+` FROM source_samples
				 WHERE source_connection_id = ? AND source_table = ? AND source_field = ? AND raw_value = ?`,
				connectionID, table, field, value.RawValue,
			))
			switch {
			case errors.Is(err, sql.ErrNoRows):
				sample := storage.SourceSample{
					SourceConnectionID: connectionID,
					SourceTable:        table,
					SourceField:        field,
					Dimension:          value.Dimension,
					RawValue:           value.RawValue,
					OccurrenceCount:    value.OccurrenceCount,
					LastSeenAt:         ts,
				}
				result, err := tx.ExecContext(ctx,
					`INSERT INTO source_samples (source_connection_id, source_table, source_field, dimension, raw_value, occurrence_count, last_seen_at)
					 VALUES (?, ?, ?, ?, ?, ?, ?)`,
					connectionID, table, field, nullString(value.Dimension), value.RawValue, value.OccurrenceCount, toMillis(ts),
				)
				if err != nil {
					return fmt.Errorf("insert sample: %w", err)
				}
				if sample.ID, err = result.LastInsertId(); err != nil {
					return fmt.Errorf("insert sample: %w", err)
				}
				touched = append(touched, sample)
			case err != nil:
				return fmt.Errorf("find sample: %w", err)
			default:
				existing.OccurrenceCount += value.OccurrenceCount
				if value.Dimension != nil {
					existing.Dimension = value.Dimension
				}
				existing.LastSeenAt = ts
				if _, err := tx.ExecContext(ctx,
					`UPDATE source_samples SET occurrence_count = ?, dimension = ?, last_seen_at = ? WHERE id = ?`,
					existing.OccurrenceCount, nullString(existing.Dimension), toMillis(ts), existing.ID,
				); err != nil {
					return fmt.Errorf("update sample: %w", err)
				}
				touched = append(touched, existing)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return touched, nil
}
