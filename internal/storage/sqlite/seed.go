package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agentstation/refdata/internal/dimensions"
	"github.com/agentstation/refdata/internal/storage"
	pkgerrors "github.com/agentstation/refdata/pkg/errors"
)

type seedValue struct {
	dimension   string
	label       string
	description string
}

var seedValues = []seedValue{
	{"marital_status", "Single", "Not married"},
	{"marital_status", "Married", "Married or civil partnership"},
	{"education", "High School", "Completed secondary education"},
	{"education", "Bachelor's Degree", "Undergraduate degree"},
	{"employment_status", "Employed", "Currently employed"},
	{"employment_status", "Unemployed", "Not presently employed"},
}

// SeedResult reports what Seed created.
type SeedResult struct {
	ConfigCreated   bool
	CanonicalValues int
	Dimensions      int
}

// Seed ensures the configuration row exists, inserts the starter canonical
// values when the table is empty, and backfills a dimension row for every
// dimension referenced by canonical values.
func (s *Store) Seed(ctx context.Context, defaults storage.SystemConfig) (SeedResult, error) {
	var result SeedResult
	if err := s.ready(ctx); err != nil {
		return result, err
	}

	if _, err := s.GetSystemConfig(ctx); err != nil {
		if !pkgerrors.IsNotFound(err) {
			return result, err
		}
		if err := s.SaveSystemConfig(ctx, defaults); err != nil {
			return result, err
		}
		result.ConfigCreated = true
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM canonical_values`).Scan(&count); err != nil {
			return fmt.Errorf("count canonical values: %w", err)
		}
		if count == 0 {
			for _, seed := range seedValues {
				description := seed.description
				value := storage.CanonicalValue{
					Dimension:      seed.dimension,
					CanonicalLabel: seed.label,
					Description:    &description,
				}
				if err := insertCanonical(ctx, tx, &value); err != nil {
					return err
				}
				result.CanonicalValues++
			}
		}

		missing, err := missingDimensions(ctx, tx)
		if err != nil {
			return err
		}
		for _, code := range missing {
			dimension := storage.Dimension{Code: code, Label: dimensions.HumanizeCode(code)}
			if err := insertDimension(ctx, tx, &dimension); err != nil {
				if pkgerrors.IsAlreadyExists(err) {
					continue
				}
				return err
			}
			result.Dimensions++
		}
		return nil
	})
	return result, err
}

func missingDimensions(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT c.dimension FROM canonical_values c
		 LEFT JOIN dimensions d ON d.code = c.dimension
		 WHERE d.id IS NULL AND c.dimension <> ''
		 ORDER BY c.dimension`)
	if err != nil {
		return nil, fmt.Errorf("find missing dimensions: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan dimension code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("iterate dimension codes: %w", err)
	}
	return codes, nil
}
