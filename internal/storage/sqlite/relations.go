package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agentstation/refdata/internal/storage"
	pkgerrors "github.com/agentstation/refdata/pkg/errors"
)

const relationSelect = `
SELECT r.id, r.label, r.parent_dimension_code, r.child_dimension_code, r.description,
       (SELECT COUNT(*) FROM dimension_relation_links l WHERE l.relation_id = r.id),
       r.created_at, r.updated_at
FROM dimension_relations r`

func scanRelation(row interface{ Scan(...any) error }) (storage.DimensionRelation, error) {
	var (
		relation    storage.DimensionRelation
		description sql.NullString
		createdAt   int64
		updatedAt   int64
	)
	if err := row.Scan(
		&relation.ID,
		&relation.Label,
		&relation.ParentDimensionCode,
		&relation.ChildDimensionCode,
		&description,
		&relation.LinkCount,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.DimensionRelation{}, err
	}
	relation.Description = stringPtr(description)
	relation.CreatedAt = fromMillis(createdAt)
	relation.UpdatedAt = fromMillis(updatedAt)
	return relation, nil
}

func relationNotFound() error {
	return pkgerrors.NotFoundf("relation", "Relation not found")
}

// ListRelations returns every relation ordered by label.
func (s *Store) ListRelations(ctx context.Context) ([]storage.DimensionRelation, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, relationSelect+` ORDER BY r.label, r.id`)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	defer rows.Close()

	relations := []storage.DimensionRelation{}
	for rows.Next() {
		relation, err := scanRelation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		relations = append(relations, relation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relations: %w", err)
	}
	return relations, nil
}

// GetRelation returns one relation by id.
func (s *Store) GetRelation(ctx context.Context, id int64) (storage.DimensionRelation, error) {
	if err := s.ready(ctx); err != nil {
		return storage.DimensionRelation{}, err
	}
	relation, err := scanRelation(s.sqlDB.QueryRowContext(ctx, relationSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.DimensionRelation{}, relationNotFound()
	}
	if err != nil {
		return storage.DimensionRelation{}, fmt.Errorf("get relation: %w", err)
	}
	return relation, nil
}

// CreateRelation inserts a relation.
func (s *Store) CreateRelation(ctx context.Context, relation *storage.DimensionRelation) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	ts := now()
	result, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO dimension_relations (label, parent_dimension_code, child_dimension_code, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		relation.Label,
		relation.ParentDimensionCode,
		relation.ChildDimensionCode,
		nullString(relation.Description),
		toMillis(ts),
		toMillis(ts),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.NewConflictError("relation", "Relation already exists.", err)
		}
		return fmt.Errorf("create relation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create relation: %w", err)
	}
	relation.ID = id
	relation.CreatedAt, relation.UpdatedAt = ts, ts
	return nil
}

// UpdateRelation overwrites label and description.
func (s *Store) UpdateRelation(ctx context.Context, relation storage.DimensionRelation) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE dimension_relations SET label = ?, description = ?, updated_at = ? WHERE id = ?`,
		relation.Label,
		nullString(relation.Description),
		toMillis(now()),
		relation.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.NewConflictError("relation", "Relation already exists.", err)
		}
		return fmt.Errorf("update relation: %w", err)
	}
	return requireAffected(result, relationNotFound())
}

// DeleteRelation removes the relation and its links.
func (s *Store) DeleteRelation(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM dimension_relation_links WHERE relation_id = ?`, id); err != nil {
			return fmt.Errorf("delete relation links: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM dimension_relations WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete relation: %w", err)
		}
		return requireAffected(result, relationNotFound())
	})
}

// ListRelationLinks returns the links of a relation with canonical labels.
func (s *Store) ListRelationLinks(ctx context.Context, relationID int64) ([]storage.RelationLink, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT l.id, l.relation_id, l.parent_canonical_id, l.child_canonical_id,
		        COALESCE(p.canonical_label, ''), COALESCE(c.canonical_label, ''),
		        l.created_at, l.updated_at
		 FROM dimension_relation_links l
		 LEFT JOIN canonical_values p ON p.id = l.parent_canonical_id
		 LEFT JOIN canonical_values c ON c.id = l.child_canonical_id
		 WHERE l.relation_id = ?
		 ORDER BY p.canonical_label, c.canonical_label, l.id`,
		relationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list relation links: %w", err)
	}
	defer rows.Close()

	links := []storage.RelationLink{}
	for rows.Next() {
		var (
			link      storage.RelationLink
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(
			&link.ID,
			&link.RelationID,
			&link.ParentCanonicalID,
			&link.ChildCanonicalID,
			&link.ParentLabel,
			&link.ChildLabel,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan relation link: %w", err)
		}
		link.CreatedAt = fromMillis(createdAt)
		link.UpdatedAt = fromMillis(updatedAt)
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relation links: %w", err)
	}
	return links, nil
}

// CreateRelationLink inserts a link between two canonical values.
func (s *Store) CreateRelationLink(ctx context.Context, link *storage.RelationLink) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	ts := now()
	result, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO dimension_relation_links (relation_id, parent_canonical_id, child_canonical_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		link.RelationID,
		link.ParentCanonicalID,
		link.ChildCanonicalID,
		toMillis(ts),
		toMillis(ts),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.NewConflictError("link", "Link already exists.", err)
		}
		return fmt.Errorf("create relation link: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create relation link: %w", err)
	}
	link.ID = id
	link.CreatedAt, link.UpdatedAt = ts, ts
	return nil
}

// DeleteRelationLink removes one link of a relation.
func (s *Store) DeleteRelationLink(ctx context.Context, relationID, linkID int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM dimension_relation_links WHERE id = ? AND relation_id = ?`, linkID, relationID)
	if err != nil {
		return fmt.Errorf("delete relation link: %w", err)
	}
	return requireAffected(result, pkgerrors.NotFoundf("link", "Link not found"))
}
