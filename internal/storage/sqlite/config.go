package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agentstation/refdata/internal/storage"
	pkgerrors "github.com/agentstation/refdata/pkg/errors"
)

// GetSystemConfig returns the configuration row.
func (s *Store) GetSystemConfig(ctx context.Context) (storage.SystemConfig, error) {
	if err := s.ready(ctx); err != nil {
		return storage.SystemConfig{}, err
	}
	var (
		cfg       storage.SystemConfig
		model     sql.NullString
		apiBase   sql.NullString
		apiKey    sql.NullString
		updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT default_dimension, match_threshold, matcher_backend, embedding_model, llm_mode,
		        llm_model, llm_api_base, llm_api_key, top_k, updated_at
		 FROM system_config WHERE id = 1`,
	).Scan(
		&cfg.DefaultDimension,
		&cfg.MatchThreshold,
		&cfg.MatcherBackend,
		&cfg.EmbeddingModel,
		&cfg.LLMMode,
		&model,
		&apiBase,
		&apiKey,
		&cfg.TopK,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.SystemConfig{}, pkgerrors.NotFoundf("system config", "System configuration missing")
	}
	if err != nil {
		return storage.SystemConfig{}, fmt.Errorf("get system config: %w", err)
	}
	cfg.LLMModel = stringPtr(model)
	cfg.LLMAPIBase = stringPtr(apiBase)
	cfg.LLMAPIKey = stringPtr(apiKey)
	cfg.UpdatedAt = fromMillis(updatedAt)
	return cfg, nil
}

// SaveSystemConfig inserts or replaces the configuration row.
func (s *Store) SaveSystemConfig(ctx context.Context, cfg storage.SystemConfig) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = now()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO system_config (
		   id, default_dimension, match_threshold, matcher_backend, embedding_model, llm_mode,
		   llm_model, llm_api_base, llm_api_key, top_k, updated_at
		 ) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   default_dimension = excluded.default_dimension,
		   match_threshold = excluded.match_threshold,
		   matcher_backend = excluded.matcher_backend,
		   embedding_model = excluded.embedding_model,
		   llm_mode = excluded.llm_mode,
		   llm_model = excluded.llm_model,
		   llm_api_base = excluded.llm_api_base,
		   llm_api_key = excluded.llm_api_key,
		   top_k = excluded.top_k,
		   updated_at = excluded.updated_at`,
		cfg.DefaultDimension,
		cfg.MatchThreshold,
		cfg.MatcherBackend,
		cfg.EmbeddingModel,
		cfg.LLMMode,
		nullString(cfg.LLMModel),
		nullString(cfg.LLMAPIBase),
		nullString(cfg.LLMAPIKey),
		cfg.TopK,
		toMillis(cfg.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save system config: %w", err)
	}
	return nil
}
