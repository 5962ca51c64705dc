package refdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/refdata/internal/config"
	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/errors"
)

// SystemConfigView is the configuration as reported to clients. The API key
// itself is never returned.
type SystemConfigView struct {
	DefaultDimension string  `json:"default_dimension"`
	MatchThreshold   float64 `json:"match_threshold"`
	MatcherBackend   string  `json:"matcher_backend"`
	EmbeddingModel   string  `json:"embedding_model"`
	LLMMode          string  `json:"llm_mode"`
	LLMModel         *string `json:"llm_model"`
	LLMAPIBase       *string `json:"llm_api_base"`
	TopK             int     `json:"top_k"`
	LLMAPIKeySet     bool    `json:"llm_api_key_set"`
}

func viewOf(cfg storage.SystemConfig) SystemConfigView {
	return SystemConfigView{
		DefaultDimension: cfg.DefaultDimension,
		MatchThreshold:   cfg.MatchThreshold,
		MatcherBackend:   cfg.MatcherBackend,
		EmbeddingModel:   cfg.EmbeddingModel,
		LLMMode:          cfg.LLMMode,
		LLMModel:         cfg.LLMModel,
		LLMAPIBase:       cfg.LLMAPIBase,
		TopK:             cfg.TopK,
		LLMAPIKeySet:     cfg.LLMAPIKey != nil && *cfg.LLMAPIKey != "",
	}
}

// SystemConfigUpdate is a partial update. Nil fields are left unchanged.
type SystemConfigUpdate struct {
	DefaultDimension *string  `json:"default_dimension"`
	MatchThreshold   *float64 `json:"match_threshold"`
	MatcherBackend   *string  `json:"matcher_backend"`
	EmbeddingModel   *string  `json:"embedding_model"`
	LLMMode          *string  `json:"llm_mode"`
	LLMModel         *string  `json:"llm_model"`
	LLMAPIBase       *string  `json:"llm_api_base"`
	TopK             *int     `json:"top_k"`
	LLMAPIKey        *string  `json:"llm_api_key"`
}

// Validate checks ranges and enumerations of the set fields.
func (u SystemConfigUpdate) Validate() error {
	if u.MatchThreshold != nil && (*u.MatchThreshold < 0 || *u.MatchThreshold > 1) {
		return errors.NewValidationError("match_threshold", *u.MatchThreshold, "match_threshold must be between 0 and 1.")
	}
	if u.TopK != nil && (*u.TopK < 1 || *u.TopK > 20) {
		return errors.NewValidationError("top_k", *u.TopK, "top_k must be between 1 and 20.")
	}
	if u.LLMAPIKey != nil && len(*u.LLMAPIKey) < 4 {
		return errors.NewValidationError("llm_api_key", "", "llm_api_key must be at least 4 characters.")
	}
	if u.MatcherBackend != nil {
		switch *u.MatcherBackend {
		case config.BackendEmbedding, config.BackendLLM:
		default:
			return errors.NewValidationError("matcher_backend", *u.MatcherBackend,
				fmt.Sprintf("matcher_backend must be %q or %q.", config.BackendEmbedding, config.BackendLLM))
		}
	}
	if u.LLMMode != nil {
		switch *u.LLMMode {
		case config.LLMModeOnline, config.LLMModeOffline:
		default:
			return errors.NewValidationError("llm_mode", *u.LLMMode,
				fmt.Sprintf("llm_mode must be %q or %q.", config.LLMModeOnline, config.LLMModeOffline))
		}
	}
	if u.DefaultDimension != nil && strings.TrimSpace(*u.DefaultDimension) == "" {
		return errors.NewValidationError("default_dimension", "", "default_dimension must not be empty.")
	}
	return nil
}

// GetConfig returns the system configuration, creating it from the
// settings when it does not exist yet.
func (h *Hub) GetConfig(ctx context.Context) (storage.SystemConfig, error) {
	cfg, err := h.store.GetSystemConfig(ctx)
	if err == nil || !errors.IsNotFound(err) {
		return cfg, err
	}
	cfg = DefaultSystemConfig(h.settings)
	if err := h.store.SaveSystemConfig(ctx, cfg); err != nil {
		return cfg, err
	}
	return h.store.GetSystemConfig(ctx)
}

// ConfigView returns the client view of the system configuration.
func (h *Hub) ConfigView(ctx context.Context) (SystemConfigView, error) {
	cfg, err := h.GetConfig(ctx)
	if err != nil {
		return SystemConfigView{}, err
	}
	return viewOf(cfg), nil
}

// UpdateConfig applies a partial update to the system configuration.
func (h *Hub) UpdateConfig(ctx context.Context, in SystemConfigUpdate) (SystemConfigView, error) {
	if err := in.Validate(); err != nil {
		return SystemConfigView{}, err
	}
	cfg, err := h.GetConfig(ctx)
	if err != nil {
		return SystemConfigView{}, err
	}

	if in.DefaultDimension != nil {
		cfg.DefaultDimension = strings.TrimSpace(*in.DefaultDimension)
	}
	if in.MatchThreshold != nil {
		cfg.MatchThreshold = *in.MatchThreshold
	}
	if in.MatcherBackend != nil {
		cfg.MatcherBackend = *in.MatcherBackend
	}
	if in.EmbeddingModel != nil {
		cfg.EmbeddingModel = strings.TrimSpace(*in.EmbeddingModel)
	}
	if in.LLMMode != nil {
		cfg.LLMMode = *in.LLMMode
	}
	if in.LLMModel != nil {
		cfg.LLMModel = trimmed(in.LLMModel)
	}
	if in.LLMAPIBase != nil {
		cfg.LLMAPIBase = trimmed(in.LLMAPIBase)
	}
	if in.TopK != nil {
		cfg.TopK = *in.TopK
	}
	if in.LLMAPIKey != nil {
		cfg.LLMAPIKey = in.LLMAPIKey
	}
	cfg.UpdatedAt = time.Now().UTC()

	if err := h.store.SaveSystemConfig(ctx, cfg); err != nil {
		return SystemConfigView{}, err
	}
	view := viewOf(cfg)
	h.hooks.trigger(ConfigUpdated, view)
	return view, nil
}
