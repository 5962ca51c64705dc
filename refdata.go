// Package refdata is the RefData Hub: canonical reference values grouped
// into dimensions, connections to operational source databases, and the
// mappings between raw source values and canonical values.
//
// A Hub wraps a storage.Store with validation, semantic matching and change
// hooks. The HTTP server and the CLI are both thin layers over a Hub.
package refdata

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agentstation/refdata/internal/config"
	"github.com/agentstation/refdata/internal/matcher"
	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/internal/storage/sqlite"
	"github.com/agentstation/refdata/pkg/errors"
	"github.com/agentstation/refdata/pkg/logging"
)

// Hub implements the hub operations over a store.
type Hub struct {
	store       storage.Store
	settings    *config.Settings
	hooks       *hooks
	matcherOpts []matcher.Option
	logger      *zerolog.Logger
}

// New creates a Hub over store.
func New(store storage.Store, opts ...Option) (*Hub, error) {
	if store == nil {
		return nil, errors.NewConfigError("hub", "store is required", nil)
	}
	h := &Hub{
		store:    store,
		settings: config.Default(),
		hooks:    newHooks(),
		logger:   logging.Default(),
	}
	if err := h.options(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}
	return h, nil
}

// Open opens the SQLite store named by settings, applies migrations and
// seeds, and returns a Hub over it. Closing the Hub closes the store.
func Open(ctx context.Context, settings *config.Settings, opts ...Option) (*Hub, error) {
	store, _, err := OpenStore(ctx, settings)
	if err != nil {
		return nil, err
	}
	hub, err := New(store, append([]Option{WithSettings(settings)}, opts...)...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return hub, nil
}

// OpenStore opens and seeds the SQLite store named by settings.
func OpenStore(ctx context.Context, settings *config.Settings) (*sqlite.Store, sqlite.SeedResult, error) {
	path, err := settings.SQLitePath()
	if err != nil {
		return nil, sqlite.SeedResult{}, err
	}
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, sqlite.SeedResult{}, errors.WrapIO("open", path, err)
	}
	seeded, err := store.Seed(ctx, DefaultSystemConfig(settings))
	if err != nil {
		_ = store.Close()
		return nil, sqlite.SeedResult{}, fmt.Errorf("seeding store: %w", err)
	}
	return store, seeded, nil
}

// DefaultSystemConfig is the configuration row written when none exists.
func DefaultSystemConfig(s *config.Settings) storage.SystemConfig {
	return storage.SystemConfig{
		DefaultDimension: s.DefaultDimension,
		MatchThreshold:   s.MatchThreshold,
		MatcherBackend:   s.MatcherBackend,
		EmbeddingModel:   s.EmbeddingModel,
		LLMMode:          s.LLMMode,
		LLMModel:         optional(s.LLMModel),
		LLMAPIBase:       optional(s.LLMAPIBase),
		LLMAPIKey:        optional(s.LLMAPIKey),
		TopK:             s.TopK,
	}
}

// Store returns the underlying store.
func (h *Hub) Store() storage.Store {
	return h.store
}

// Settings returns the settings the hub was created with.
func (h *Hub) Settings() *config.Settings {
	return h.settings
}

// Close closes the underlying store.
func (h *Hub) Close() error {
	return h.store.Close()
}

// newMatcher builds a matcher over candidates. When the stored config has
// no API key the vendor environment variable for the model is used.
func (h *Hub) newMatcher(cfg storage.SystemConfig, candidates []storage.CanonicalValue) *matcher.Matcher {
	mcfg := matcher.ConfigFromSystem(cfg)
	if mcfg.Backend == matcher.BackendLLM && mcfg.LLMMode == matcher.ModeOnline {
		mcfg.LLMAPIKey = config.LLMAPIKey(mcfg.LLMAPIKey, mcfg.LLMModel)
	}
	opts := append([]matcher.Option{matcher.WithLogger(h.logger)}, h.matcherOpts...)
	return matcher.New(mcfg, candidates, opts...)
}

// systemConfig loads the configuration row. A missing row is a server
// misconfiguration rather than a missing resource.
func (h *Hub) systemConfig(ctx context.Context) (storage.SystemConfig, error) {
	cfg, err := h.store.GetSystemConfig(ctx)
	if errors.IsNotFound(err) {
		return cfg, errors.NewConfigError("system config", "System configuration missing", err)
	}
	return cfg, err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
