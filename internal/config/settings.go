// Package config loads the hub settings from REFDATA_ environment variables
// and exposes helpers for values that may also live in viper.
package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentstation/refdata/pkg/errors"
)

// Matcher backends.
const (
	BackendEmbedding = "embedding"
	BackendLLM       = "llm"
)

// LLM modes.
const (
	LLMModeOnline  = "online"
	LLMModeOffline = "offline"
)

// DefaultCORSOrigins are used when no origins are configured.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}

// Settings are the hub settings read from the environment.
type Settings struct {
	DatabaseURL      string  `env:"REFDATA_DATABASE_URL" envDefault:"sqlite:///refdata.db"`
	RawCORSOrigins   string  `env:"REFDATA_CORS_ORIGINS"`
	DefaultDimension string  `env:"REFDATA_DEFAULT_DIMENSION" envDefault:"general"`
	MatchThreshold   float64 `env:"REFDATA_MATCH_THRESHOLD" envDefault:"0.6"`
	MatcherBackend   string  `env:"REFDATA_MATCHER_BACKEND" envDefault:"embedding"`
	EmbeddingModel   string  `env:"REFDATA_EMBEDDING_MODEL" envDefault:"tfidf"`
	LLMMode          string  `env:"REFDATA_LLM_MODE" envDefault:"online"`
	LLMModel         string  `env:"REFDATA_LLM_MODEL" envDefault:"gpt-3.5-turbo"`
	LLMAPIBase       string  `env:"REFDATA_LLM_API_BASE"`
	LLMAPIKey        string  `env:"REFDATA_LLM_API_KEY"`
	TopK             int     `env:"REFDATA_TOP_K" envDefault:"5"`

	// CORSOrigins is derived from RawCORSOrigins by Load.
	CORSOrigins []string `env:"-"`
}

// Load reads and validates settings from the environment.
func Load() (*Settings, error) {
	s := &Settings{}
	if err := ParseEnv(s); err != nil {
		return nil, errors.NewConfigError("settings", err.Error(), err)
	}
	if err := s.finalize(); err != nil {
		return nil, err
	}
	return s, nil
}

// Default returns settings populated with defaults only.
func Default() *Settings {
	return &Settings{
		DatabaseURL:      "sqlite:///refdata.db",
		DefaultDimension: "general",
		MatchThreshold:   0.6,
		MatcherBackend:   BackendEmbedding,
		EmbeddingModel:   "tfidf",
		LLMMode:          LLMModeOnline,
		LLMModel:         "gpt-3.5-turbo",
		TopK:             5,
		CORSOrigins:      append([]string(nil), DefaultCORSOrigins...),
	}
}

func (s *Settings) finalize() error {
	origins, err := ParseCORSOrigins(s.RawCORSOrigins)
	if err != nil {
		return errors.NewConfigError("settings", err.Error(), err)
	}
	s.CORSOrigins = origins
	return s.Validate()
}

// Validate checks value ranges and enumerations.
func (s *Settings) Validate() error {
	if s.MatchThreshold < 0 || s.MatchThreshold > 1 {
		return errors.NewConfigError("settings", "match_threshold must be between 0 and 1", nil)
	}
	if s.TopK < 1 || s.TopK > 20 {
		return errors.NewConfigError("settings", "top_k must be between 1 and 20", nil)
	}
	switch s.MatcherBackend {
	case BackendEmbedding, BackendLLM:
	default:
		return errors.NewConfigError("settings", fmt.Sprintf("matcher_backend must be %q or %q", BackendEmbedding, BackendLLM), nil)
	}
	switch s.LLMMode {
	case LLMModeOnline, LLMModeOffline:
	default:
		return errors.NewConfigError("settings", fmt.Sprintf("llm_mode must be %q or %q", LLMModeOnline, LLMModeOffline), nil)
	}
	return nil
}

// ParseCORSOrigins accepts a JSON list, a JSON string or a comma separated
// list. Blank input or an empty list yields DefaultCORSOrigins.
func ParseCORSOrigins(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultOrigins(), nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return splitOrigins(strings.Split(raw, ","))
	}

	switch v := decoded.(type) {
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, errors.New("CORS origins must be a list of strings")
			}
			items = append(items, str)
		}
		return splitOrigins(items)
	case string:
		return splitOrigins([]string{v})
	default:
		return nil, errors.New("CORS origins must be a list of strings")
	}
}

func splitOrigins(items []string) ([]string, error) {
	origins := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return defaultOrigins(), nil
	}
	return origins, nil
}

func defaultOrigins() []string {
	return append([]string(nil), DefaultCORSOrigins...)
}

// SQLitePath resolves DatabaseURL into a path or DSN for the sqlite driver.
// Accepted forms are sqlite:///relative.db, sqlite:////abs.db, sqlite://
// (in-memory), file: DSNs and bare paths.
func (s *Settings) SQLitePath() (string, error) {
	url := strings.TrimSpace(s.DatabaseURL)
	switch {
	case url == "", url == "sqlite://", url == "sqlite:///:memory:", url == ":memory:":
		return ":memory:", nil
	case strings.HasPrefix(url, "sqlite:///"):
		return strings.TrimPrefix(url, "sqlite:///"), nil
	case strings.HasPrefix(url, "file:"):
		return url, nil
	case strings.Contains(url, "://"):
		return "", errors.NewConfigError("settings", fmt.Sprintf("unsupported database url %q: only sqlite is supported for hub storage", url), nil)
	default:
		return url, nil
	}
}
