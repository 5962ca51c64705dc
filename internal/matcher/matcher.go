// Package matcher ranks canonical values against raw input text.
//
// The embedding backend scores candidates with TF-IDF cosine similarity and
// falls back to token overlap when the corpus yields no vocabulary. The LLM
// backend asks a chat model for scores and falls back to embeddings whenever
// it produces nothing usable.
package matcher

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/refdata/internal/storage"
	"github.com/agentstation/refdata/pkg/logging"
)

// Backends.
const (
	BackendEmbedding = "embedding"
	BackendLLM       = "llm"
)

// LLM modes.
const (
	ModeOnline  = "online"
	ModeOffline = "offline"
)

// DefaultTopK is used when the configured top_k is not positive.
const DefaultTopK = 5

// Config selects and parameterizes a ranking backend.
type Config struct {
	Backend        string
	EmbeddingModel string
	LLMMode        string
	LLMModel       string
	LLMAPIBase     string
	LLMAPIKey      string
	TopK           int
}

// ConfigFromSystem builds a matcher config from the persisted system config.
func ConfigFromSystem(cfg storage.SystemConfig) Config {
	return Config{
		Backend:        cfg.MatcherBackend,
		EmbeddingModel: cfg.EmbeddingModel,
		LLMMode:        cfg.LLMMode,
		LLMModel:       deref(cfg.LLMModel),
		LLMAPIBase:     deref(cfg.LLMAPIBase),
		LLMAPIKey:      deref(cfg.LLMAPIKey),
		TopK:           cfg.TopK,
	}
}

func (c Config) topK() int {
	if c.TopK <= 0 {
		return DefaultTopK
	}
	return c.TopK
}

// Match is one ranked candidate.
type Match struct {
	CanonicalID    int64   `json:"canonical_id"`
	CanonicalLabel string  `json:"canonical_label"`
	Dimension      string  `json:"dimension"`
	Description    *string `json:"description"`
	Score          float64 `json:"score"`
}

// Matcher ranks a fixed candidate set.
type Matcher struct {
	cfg        Config
	candidates []storage.CanonicalValue
	httpClient *http.Client
	generator  Generator
	logger     *zerolog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithHTTPClient sets the client used for Ollama and OpenAI-compatible calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(m *Matcher) {
		m.httpClient = hc
	}
}

// WithGenerator replaces the Gemini text generator.
func WithGenerator(g Generator) Option {
	return func(m *Matcher) {
		m.generator = g
	}
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(logger *zerolog.Logger) Option {
	return func(m *Matcher) {
		m.logger = logger
	}
}

// New creates a matcher over the given candidates.
func New(cfg Config, candidates []storage.CanonicalValue, opts ...Option) *Matcher {
	m := &Matcher{
		cfg:        cfg,
		candidates: candidates,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rank scores every candidate against raw and returns the best top_k,
// highest score first. Blank input yields no matches.
func (m *Matcher) Rank(ctx context.Context, raw string) []Match {
	if strings.TrimSpace(raw) == "" {
		return []Match{}
	}

	if m.cfg.Backend == BackendLLM {
		if matches := m.rankWithLLM(ctx, raw); len(matches) > 0 {
			return matches
		}
	}
	return m.rankWithEmbeddings(raw)
}

func (m *Matcher) log(ctx context.Context) *zerolog.Logger {
	if m.logger != nil {
		return m.logger
	}
	return logging.FromContext(ctx)
}

func (m *Matcher) rankWithEmbeddings(raw string) []Match {
	if len(m.candidates) == 0 {
		return []Match{}
	}

	sentences := make([]string, len(m.candidates))
	for i, c := range m.candidates {
		sentences[i] = asSentence(c)
	}

	scores, ok := tfidfScores(raw, sentences)
	if !ok {
		return m.rankWithLexical(raw)
	}

	matches := make([]Match, len(m.candidates))
	for i, c := range m.candidates {
		matches[i] = newMatch(c, scores[i])
	}
	return m.finish(matches)
}

func (m *Matcher) rankWithLexical(raw string) []Match {
	rawTokens := lexicalTokens(raw)
	if len(rawTokens) == 0 {
		return []Match{}
	}

	matches := make([]Match, 0, len(m.candidates))
	for _, c := range m.candidates {
		tokens := lexicalTokens(asSentence(c))
		if len(tokens) == 0 {
			continue
		}
		matches = append(matches, newMatch(c, jaccard(rawTokens, tokens)))
	}
	return m.finish(matches)
}

// finish sorts by score descending, keeping candidate order for ties, and truncates.
func (m *Matcher) finish(matches []Match) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if k := m.cfg.topK(); len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func newMatch(c storage.CanonicalValue, score float64) Match {
	return Match{
		CanonicalID:    c.ID,
		CanonicalLabel: c.CanonicalLabel,
		Dimension:      c.Dimension,
		Description:    c.Description,
		Score:          round4(clamp(score)),
	}
}

func asSentence(c storage.CanonicalValue) string {
	if c.Description != nil && *c.Description != "" {
		return c.CanonicalLabel + ". " + *c.Description
	}
	return c.CanonicalLabel
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
