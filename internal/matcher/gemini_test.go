package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/agentstation/refdata/pkg/errors"
)

func TestNewGeminiGeneratorReadsEnvironment(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "refdata-dev")
	t.Setenv("GOOGLE_CLOUD_LOCATION", "")

	g := newGeminiGenerator("", "")
	assert.Equal(t, "refdata-dev", g.project)
	assert.Equal(t, DefaultVertexLocation, g.location)
}

func TestGeminiClientConfigWithAPIKey(t *testing.T) {
	g := &geminiGenerator{apiKey: "key", baseURL: "http://127.0.0.1:9999"}

	cfg, err := g.clientConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, genai.BackendGeminiAPI, cfg.Backend)
	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, "http://127.0.0.1:9999", cfg.HTTPOptions.BaseURL)
}

func TestGeminiClientConfigNeedsKeyOrProject(t *testing.T) {
	g := &geminiGenerator{}

	_, err := g.clientConfig(context.Background())
	var cfgErr *errors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "gemini", cfgErr.Component)
}
