package logging

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARNING", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_FIELDS", "service:refdata,env:test")
	t.Setenv("NO_COLOR", "yes")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, map[string]string{"service": "refdata", "env": "test"}, cfg.Fields)
}

func TestWriter(t *testing.T) {
	assert.Equal(t, io.Discard, writer(Config{Output: "discard", Format: "json"}))
	assert.Equal(t, os.Stdout, writer(Config{Output: "stdout", Format: "json"}))

	cw, ok := writer(Config{Output: "discard", Format: "console"}).(zerolog.ConsoleWriter)
	require.True(t, ok)
	assert.Equal(t, io.Discard, cw.Out)
}

func TestNewWritesToFile(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	path := filepath.Join(t.TempDir(), "refdata.log")
	logger := New(Config{
		Level:  "info",
		Format: "json",
		Output: path,
		Fields: map[string]string{"service": "refdata"},
	})
	logger.Debug().Msg("hidden")
	logger.Info().Msg("visible")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"refdata"`)
	assert.Contains(t, string(data), `"message":"visible"`)
	assert.NotContains(t, string(data), "hidden")
}
