package serve

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/refdata/internal/cmd/application"
	"github.com/agentstation/refdata/internal/config"
	"github.com/agentstation/refdata/internal/server"
)

func TestParseConfig(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("HTTP_HOST", "")
	t.Setenv("REFDATA_API_KEY", "")

	settings := config.Default()
	settings.CORSOrigins = []string{"http://localhost:5173"}

	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		check   func(t *testing.T, cfg server.Config)
		wantErr string
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg server.Config) {
				assert.Equal(t, 8000, cfg.Port)
				assert.Equal(t, "localhost", cfg.Host)
				assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
				assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
				assert.False(t, cfg.AuthEnabled)
			},
		},
		{
			name: "flags",
			args: []string{"--port", "9001", "--host", "0.0.0.0", "--cache-ttl", "60", "--rate-limit", "0"},
			check: func(t *testing.T, cfg server.Config) {
				assert.Equal(t, 9001, cfg.Port)
				assert.Equal(t, "0.0.0.0", cfg.Host)
				assert.Equal(t, time.Minute, cfg.CacheTTL)
				assert.Zero(t, cfg.RateLimit)
			},
		},
		{
			name: "explicit origins replace settings",
			args: []string{"--cors-origins", "https://a.example,https://b.example"},
			check: func(t *testing.T, cfg server.Config) {
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
			},
		},
		{
			name: "cors allows all",
			args: []string{"--cors"},
			check: func(t *testing.T, cfg server.Config) {
				assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
			},
		},
		{
			name: "environment overrides",
			env:  map[string]string{"HTTP_PORT": "7000", "HTTP_HOST": "127.0.0.1", "REFDATA_API_KEY": "secret"},
			args: []string{"--auth"},
			check: func(t *testing.T, cfg server.Config) {
				assert.Equal(t, 7000, cfg.Port)
				assert.Equal(t, "127.0.0.1", cfg.Host)
				assert.True(t, cfg.AuthEnabled)
				assert.Equal(t, "secret", cfg.APIKey)
			},
		},
		{
			name:    "invalid port env",
			env:     map[string]string{"HTTP_PORT": "99999"},
			wantErr: "port out of range",
		},
		{
			name:    "auth without key",
			args:    []string{"--auth"},
			wantErr: "--auth requires",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cmd := NewCommand(&application.Mock{})
			require.NoError(t, cmd.ParseFlags(tt.args))

			cfg, err := parseConfig(cmd, settings)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

// syncBuffer guards output written by the listener goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("HTTP_HOST", "")
	app, _ := application.NewHubMock(t, "table")

	cmd := NewCommand(app)
	var out syncBuffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--host", "127.0.0.1", "--port", "0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "listening")
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Contains(t, out.String(), "Server stopped")
}
