package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/refdata/pkg/errors"
)

func TestClientPostJSON(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(Bearer, "secret")
	var out struct {
		OK bool `json:"ok"`
	}
	err := client.PostJSON(context.Background(), srv.URL+"/chat", map[string]any{"model": "m"}, &out)
	require.NoError(t, err)

	assert.True(t, out.OK)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "m", gotBody["model"])
}

func TestClientWithoutKeySkipsAuth(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var out map[string]any
	require.NoError(t, New(Bearer, "").PostJSON(context.Background(), srv.URL, struct{}{}, &out))
	assert.Empty(t, gotAuth)
}

func TestDecodeResponseErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rateLimited bool
		unavailable bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", rateLimited: true},
		{name: "server error", status: http.StatusBadGateway, body: "bad gateway", unavailable: true},
		{name: "client error", status: http.StatusUnauthorized, body: "no"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var out map[string]any
			err := New(nil, "").PostJSON(context.Background(), srv.URL, struct{}{}, &out)
			require.Error(t, err)

			var apiErr *errors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.body, apiErr.Message)
			assert.Equal(t, tt.rateLimited, errors.IsRateLimited(err))
			assert.Equal(t, tt.unavailable, errors.Is(err, errors.ErrUpstreamUnavailable))
		})
	}
}

func TestDecodeResponseInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	var out map[string]any
	err := New(nil, "").PostJSON(context.Background(), srv.URL, struct{}{}, &out)
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}
