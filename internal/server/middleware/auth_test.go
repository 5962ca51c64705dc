package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/agentstation/refdata/internal/server/response"
)

func TestAPIKey(t *testing.T) {
	logger := zerolog.Nop()
	guard := APIKey{Key: "secret", Public: PublicPaths}

	tests := []struct {
		name    string
		guard   APIKey
		method  string
		path    string
		headers map[string]string
		status  int
	}{
		{"public health", guard, http.MethodGet, "/health", nil, http.StatusOK},
		{"public ready", guard, http.MethodGet, "/api/ready", nil, http.StatusOK},
		{"missing key", guard, http.MethodGet, "/api/config", nil, http.StatusUnauthorized},
		{"wrong key", guard, http.MethodGet, "/api/config", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", guard, http.MethodGet, "/api/config", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"custom header", APIKey{Key: "secret", Header: "X-Hub-Key"}, http.MethodGet, "/api/config", map[string]string{"X-Hub-Key": "secret"}, http.StatusOK},
		{"bearer key", guard, http.MethodGet, "/api/config", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"raw authorization", guard, http.MethodGet, "/api/config", map[string]string{"Authorization": "secret"}, http.StatusOK},
		{"preflight", guard, http.MethodOptions, "/api/config", nil, http.StatusOK},
		{"no server key", APIKey{}, http.MethodGet, "/api/config", map[string]string{"X-API-Key": ""}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.guard.Middleware(&logger)(http.HandlerFunc(okHandler))
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, response.CodeUnauthorized, decodeError(t, w).Code)
			}
		})
	}
}
