package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	dev := []string{"http://localhost:5173", "http://127.0.0.1:5173/"}

	tests := []struct {
		name        string
		origins     []string
		method      string
		origin      string
		preflight   bool
		allowOrigin string
		status      int
		reached     bool
	}{
		{"allowed origin", dev, http.MethodGet, "http://localhost:5173", false, "http://localhost:5173", http.StatusOK, true},
		{"trailing slash configured", dev, http.MethodGet, "http://127.0.0.1:5173", false, "http://127.0.0.1:5173", http.StatusOK, true},
		{"unknown origin", dev, http.MethodGet, "http://evil.example", false, "", http.StatusOK, true},
		{"no origin", dev, http.MethodGet, "", false, "", http.StatusOK, true},
		{"wildcard", []string{"*"}, http.MethodGet, "http://any.example", false, "*", http.StatusOK, true},
		{"preflight", dev, http.MethodOptions, "http://localhost:5173", true, "http://localhost:5173", http.StatusNoContent, false},
		{"plain options", dev, http.MethodOptions, "http://localhost:5173", false, "http://localhost:5173", http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			h := CORS(tt.origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, "/api/reference/canonical", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.reached, reached)
			assert.Equal(t, tt.allowOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSHeaders(t *testing.T) {
	h := CORS([]string{"http://localhost:5173"})(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
	assert.Equal(t, RequestIDHeader, w.Header().Get("Access-Control-Expose-Headers"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"), "methods are only sent on preflight")

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")
}

func TestCORSWildcardDoesNotSendCredentials(t *testing.T) {
	h := CORS([]string{"*"})(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://any.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}
