package middleware

import (
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/refdata/internal/server/response"
)

// PublicPaths are served without an API key.
var PublicPaths = []string{"/health", "/api/ready"}

// APIKey guards the API with a shared key.
type APIKey struct {
	// Key is the expected secret. An empty key rejects every guarded request.
	Key string
	// Header carries the key. Authorization with or without "Bearer " is
	// accepted too.
	Header string
	// Public paths skip the check.
	Public []string
}

// Middleware rejects guarded requests whose key does not match with 401.
// CORS preflights pass so browsers can learn the allowed headers.
func (a APIKey) Middleware(logger *zerolog.Logger) func(http.Handler) http.Handler {
	if a.Header == "" {
		a.Header = "X-API-Key"
	}
	want := []byte(a.Key)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || slices.Contains(a.Public, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			got := a.presented(r)
			if len(want) > 0 && subtle.ConstantTimeCompare([]byte(got), want) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn().
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Bool("key_provided", got != "").
				Msg("Authentication failed")
			response.Fail(w, http.StatusUnauthorized, response.CodeUnauthorized,
				"Invalid or missing API key. Provide it in the "+a.Header+" header.")
		})
	}
}

func (a APIKey) presented(r *http.Request) string {
	if key := r.Header.Get(a.Header); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return auth
}
