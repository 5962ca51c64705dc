package transport

import "net/http"

// Auth writes credentials for key onto an outgoing request.
type Auth func(req *http.Request, key string)

// None sends no credentials. Local Ollama servers need none.
func None(*http.Request, string) {}

// Bearer sends key as an OAuth2 bearer token.
func Bearer(req *http.Request, key string) {
	req.Header.Set("Authorization", "Bearer "+key)
}

// Header sends key verbatim in the named header.
func Header(name string) Auth {
	return func(req *http.Request, key string) {
		req.Header.Set(name, key)
	}
}
