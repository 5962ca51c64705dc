package transport

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuth(t *testing.T) {
	tests := []struct {
		name string
		auth Auth
		want http.Header
	}{
		{"none", None, http.Header{}},
		{"bearer", Bearer, http.Header{"Authorization": {"Bearer sk-test"}}},
		{"header", Header("api-key"), http.Header{"Api-Key": {"sk-test"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &http.Request{Header: make(http.Header)}
			tt.auth(req, "sk-test")
			assert.Equal(t, tt.want, req.Header)
		})
	}
}
