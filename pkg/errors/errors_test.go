package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/refdata/pkg/errors"
)

func TestNotFoundError(t *testing.T) {
	err := pkgerrors.NewNotFoundError("connection", "42")
	assert.Equal(t, "connection with ID 42 not found", err.Error())
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	custom := pkgerrors.NotFoundf("dimension", "Dimension '%s' not found.", "region")
	assert.Equal(t, "Dimension 'region' not found.", custom.Error())

	wrapped := fmt.Errorf("update canonical: %w", pkgerrors.NewNotFoundError("canonical value", "7"))
	assert.True(t, pkgerrors.IsNotFound(wrapped))
	assert.Equal(t, "canonical value with ID 7 not found", pkgerrors.Message(wrapped))
}

func TestValidationError(t *testing.T) {
	err := &pkgerrors.ValidationError{Field: "port", Message: "must be between 1 and 65535"}
	assert.Equal(t, "validation failed for field port: must be between 1 and 65535", err.Error())
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)

	bare := pkgerrors.Invalidf("Unsupported data type '%s'.", "date")
	assert.Equal(t, "validation failed: Unsupported data type 'date'.", bare.Error())

	wrapped := fmt.Errorf("create dimension: %w", pkgerrors.NewValidationError("key", "", "Dimension field keys cannot be empty."))
	assert.True(t, pkgerrors.IsValidationError(wrapped))
	assert.Equal(t, "Dimension field keys cannot be empty.", pkgerrors.Message(wrapped))
}

func TestConflictError(t *testing.T) {
	base := errors.New("UNIQUE constraint failed: source_connections.name")
	err := pkgerrors.NewConflictError("connection", "Connection name must be unique", base)

	assert.Equal(t, "Connection name must be unique", err.Error())
	assert.True(t, pkgerrors.IsAlreadyExists(err))
	assert.ErrorIs(t, err, base)

	assert.Equal(t, "relation already exists", (&pkgerrors.ConflictError{Resource: "relation"}).Error())
}

func TestConnectionError(t *testing.T) {
	err := pkgerrors.NewConnectionError("sqlite", "Database path is required for sqlite connections", nil)
	assert.Equal(t, "Database path is required for sqlite connections", err.Error())
	assert.True(t, pkgerrors.IsConnectionError(err))

	cause := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	wrapped := pkgerrors.WrapConnection("postgres", cause)
	require.Error(t, wrapped)
	assert.Equal(t, cause.Error(), wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)

	assert.Equal(t, "connection to mysql failed", (&pkgerrors.ConnectionError{DBType: "mysql"}).Error())
	assert.NoError(t, pkgerrors.WrapConnection("postgres", nil))
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		target     error
		want       bool
	}{
		{"rate limited", 429, pkgerrors.ErrRateLimited, true},
		{"server error", 503, pkgerrors.ErrUpstreamUnavailable, true},
		{"client error", 400, pkgerrors.ErrUpstreamUnavailable, false},
		{"no response", 0, pkgerrors.ErrRateLimited, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pkgerrors.NewAPIError("ollama", tt.statusCode, "boom")
			assert.Equal(t, tt.want, errors.Is(err, tt.target))
			assert.Contains(t, err.Error(), "ollama")
		})
	}
}

func TestConfigError(t *testing.T) {
	cause := errors.New("strconv.ParseFloat: invalid syntax")
	err := pkgerrors.NewConfigError("settings", "match_threshold must be between 0 and 1", cause)

	assert.Equal(t, "configuration error in settings: match_threshold must be between 0 and 1", err.Error())
	assert.Equal(t, "match_threshold must be between 0 and 1", pkgerrors.Message(err))
	assert.ErrorIs(t, err, cause)
}

func TestMessageFallsBackToError(t *testing.T) {
	assert.Equal(t, "plain", pkgerrors.Message(errors.New("plain")))

	io := pkgerrors.WrapIO("exec", "canonical_values", errors.New("disk full"))
	assert.Equal(t, "exec canonical_values failed: disk full", pkgerrors.Message(io))
}

func TestWrapHelpers(t *testing.T) {
	cause := errors.New("disk full")

	assert.NoError(t, pkgerrors.WrapIO("write", "x", nil))
	assert.NoError(t, pkgerrors.WrapParse("csv", "x", nil))
	assert.NoError(t, pkgerrors.WrapAPI("openai", 500, nil))

	var ioErr *pkgerrors.IOError
	require.ErrorAs(t, pkgerrors.WrapIO("exec", "canonical_values", cause), &ioErr)
	assert.Equal(t, "exec", ioErr.Operation)
	assert.ErrorIs(t, ioErr, cause)

	parse := pkgerrors.WrapParse("xlsx", "values.xlsx", cause)
	assert.Equal(t, "parse error in xlsx file values.xlsx: disk full", parse.Error())

	api := pkgerrors.WrapAPI("openai", 0, cause)
	assert.Equal(t, "API error from openai: disk full", api.Error())
	assert.ErrorIs(t, api, cause)
}
