// Package response provides HTTP response helpers for the refdata API server.
// Successful responses are bare JSON bodies; failures carry a detail message
// and a machine-readable code.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/refdata/pkg/errors"
)

// Error is the body of every failed request.
type Error struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// Error codes.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeValidation         = "VALIDATION_ERROR"
	CodeConflict           = "CONFLICT"
	CodeConnection         = "CONNECTION_ERROR"
	CodeConfig             = "CONFIG_ERROR"
)

// JSON writes v as JSON with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding errors are ignored as headers are already sent
	_ = json.NewEncoder(w).Encode(v)
}

// Fail writes an error body.
func Fail(w http.ResponseWriter, status int, code, detail string) {
	JSON(w, status, Error{Detail: detail, Code: code})
}

// OK writes data with 200 status.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes data with 201 status.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes an empty 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, detail string) {
	Fail(w, http.StatusBadRequest, CodeBadRequest, detail)
}

// InvalidBody writes the 400 response for a malformed JSON body.
func InvalidBody(w http.ResponseWriter) {
	BadRequest(w, "Invalid request body")
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, detail string) {
	Fail(w, http.StatusNotFound, CodeNotFound, detail)
}

// MethodNotAllowed writes a 405 error response.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	Fail(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed,
		"Method "+method+" is not supported for this endpoint")
}

// InternalError writes a 500 error response without exposing err.
func InternalError(w http.ResponseWriter, _ error) {
	Fail(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
}

// ServiceUnavailable writes a 503 error response.
func ServiceUnavailable(w http.ResponseWriter, detail string) {
	Fail(w, http.StatusServiceUnavailable, CodeServiceUnavailable, detail)
}

// StatusFor returns the HTTP status and code for a typed error.
func StatusFor(err error) (int, string) {
	var (
		notFound   *errors.NotFoundError
		validation *errors.ValidationError
		conflict   *errors.ConflictError
		connection *errors.ConnectionError
		config     *errors.ConfigError
	)
	switch {
	case errors.As(err, &config):
		return http.StatusInternalServerError, CodeConfig
	case errors.As(err, &notFound):
		return http.StatusNotFound, CodeNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest, CodeValidation
	case errors.As(err, &conflict):
		return http.StatusBadRequest, CodeConflict
	case errors.As(err, &connection):
		return http.StatusBadRequest, CodeConnection
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// ErrorFromType maps typed errors to the matching HTTP response. Unknown
// errors become an opaque 500.
func ErrorFromType(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	if code == CodeInternal {
		InternalError(w, err)
		return
	}
	Fail(w, status, code, errors.Message(err))
}
