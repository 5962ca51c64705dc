package errors

import (
	"fmt"
	"net/http"
)

// NotFoundError reports a missing resource. Message, when set, is the
// complete text, e.g. "Connection not found".
type NotFoundError struct {
	Resource string
	ID       string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Detail() string       { return e.Error() }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError reports resource id as missing.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NotFoundf reports resource as missing with a formatted message.
func NotFoundf(resource, format string, args ...any) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: fmt.Sprintf(format, args...)}
}

// ValidationError rejects caller input. Message is shown to the caller;
// Error adds the field for logs.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Detail() string       { return e.Message }
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError rejects value of field with message.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Invalidf rejects input with a formatted message and no field.
func Invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a uniqueness violation, usually wrapping the
// driver's constraint error.
type ConflictError struct {
	Resource string
	Message  string
	Err      error
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Resource + " already exists"
}

func (e *ConflictError) Detail() string       { return e.Error() }
func (e *ConflictError) Unwrap() error        { return e.Err }
func (e *ConflictError) Is(target error) bool { return target == ErrAlreadyExists }

// NewConflictError reports that resource already exists.
func NewConflictError(resource, message string, err error) *ConflictError {
	return &ConflictError{Resource: resource, Message: message, Err: err}
}

// ConnectionError reports that a source database could not be opened or
// introspected.
type ConnectionError struct {
	DBType  string
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return "connection to " + e.DBType + " failed"
}

func (e *ConnectionError) Detail() string       { return e.Error() }
func (e *ConnectionError) Unwrap() error        { return e.Err }
func (e *ConnectionError) Is(target error) bool { return target == ErrConnectionFailed }

// NewConnectionError reports a failed dbType connection.
func NewConnectionError(dbType, message string, err error) *ConnectionError {
	return &ConnectionError{DBType: dbType, Message: message, Err: err}
}

// WrapConnection wraps err as a dbType connection failure. Nil stays nil.
func WrapConnection(dbType string, err error) error {
	if err == nil {
		return nil
	}
	return &ConnectionError{DBType: dbType, Err: err}
}

// APIError is a failed call to an upstream HTTP API such as an LLM
// endpoint. StatusCode is zero when no response arrived.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("API error from %s: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("API error from %s (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return target == ErrRateLimited
	case e.StatusCode >= http.StatusInternalServerError:
		return target == ErrUpstreamUnavailable
	}
	return false
}

// NewAPIError reports a failed response from service.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// WrapAPI wraps a transport failure talking to service. Nil stays nil.
func WrapAPI(service string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{Service: service, StatusCode: statusCode, Message: err.Error(), Err: err}
}

// ConfigError reports invalid or missing configuration. The HTTP layer
// treats it as a server fault.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Component == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
}

func (e *ConfigError) Detail() string { return e.Message }
func (e *ConfigError) Unwrap() error  { return e.Err }

// NewConfigError reports a configuration problem in component.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ParseError reports malformed input in a data format such as csv, xlsx
// or json.
type ParseError struct {
	Format  string
	File    string
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	case e.File != "":
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError reports malformed format input read from file.
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// WrapParse wraps a decoder error. Nil stays nil.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// IOError reports a failed read, write, query or exec against path, which
// may name a file, table or URL.
type IOError struct {
	Operation string
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// WrapIO wraps err from operation on path. Nil stays nil.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}
