package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{ name string }

var (
	loggerKey    = ctxKey{"logger"}
	requestIDKey = ctxKey{"request_id"}
)

// WithLogger stores logger in ctx. A nil logger stores the default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Attach stores logger in ctx unless ctx already carries one.
func Attach(ctx context.Context, logger *zerolog.Logger) context.Context {
	if _, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
			return logger
		}
	}
	return Default()
}

// Ctx is shorthand for FromContext.
func Ctx(ctx context.Context) *zerolog.Logger { return FromContext(ctx) }

// With derives the context logger through fn and stores the result.
func With(ctx context.Context, fn func(zerolog.Context) zerolog.Context) context.Context {
	logger := fn(FromContext(ctx).With()).Logger()
	return context.WithValue(ctx, loggerKey, &logger)
}

// WithRequestID records the request id and tags the context logger with it.
func WithRequestID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, id)
	return With(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("request_id", id) })
}

// RequestID returns the id set by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithConnection tags the context logger with a source connection id.
func WithConnection(ctx context.Context, id int64) context.Context {
	return With(ctx, func(c zerolog.Context) zerolog.Context { return c.Int64("connection_id", id) })
}

// WithDimension tags the context logger with a dimension code.
func WithDimension(ctx context.Context, code string) context.Context {
	return With(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("dimension", code) })
}

// WithOperation tags the context logger with the running operation.
func WithOperation(ctx context.Context, op string) context.Context {
	return With(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("operation", op) })
}

// WithError tags the context logger with err. A nil err returns ctx as is.
func WithError(ctx context.Context, err error) context.Context {
	if err == nil {
		return ctx
	}
	return With(ctx, func(c zerolog.Context) zerolog.Context { return c.Err(err) })
}
