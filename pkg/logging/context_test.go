package logging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/refdata/pkg/logging"
)

func TestFromContext(t *testing.T) {
	assert.Same(t, logging.Default(), logging.FromContext(context.Background()))

	capture := logging.NewCapture(t)
	ctx := logging.WithLogger(context.Background(), capture.Logger)
	assert.Same(t, capture.Logger, logging.Ctx(ctx))
}

func TestAttach(t *testing.T) {
	first, second := logging.NewCapture(t), logging.NewCapture(t)

	ctx := logging.Attach(context.Background(), first.Logger)
	ctx = logging.Attach(ctx, second.Logger)
	assert.Same(t, first.Logger, logging.FromContext(ctx))

	bare := context.Background()
	assert.Equal(t, bare, logging.Attach(bare, nil))
}

func TestContextFields(t *testing.T) {
	capture := logging.NewCapture(t)
	ctx := logging.WithLogger(context.Background(), capture.Logger)
	ctx = logging.WithConnection(ctx, 7)
	ctx = logging.WithDimension(ctx, "marital_status")
	ctx = logging.WithOperation(ctx, "match_stats")
	ctx = logging.WithError(ctx, errors.New("boom"))

	logging.FromContext(ctx).Info().Msg("done")

	entry, ok := capture.Find("done")
	require.True(t, ok)
	assert.EqualValues(t, 7, entry["connection_id"])
	assert.Equal(t, "marital_status", entry["dimension"])
	assert.Equal(t, "match_stats", entry["operation"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "info", entry["level"])
}

func TestRequestID(t *testing.T) {
	capture := logging.NewCapture(t)
	ctx := logging.WithLogger(context.Background(), capture.Logger)
	ctx = logging.WithRequestID(ctx, "req-123")

	assert.Equal(t, "req-123", logging.RequestID(ctx))
	assert.Empty(t, logging.RequestID(context.Background()))

	logging.FromContext(ctx).Info().Msg("handled")
	entry, ok := capture.Find("handled")
	require.True(t, ok)
	assert.Equal(t, "req-123", entry["request_id"])
}

func TestWithErrorNil(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, logging.WithError(ctx, nil))
}
