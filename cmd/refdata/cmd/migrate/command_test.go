package migrate

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/refdata/internal/cmd/application"
	"github.com/agentstation/refdata/internal/config"
)

func newMock(t *testing.T, format string) *application.Mock {
	t.Helper()
	settings := config.Default()
	settings.DatabaseURL = "sqlite:///" + filepath.Join(t.TempDir(), "hub.db")
	return &application.Mock{
		SettingsFunc:     func() *config.Settings { return settings },
		OutputFormatFunc: func() string { return format },
	}
}

func run(t *testing.T, app *application.Mock) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(nil)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateIsIdempotent(t *testing.T) {
	app := newMock(t, "json")

	out, err := run(t, app)
	require.NoError(t, err)
	var first Result
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.NotEmpty(t, first.Applied)
	assert.True(t, first.ConfigCreated)
	assert.Equal(t, 6, first.CanonicalValues)
	assert.Equal(t, 3, first.Dimensions)

	out, err = run(t, app)
	require.NoError(t, err)
	var second Result
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.Empty(t, second.Applied)
	assert.False(t, second.ConfigCreated)
	assert.Zero(t, second.CanonicalValues)
}

func TestMigrateTableOutput(t *testing.T) {
	app := newMock(t, "table")

	out, err := run(t, app)
	require.NoError(t, err)
	assert.Contains(t, out, "applied")
	assert.Contains(t, out, "seeded 6 canonical values")

	out, err = run(t, app)
	require.NoError(t, err)
	assert.Contains(t, out, "is up to date")
}

func TestMigrateRejectsNonSQLite(t *testing.T) {
	app := newMock(t, "json")
	app.Settings().DatabaseURL = "postgres://localhost/refdata"

	_, err := run(t, app)
	assert.ErrorContains(t, err, "only sqlite")
}
