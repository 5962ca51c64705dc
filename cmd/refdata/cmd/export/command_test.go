package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/internal/cmd/application"
	"github.com/agentstation/refdata/internal/importer"
)

func run(t *testing.T, app *application.Mock, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedMapping(t *testing.T, hub *refdata.Hub) {
	t.Helper()
	ctx := context.Background()
	conn, err := hub.CreateConnection(ctx, refdata.ConnectionCreate{Name: "crm", DBType: "postgres", Host: "crm.internal"})
	require.NoError(t, err)
	values, err := hub.ListCanonicalValues(ctx)
	require.NoError(t, err)
	_, err = hub.CreateValueMapping(ctx, conn.ID, refdata.ValueMappingCreate{
		SourceTable: "customers",
		SourceField: "status",
		RawValue:    "S",
		CanonicalID: values[0].ID,
	})
	require.NoError(t, err)
}

func TestExportCSVToStdout(t *testing.T) {
	app, hub := application.NewHubMock(t, "table")
	seedMapping(t, hub)

	out, err := run(t, app, "value-mappings")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, strings.Join(importer.ValueMappingColumns, ",")))
	assert.Contains(t, out, "customers,status,S,")
}

func TestExportXLSXToFile(t *testing.T) {
	app, hub := application.NewHubMock(t, "table")
	seedMapping(t, hub)
	path := filepath.Join(t.TempDir(), "mappings.xlsx")

	out, err := run(t, app, "value-mappings", "--format", "xlsx", "--out", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, importer.ValueMappingColumns[0], rows[0][0])
}

func TestExportErrors(t *testing.T) {
	app, _ := application.NewHubMock(t, "table")

	_, err := run(t, app, "value-mappings", "--format", "pdf")
	assert.ErrorContains(t, err, "Unsupported export format 'pdf'")

	_, err = run(t, app, "value-mappings", "--format", "xlsx")
	assert.ErrorContains(t, err, "--out")

	_, err = run(t, app, "value-mappings", "--out", filepath.Join(t.TempDir(), "missing", "out.csv"))
	assert.True(t, os.IsNotExist(err))
}
