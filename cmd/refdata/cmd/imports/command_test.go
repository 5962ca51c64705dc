package imports

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/internal/cmd/application"
	"github.com/agentstation/refdata/internal/importer"
)

func run(t *testing.T, app *application.Mock, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestImportCanonical(t *testing.T) {
	app, hub := application.NewHubMock(t, "table")
	path := writeFile(t, "marital.csv", "label\nWidowed\nDivorced\n")

	out, err := run(t, app, "canonical", path, "--dimension", "marital_status")
	require.NoError(t, err)
	assert.Contains(t, out, "2 created")

	values, err := hub.ListCanonicalValues(context.Background())
	require.NoError(t, err)
	assert.Len(t, values, 8)
}

func TestImportCanonicalWithMapping(t *testing.T) {
	app, hub := application.NewHubMock(t, "json")
	ctx := context.Background()

	_, err := hub.CreateDimension(ctx, refdata.DimensionCreate{Code: "region", Label: "Region"})
	require.NoError(t, err)

	data := writeFile(t, "regions.csv", "Region Name,Code\nAbu Dhabi,01\n,02\n")
	mapping := writeFile(t, "mapping.json", `{"label":"Region Name","default_dimension":"region"}`)

	out, err := run(t, app, "canonical", data, "--mapping", mapping)
	require.NoError(t, err)

	var result refdata.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Created, 1)
	assert.Equal(t, "Abu Dhabi", result.Created[0].CanonicalLabel)
	assert.Equal(t, "region", result.Created[0].Dimension)
}

func TestImportCanonicalBadMapping(t *testing.T) {
	app, _ := application.NewHubMock(t, "json")
	data := writeFile(t, "values.csv", "label\nFoo\n")
	mapping := writeFile(t, "mapping.json", `{"label":`)

	_, err := run(t, app, "canonical", data, "--mapping", mapping)
	assert.ErrorContains(t, err, "parsing mapping")
}

func TestImportCanonicalPreview(t *testing.T) {
	app, hub := application.NewHubMock(t, "json")
	path := writeFile(t, "regions.csv", "Region Label,Numeric Code\nAbu Dhabi,01\n")

	out, err := run(t, app, "canonical", path, "--preview")
	require.NoError(t, err)

	var preview importer.Preview
	require.NoError(t, json.Unmarshal([]byte(out), &preview))
	require.Len(t, preview.Columns, 2)
	assert.Equal(t, "Region Label", preview.Columns[0].Name)

	values, err := hub.ListCanonicalValues(context.Background())
	require.NoError(t, err)
	assert.Len(t, values, 6, "preview must not import")
}

func TestImportValueMappings(t *testing.T) {
	app, hub := application.NewHubMock(t, "table")
	ctx := context.Background()

	conn, err := hub.CreateConnection(ctx, refdata.ConnectionCreate{Name: "crm", DBType: "postgres", Host: "crm.internal"})
	require.NoError(t, err)
	values, err := hub.ListCanonicalValues(ctx)
	require.NoError(t, err)

	path := writeFile(t, "mappings.csv",
		"source_table,source_field,raw_value,canonical_id\n"+
			"customers,status,S,"+strconv.FormatInt(values[0].ID, 10)+"\n"+
			"customers,status,X,9999\n")

	out, err := run(t, app, "value-mappings", path, "--connection", strconv.FormatInt(conn.ID, 10))
	require.NoError(t, err)
	assert.Contains(t, out, "1 created")
	assert.Contains(t, out, "Row 3")
}

func TestImportMissingFile(t *testing.T) {
	app, _ := application.NewHubMock(t, "json")

	_, err := run(t, app, "canonical", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
