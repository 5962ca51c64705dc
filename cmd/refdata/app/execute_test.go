package app

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteListDimensions(t *testing.T) {
	app := newTestApp(t)

	root := app.createRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"list", "dimensions", "-o", "json"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	var dims []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &dims))
	assert.Len(t, dims, 3)
	assert.Equal(t, "json", app.OutputFormat())
}

func TestExecuteRejectsUnknownFormat(t *testing.T) {
	app := newTestApp(t)

	err := app.Execute(context.Background(), []string{"list", "dimensions", "-o", "xml"})
	assert.ErrorContains(t, err, `invalid format "xml"`)
}

func TestExecuteVersion(t *testing.T) {
	app := newTestApp(t)

	root := app.createRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "refdata 1.0.0\n", out.String())
}

func TestRootCommandGroups(t *testing.T) {
	app := newTestApp(t)
	root := app.createRootCommand()

	groups := map[string]string{}
	for _, c := range root.Commands() {
		groups[c.Name()] = c.GroupID
	}
	assert.Equal(t, "core", groups["serve"])
	assert.Equal(t, "core", groups["match"])
	assert.Equal(t, "management", groups["import"])
	assert.Equal(t, "management", groups["migrate"])
}
