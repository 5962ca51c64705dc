package list

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/internal/cmd/application"
	"github.com/agentstation/refdata/internal/storage"
)

func run(t *testing.T, app *application.Mock, args ...string) string {
	t.Helper()
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestListCanonical(t *testing.T) {
	app, _ := application.NewHubMock(t, "json")

	tests := []struct {
		name   string
		args   []string
		labels []string
	}{
		{"dimension", []string{"canonical", "--dimension", "marital_status"}, []string{"Single", "Married"}},
		{"label contains", []string{"canonical", "--label-contains", "SING"}, []string{"Single"}},
		{"limit", []string{"canonical", "--dimension", "marital_status", "--limit", "1"}, []string{"Married"}},
		{"offset past end", []string{"canonical", "--offset", "100"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var values []storage.CanonicalValue
			require.NoError(t, json.Unmarshal([]byte(run(t, app, tt.args...)), &values))

			labels := make([]string, 0, len(values))
			for _, v := range values {
				labels = append(labels, v.CanonicalLabel)
			}
			assert.ElementsMatch(t, tt.labels, labels)
		})
	}
}

func TestListCanonicalTable(t *testing.T) {
	app, _ := application.NewHubMock(t, "table")

	out := run(t, app, "canonical", "--dimension", "marital_status")
	assert.Contains(t, out, "Single")
	assert.Contains(t, out, "Married")
}

func TestListDimensions(t *testing.T) {
	app, _ := application.NewHubMock(t, "json")

	var dims []storage.Dimension
	require.NoError(t, json.Unmarshal([]byte(run(t, app, "dimensions")), &dims))

	codes := make([]string, 0, len(dims))
	for _, d := range dims {
		codes = append(codes, d.Code)
	}
	assert.Subset(t, codes, []string{"education", "employment_status", "marital_status"})
}

func TestListConnectionsAndValueMappings(t *testing.T) {
	app, hub := application.NewHubMock(t, "json")
	ctx := context.Background()

	conn, err := hub.CreateConnection(ctx, refdata.ConnectionCreate{
		Name:     "warehouse",
		DBType:   "postgres",
		Host:     "db.internal",
		Database: "dw",
		Username: "reader",
	})
	require.NoError(t, err)

	var conns []storage.SourceConnection
	require.NoError(t, json.Unmarshal([]byte(run(t, app, "connections")), &conns))
	require.Len(t, conns, 1)
	assert.Equal(t, "warehouse", conns[0].Name)

	values, err := hub.ListCanonicalValues(ctx)
	require.NoError(t, err)
	_, err = hub.CreateValueMapping(ctx, conn.ID, refdata.ValueMappingCreate{
		SourceTable: "customers",
		SourceField: "marital",
		RawValue:    "S",
		CanonicalID: values[0].ID,
	})
	require.NoError(t, err)

	var mappings []storage.ExpandedValueMapping
	require.NoError(t, json.Unmarshal([]byte(run(t, app, "value-mappings", "--connection", strconv.FormatInt(conn.ID, 10))), &mappings))
	require.Len(t, mappings, 1)
	assert.Equal(t, "S", mappings[0].RawValue)
	assert.Equal(t, values[0].CanonicalLabel, mappings[0].CanonicalLabel)

	var all []storage.ExpandedValueMapping
	require.NoError(t, json.Unmarshal([]byte(run(t, app, "value-mappings")), &all))
	assert.Len(t, all, 1)
}

func TestListUnknownResource(t *testing.T) {
	app, _ := application.NewHubMock(t, "json")
	cmd := NewCommand(app)
	cmd.SetArgs([]string{"widgets"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
