package match

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/internal/cmd/application"
	"github.com/agentstation/refdata/internal/matcher"
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

func TestMatchProposes(t *testing.T) {
	app, hub := application.NewHubMock(t, "json")

	out, err := run(t, app, "single", "--dimension", "marital_status")
	require.NoError(t, err)

	var resp refdata.MatchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "single", resp.RawText)
	assert.Equal(t, "marital_status", resp.Dimension)
	require.NotEmpty(t, resp.Matches)
	assert.Equal(t, "Single", resp.Matches[0].CanonicalLabel)

	stats, err := hub.Store().TableCounts(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats["raw_values"])
}

func TestMatchDryRunRanksAll(t *testing.T) {
	app, hub := application.NewHubMock(t, "json")

	out, err := run(t, app, "single", "--dimension", "marital_status", "--dry-run")
	require.NoError(t, err)

	var matches []matcher.Match
	require.NoError(t, json.Unmarshal([]byte(out), &matches))
	require.Len(t, matches, 2, "dry run returns every candidate regardless of threshold")
	assert.Equal(t, "Single", matches[0].CanonicalLabel)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)

	stats, err := hub.Store().TableCounts(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats["raw_values"])
}

func TestMatchTable(t *testing.T) {
	app, _ := application.NewHubMock(t, "table")

	out, err := run(t, app, "single", "-d", "marital_status")
	require.NoError(t, err)
	assert.Contains(t, out, "Single")
}

func TestMatchRequiresText(t *testing.T) {
	app, _ := application.NewHubMock(t, "json")

	_, err := run(t, app)
	assert.Error(t, err)

	_, err = run(t, app, "   ")
	assert.Error(t, err)
}
