package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/refdata/internal/cmd/table"
)

type record struct {
	ID    int64  `json:"id"`
	Label string `json:"canonical_label"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"wide", FormatWide, false},
		{"", "", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteStructured(t *testing.T) {
	data := []record{{ID: 1, Label: "Single"}}
	never := func(bool) table.Data {
		t.Fatal("structured formats must not build a table")
		return table.Data{}
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, data, never))
	assert.JSONEq(t, `[{"id":1,"canonical_label":"Single"}]`, buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, FormatYAML, data, never))
	assert.Contains(t, buf.String(), "canonical_label: Single")
}

func TestWriteTable(t *testing.T) {
	data := []record{{ID: 1, Label: "Single"}}
	toTable := func(wide bool) table.Data {
		td := table.Data{
			Headers:         []string{"ID", "Label"},
			Rows:            [][]string{{"1", "Single"}},
			ColumnAlignment: []table.Align{table.AlignRight, table.AlignDefault},
		}
		if wide {
			td.Headers = append(td.Headers, "Extra")
			td.Rows[0] = append(td.Rows[0], "yes")
			td.ColumnAlignment = append(td.ColumnAlignment, table.AlignCenter)
		}
		return td
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, data, toTable))
	assert.Contains(t, buf.String(), "Single")
	assert.NotContains(t, buf.String(), "yes")

	buf.Reset()
	require.NoError(t, Write(&buf, FormatWide, data, toTable))
	assert.Contains(t, buf.String(), "yes")
	assert.True(t, strings.Contains(strings.ToUpper(buf.String()), "EXTRA"))
}

func TestWriteTableWithoutConverter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, map[string]int{"created": 2}, nil))
	assert.JSONEq(t, `{"created":2}`, buf.String())
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}
