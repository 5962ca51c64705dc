// Package output renders command results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/agentstation/refdata/internal/cmd/table"
)

// Format names an output encoding selected with -o.
type Format string

// Supported formats. Wide is a table with extra columns.
const (
	FormatTable Format = "table"
	FormatWide  Format = "wide"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// IsTable reports whether f renders as a table. The empty format does.
func (f Format) IsTable() bool {
	return f == "" || f == FormatTable || f == FormatWide
}

// ParseFormat validates a -o value. Case is ignored.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	switch f {
	case "", FormatTable, FormatWide, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("invalid format %q: must be one of: table, json, yaml, wide", s)
}

// DetectFormat returns explicit when set. Otherwise terminals get a table
// and pipes get JSON.
func DetectFormat(explicit string) Format {
	if explicit != "" {
		return Format(strings.ToLower(explicit))
	}
	if fd := os.Stdout.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return FormatTable
	}
	return FormatJSON
}

// Write renders data in format. Table formats render toTable(wide); a nil
// toTable prints JSON instead, as do the structured formats.
func Write(w io.Writer, format Format, data any, toTable func(wide bool) table.Data) error {
	switch {
	case format == FormatYAML:
		return writeYAML(w, data)
	case format.IsTable() && toTable != nil:
		return writeTable(w, toTable(format == FormatWide))
	default:
		return writeJSON(w, data)
	}
}

func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// writeYAML keys follow the json struct tags.
func writeYAML(w io.Writer, data any) error {
	out, err := yaml.MarshalWithOptions(data, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

var alignments = map[table.Align]tw.Align{
	table.AlignLeft:   tw.AlignLeft,
	table.AlignCenter: tw.AlignCenter,
	table.AlignRight:  tw.AlignRight,
}

func writeTable(w io.Writer, td table.Data) error {
	var cfg tablewriter.Config
	if len(td.ColumnAlignment) > 0 {
		per := make([]tw.Align, len(td.ColumnAlignment))
		for i, a := range td.ColumnAlignment {
			align, ok := alignments[a]
			if !ok {
				align = tw.Skip
			}
			per[i] = align
		}
		cfg.Header.Alignment = tw.CellAlignment{PerColumn: per}
		cfg.Row.Alignment = tw.CellAlignment{PerColumn: per}
	}

	tbl := tablewriter.NewTable(w, tablewriter.WithConfig(cfg))
	if len(td.Headers) > 0 {
		tbl.Header(cells(td.Headers)...)
	}
	for _, row := range td.Rows {
		if err := tbl.Append(cells(row)...); err != nil {
			return err
		}
	}
	return tbl.Render()
}

func cells(row []string) []any {
	out := make([]any, len(row))
	for i, c := range row {
		out[i] = c
	}
	return out
}
