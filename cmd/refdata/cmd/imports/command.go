// Package imports provides the bulk import commands.
package imports

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/cmd/application"
	"github.com/agentstation/refdata/internal/cmd/emoji"
	"github.com/agentstation/refdata/internal/cmd/output"
	"github.com/agentstation/refdata/internal/cmd/table"
	"github.com/agentstation/refdata/internal/importer"
)

// NewCommand creates the import command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "import",
		GroupID: "management",
		Short:   "Import spreadsheets into the hub",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newCanonicalCommand(app))
	cmd.AddCommand(newValueMappingsCommand(app))
	return cmd
}

func newCanonicalCommand(app application.Application) *cobra.Command {
	var (
		dimension   string
		mappingFile string
		preview     bool
	)

	cmd := &cobra.Command{
		Use:   "canonical <file>",
		Short: "Import canonical values from a CSV or XLSX file",
		Example: `  refdata import canonical values.csv --dimension region
  refdata import canonical regions.xlsx --preview
  refdata import canonical regions.xlsx --mapping columns.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hub, err := app.Hub(cmd.Context())
			if err != nil {
				return err
			}
			upload, closeFile, err := openUpload(args[0])
			if err != nil {
				return err
			}
			defer closeFile()

			format := output.Format(app.OutputFormat())
			if preview {
				p, err := hub.PreviewImport(cmd.Context(), upload)
				if err != nil {
					return err
				}
				return output.Write(cmd.OutOrStdout(), format, p, func(bool) table.Data {
					return previewTable(p)
				})
			}

			in := refdata.CanonicalImport{Upload: upload, Dimension: dimension}
			if mappingFile != "" {
				if in.Mapping, err = readMapping(mappingFile); err != nil {
					return err
				}
			}
			result, err := hub.ImportCanonicalValues(cmd.Context(), in)
			if err != nil {
				return err
			}
			if !format.IsTable() {
				return output.Write(cmd.OutOrStdout(), format, result, nil)
			}
			return report(cmd, len(result.Created), 0, result.Errors)
		},
	}

	cmd.Flags().StringVarP(&dimension, "dimension", "d", "", "Dimension for rows without a dimension column")
	cmd.Flags().StringVar(&mappingFile, "mapping", "", "JSON file describing the column mapping")
	cmd.Flags().BoolVar(&preview, "preview", false, "Show the detected columns without importing")

	return cmd
}

func newValueMappingsCommand(app application.Application) *cobra.Command {
	var connectionID int64

	cmd := &cobra.Command{
		Use:     "value-mappings <file>",
		Short:   "Import value mappings from a CSV or XLSX file",
		Example: `  refdata import value-mappings mappings.csv --connection 1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hub, err := app.Hub(cmd.Context())
			if err != nil {
				return err
			}
			upload, closeFile, err := openUpload(args[0])
			if err != nil {
				return err
			}
			defer closeFile()

			result, err := hub.ImportValueMappings(cmd.Context(), refdata.ValueMappingImport{
				Upload:       upload,
				ConnectionID: connectionID,
			})
			if err != nil {
				return err
			}
			if format := output.Format(app.OutputFormat()); !format.IsTable() {
				return output.Write(cmd.OutOrStdout(), format, result, nil)
			}
			return report(cmd, result.Created, result.Updated, result.Errors)
		},
	}

	cmd.Flags().Int64Var(&connectionID, "connection", 0, "Connection for rows without a source_connection_id")
	return cmd
}

func openUpload(path string) (refdata.Upload, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return refdata.Upload{}, nil, err
	}
	return refdata.Upload{Filename: filepath.Base(path), Body: f}, func() { _ = f.Close() }, nil
}

func readMapping(path string) (*importer.Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m importer.Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing mapping %s: %w", path, err)
	}
	return &m, nil
}

func report(cmd *cobra.Command, created, updated int, rowErrors []string) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s %d created", emoji.Success, created)
	if updated > 0 {
		_, _ = fmt.Fprintf(out, ", %d updated", updated)
	}
	_, _ = fmt.Fprintln(out)
	for _, msg := range rowErrors {
		_, _ = fmt.Fprintf(out, "%s %s\n", emoji.Warning, msg)
	}
	return nil
}

func previewTable(p importer.Preview) table.Data {
	rows := make([][]string, 0, len(p.Columns))
	for _, c := range p.Columns {
		rows = append(rows, []string{
			c.Name,
			table.Optional(c.SuggestedRole),
			table.Optional(c.SuggestedAttributeKey),
			table.Dash(sample(c.Sample)),
		})
	}
	return table.Data{
		Headers: []string{"Column", "Role", "Attribute Key", "Sample"},
		Rows:    rows,
	}
}

func sample(values []string) string {
	const maxShown = 3
	if len(values) > maxShown {
		values = values[:maxShown]
	}
	return strings.Join(values, ", ")
}
