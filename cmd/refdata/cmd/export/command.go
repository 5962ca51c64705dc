// Package export provides the export commands.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/refdata/cmd/application"
	"github.com/agentstation/refdata/internal/cmd/emoji"
	"github.com/agentstation/refdata/internal/importer"
)

// NewCommand creates the export command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "export",
		GroupID: "management",
		Short:   "Export hub records as spreadsheets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newValueMappingsCommand(app))
	return cmd
}

func newValueMappingsCommand(app application.Application) *cobra.Command {
	var (
		formatName   string
		connectionID int64
		outPath      string
	)

	cmd := &cobra.Command{
		Use:   "value-mappings",
		Short: "Export value mappings as CSV or XLSX",
		Example: `  refdata export value-mappings > mappings.csv
  refdata export value-mappings --format xlsx --out mappings.xlsx
  refdata export value-mappings --connection 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := importer.ParseFormat(formatName)
			if err != nil {
				return err
			}
			if format == importer.FormatXLSX && outPath == "" {
				return fmt.Errorf("xlsx export requires --out")
			}

			hub, err := app.Hub(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			if err := hub.ExportValueMappings(cmd.Context(), w, format, connectionID); err != nil {
				return err
			}
			if outPath != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s Exported value mappings to %s\n", emoji.Success, outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&formatName, "format", string(importer.FormatCSV), "Export format (csv, xlsx)")
	cmd.Flags().Int64Var(&connectionID, "connection", 0, "Only mappings of this connection ID")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file (defaults to stdout)")
	return cmd
}
