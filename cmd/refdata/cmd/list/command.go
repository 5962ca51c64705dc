// Package list provides the list commands for hub records.
package list

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/refdata/cmd/application"
	"github.com/agentstation/refdata/internal/cmd/output"
	"github.com/agentstation/refdata/internal/cmd/table"
)

// NewCommand creates the list command with app dependencies.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list [resource]",
		Aliases: []string{"ls"},
		GroupID: "core",
		Short:   "List hub records",
		Long: `List displays records stored in the hub database.

Available subcommands:
  canonical       - Canonical values
  dimensions      - Dimensions and their extra field schemas
  connections     - Source connections
  value-mappings  - Raw source values mapped to canonical values`,
		Example: `  refdata list canonical --dimension marital_status
  refdata list dimensions -o wide
  refdata list value-mappings --connection 1 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return fmt.Errorf("unknown resource: %s", args[0])
		},
	}

	cmd.AddCommand(newCanonicalCommand(app))
	cmd.AddCommand(newDimensionsCommand(app))
	cmd.AddCommand(newConnectionsCommand(app))
	cmd.AddCommand(newValueMappingsCommand(app))

	return cmd
}

// render writes data in the app's output format.
func render(cmd *cobra.Command, app application.Application, data any, toTable func(wide bool) table.Data) error {
	return output.Write(cmd.OutOrStdout(), output.Format(app.OutputFormat()), data, toTable)
}
