package list

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/refdata/cmd/application"
	"github.com/agentstation/refdata/internal/cmd/table"
	"github.com/agentstation/refdata/internal/storage"
)

func newValueMappingsCommand(app application.Application) *cobra.Command {
	var connectionID int64

	cmd := &cobra.Command{
		Use:     "value-mappings",
		Aliases: []string{"mappings"},
		Short:   "List value mappings",
		Args:    cobra.NoArgs,
		Example: `  refdata list value-mappings
  refdata list value-mappings --connection 2 -o wide`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hub, err := app.Hub(cmd.Context())
			if err != nil {
				return err
			}

			var mappings []storage.ExpandedValueMapping
			if connectionID > 0 {
				mappings, err = hub.ListValueMappings(cmd.Context(), connectionID)
			} else {
				mappings, err = hub.ListAllValueMappings(cmd.Context())
			}
			if err != nil {
				return err
			}
			return render(cmd, app, mappings, func(wide bool) table.Data {
				return table.ValueMappings(mappings, wide)
			})
		},
	}

	cmd.Flags().Int64Var(&connectionID, "connection", 0, "Only mappings of this connection ID")
	return cmd
}
