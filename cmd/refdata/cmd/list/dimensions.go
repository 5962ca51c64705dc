package list

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/refdata/cmd/application"
	"github.com/agentstation/refdata/internal/cmd/table"
)

func newDimensionsCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "dimensions",
		Aliases: []string{"dimension", "dims"},
		Short:   "List dimensions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hub, err := app.Hub(cmd.Context())
			if err != nil {
				return err
			}
			dims, err := hub.ListDimensions(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, app, dims, func(wide bool) table.Data {
				return table.Dimensions(dims, wide)
			})
		},
	}
}
