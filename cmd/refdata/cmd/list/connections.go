package list

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/refdata/cmd/application"
	"github.com/agentstation/refdata/internal/cmd/table"
)

func newConnectionsCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "connections",
		Aliases: []string{"connection", "conns"},
		Short:   "List source connections",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hub, err := app.Hub(cmd.Context())
			if err != nil {
				return err
			}
			conns, err := hub.ListConnections(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, app, conns, func(wide bool) table.Data {
				return table.Connections(conns, wide)
			})
		},
	}
}
