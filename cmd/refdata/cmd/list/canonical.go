package list

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/refdata/cmd/application"
	"github.com/agentstation/refdata/internal/cmd/table"
	"github.com/agentstation/refdata/internal/server/filter"
)

func newCanonicalCommand(app application.Application) *cobra.Command {
	var f filter.CanonicalFilter

	cmd := &cobra.Command{
		Use:     "canonical",
		Aliases: []string{"values"},
		Short:   "List canonical values",
		Args:    cobra.NoArgs,
		Example: `  refdata list canonical
  refdata list canonical --dimension education --label-contains school
  refdata list canonical --limit 10 --offset 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hub, err := app.Hub(cmd.Context())
			if err != nil {
				return err
			}
			values, err := hub.ListCanonicalValues(cmd.Context())
			if err != nil {
				return err
			}
			if f.Limit > filter.MaxLimit {
				f.Limit = filter.MaxLimit
			}
			values = f.Apply(values)

			app.Logger().Debug().Int("count", len(values)).Msg("Listed canonical values")
			return render(cmd, app, values, func(wide bool) table.Data {
				return table.CanonicalValues(values, wide)
			})
		},
	}

	cmd.Flags().StringVar(&f.Dimension, "dimension", "", "Only values of this dimension")
	cmd.Flags().StringVar(&f.LabelContains, "label-contains", "", "Case-insensitive label substring")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "Maximum number of values (0 for all)")
	cmd.Flags().IntVar(&f.Offset, "offset", 0, "Number of values to skip")

	return cmd
}
