// Package match provides the match command.
package match

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/cmd/application"
	"github.com/agentstation/refdata/internal/cmd/output"
	"github.com/agentstation/refdata/internal/cmd/table"
	"github.com/agentstation/refdata/internal/matcher"
)

// NewCommand creates the match command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		dimension string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:     "match <raw text>",
		GroupID: "core",
		Short:   "Propose canonical values for a raw value",
		Long: `Match scores a raw value against the canonical values of a dimension.

By default the value is recorded as a raw value with the best suggestion and
only matches above the configured threshold are shown. With --dry-run every
candidate is ranked and nothing is recorded.`,
		Example: `  refdata match "single" --dimension marital_status
  refdata match "bachelors degree" --dry-run -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hub, err := app.Hub(cmd.Context())
			if err != nil {
				return err
			}
			raw := strings.Join(args, " ")

			var (
				data    any
				matches []matcher.Match
			)
			if dryRun {
				matches, err = hub.Rank(cmd.Context(), raw, dimension)
				data = matches
			} else {
				req := refdata.MatchRequest{RawText: raw}
				if dimension != "" {
					req.Dimension = &dimension
				}
				var resp refdata.MatchResponse
				resp, err = hub.Propose(cmd.Context(), req)
				matches, data = resp.Matches, resp
			}
			if err != nil {
				return err
			}

			return output.Write(cmd.OutOrStdout(), output.Format(app.OutputFormat()), data, func(bool) table.Data {
				return table.Matches(matches)
			})
		},
	}

	cmd.Flags().StringVarP(&dimension, "dimension", "d", "", "Dimension to match in (defaults to the configured default dimension)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Rank every candidate without recording the raw value")

	return cmd
}
