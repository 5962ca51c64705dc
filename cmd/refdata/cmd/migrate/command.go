// Package migrate provides the database migration command.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/cmd/application"
	"github.com/agentstation/refdata/internal/cmd/emoji"
	"github.com/agentstation/refdata/internal/cmd/output"
)

// Result reports what a migrate run changed.
type Result struct {
	Database        string   `json:"database" yaml:"database"`
	Applied         []string `json:"applied" yaml:"applied"`
	ConfigCreated   bool     `json:"config_created" yaml:"config_created"`
	CanonicalValues int      `json:"canonical_values_seeded" yaml:"canonical_values_seeded"`
	Dimensions      int      `json:"dimensions_seeded" yaml:"dimensions_seeded"`
}

// NewCommand creates the migrate command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "migrate",
		GroupID: "management",
		Short:   "Apply database migrations and seed starter data",
		Long: `Migrate applies pending schema migrations to the hub database and seeds
the matcher configuration and starter canonical values when they are missing.

Running it again is safe: nothing is applied or seeded twice.`,
		Example: `  refdata migrate
  REFDATA_DATABASE_URL=sqlite:////var/lib/refdata/hub.db refdata migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := app.Settings()
			path, err := settings.SQLitePath()
			if err != nil {
				return err
			}

			store, seeded, err := refdata.OpenStore(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			result := Result{
				Database:        path,
				Applied:         store.AppliedMigrations(),
				ConfigCreated:   seeded.ConfigCreated,
				CanonicalValues: seeded.CanonicalValues,
				Dimensions:      seeded.Dimensions,
			}
			app.Logger().Info().
				Str("database", path).
				Int("applied", len(result.Applied)).
				Msg("Migrations complete")

			if format := output.Format(app.OutputFormat()); !format.IsTable() {
				return output.Write(cmd.OutOrStdout(), format, result, nil)
			}
			return report(cmd, result)
		},
	}
}

func report(cmd *cobra.Command, r Result) error {
	out := cmd.OutOrStdout()
	if len(r.Applied) == 0 {
		_, _ = fmt.Fprintf(out, "%s %s is up to date\n", emoji.Success, r.Database)
	}
	for _, name := range r.Applied {
		_, _ = fmt.Fprintf(out, "%s applied %s\n", emoji.Success, name)
	}
	if r.ConfigCreated {
		_, _ = fmt.Fprintf(out, "%s created default matcher configuration\n", emoji.Success)
	}
	if r.CanonicalValues > 0 {
		_, _ = fmt.Fprintf(out, "%s seeded %d canonical values in %d dimensions\n", emoji.Success, r.CanonicalValues, r.Dimensions)
	}
	return nil
}
