package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/refdata/cmd/refdata/cmd/export"
	"github.com/agentstation/refdata/cmd/refdata/cmd/imports"
	"github.com/agentstation/refdata/cmd/refdata/cmd/list"
	"github.com/agentstation/refdata/cmd/refdata/cmd/match"
	"github.com/agentstation/refdata/cmd/refdata/cmd/migrate"
	"github.com/agentstation/refdata/cmd/refdata/cmd/serve"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(serve.NewCommand(a))
	rootCmd.AddCommand(list.NewCommand(a))
	rootCmd.AddCommand(match.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(imports.NewCommand(a))
	rootCmd.AddCommand(export.NewCommand(a))
	rootCmd.AddCommand(migrate.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.newVersionCommand())
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("refdata %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
