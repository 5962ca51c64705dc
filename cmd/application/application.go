// Package application defines what refdata commands need from the
// application layer.
//
// Commands accept the Application interface rather than the concrete App so
// they can be exercised against a Mock:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            hub, err := app.Hub(cmd.Context())
//	            if err != nil {
//	                return err
//	            }
//	            // ... use hub
//	            return nil
//	        },
//	    }
//	}
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/internal/config"
)

// Application provides the application interface that commands need.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Hub returns the shared hub, opening the database on first use.
	Hub(ctx context.Context) (*refdata.Hub, error)

	// Settings returns the hub settings loaded from the environment.
	Settings() *config.Settings

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
