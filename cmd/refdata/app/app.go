// Package app provides the application context and dependency management
// for the refdata CLI: configuration, logging and the lazily opened hub.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/cmd/application"
	"github.com/agentstation/refdata/internal/config"
	"github.com/agentstation/refdata/pkg/errors"
)

var _ application.Application = (*App)(nil)

// App represents the refdata application with all its dependencies.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config   *Config
	settings *config.Settings
	logger   *zerolog.Logger

	// Hub instance (lazy-initialized, singleton)
	mu  sync.Mutex
	hub *refdata.Hub
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	app.config = cfg

	logger := NewLogger(cfg)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.settings == nil {
		settings, err := config.Load()
		if err != nil {
			return nil, err
		}
		app.settings = settings
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Settings returns the hub settings.
func (a *App) Settings() *config.Settings { return a.settings }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string { return a.config.Format }

// Hub returns the hub, opening the database on first use.
func (a *App) Hub(ctx context.Context) (*refdata.Hub, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.hub != nil {
		return a.hub, nil
	}

	hub, err := refdata.Open(ctx, a.settings, refdata.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("opening hub: %w", err)
	}
	a.hub = hub
	return hub, nil
}

// Shutdown releases the hub if it was opened.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.hub == nil {
		return nil
	}
	err := a.hub.Close()
	a.hub = nil
	return err
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(cfg *Config) Option {
	return func(a *App) error {
		a.config = cfg
		return nil
	}
}

// WithSettings sets the hub settings instead of loading them from the
// environment.
func WithSettings(settings *config.Settings) Option {
	return func(a *App) error {
		if settings == nil {
			return errors.NewConfigError("settings", "settings are required", nil)
		}
		a.settings = settings
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
