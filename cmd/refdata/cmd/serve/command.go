// Package serve provides the HTTP server command for the refdata CLI.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/refdata/cmd/application"
	"github.com/agentstation/refdata/internal/cmd/emoji"
	"github.com/agentstation/refdata/internal/config"
	"github.com/agentstation/refdata/internal/server"
)

// NewCommand creates the serve command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		GroupID: "core",
		Short:   "Start the reference data REST API",
		Long: `Start the RefData Hub REST API.

Features:
  - Canonical values, dimensions and dimension relations (/api/reference)
  - Source connections, field mappings and value mappings (/api/source)
  - Matcher configuration (/api/config)
  - WebSocket (/api/updates/ws) and SSE (/api/updates/stream) change feeds
  - Response caching, rate limiting and optional API key authentication
  - Graceful shutdown with connection draining`,
		Example: `  # Start on the default port 8000
  refdata serve

  # Bind all interfaces and require an API key
  REFDATA_API_KEY=secret refdata serve --host 0.0.0.0 --auth

  # Allow a specific browser origin
  refdata serve --cors-origins "https://hub.example.com"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, args, app)
		},
	}

	defaults := server.DefaultConfig()

	cmd.Flags().Int("port", defaults.Port, "Server port")
	cmd.Flags().String("host", defaults.Host, "Bind address")

	cmd.Flags().Bool("cors", false, "Enable CORS for all origins")
	cmd.Flags().StringSlice("cors-origins", nil, "Allowed CORS origins (defaults to REFDATA_CORS_ORIGINS)")

	cmd.Flags().Bool("auth", false, "Enable API key authentication")
	cmd.Flags().String("auth-header", defaults.AuthHeader, "Authentication header name")
	cmd.Flags().String("api-key", "", "API key (defaults to REFDATA_API_KEY)")

	cmd.Flags().Int("rate-limit", defaults.RateLimit, "Requests per minute per IP (0 to disable)")
	cmd.Flags().Int("cache-ttl", int(defaults.CacheTTL.Seconds()), "Cache TTL in seconds")

	cmd.Flags().Duration("read-timeout", defaults.ReadTimeout, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", defaults.WriteTimeout, "HTTP write timeout")
	cmd.Flags().Duration("idle-timeout", defaults.IdleTimeout, "HTTP idle timeout")

	return cmd
}

// runServer starts the API server.
func runServer(cmd *cobra.Command, _ []string, app application.Application) error {
	logger := app.Logger()
	cfg, err := parseConfig(cmd, app.Settings())
	if err != nil {
		return err
	}

	logger.Info().
		Str("addr", cfg.Addr()).
		Strs("cors_origins", cfg.CORSOrigins).
		Bool("auth", cfg.AuthEnabled).
		Int("rate_limit", cfg.RateLimit).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("Starting API server")

	hub, err := app.Hub(cmd.Context())
	if err != nil {
		return fmt.Errorf("opening hub: %w", err)
	}

	srv, err := server.New(hub, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Start()

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return startWithGracefulShutdown(cmd, httpServer, srv, logger)
}

// parseConfig turns command flags into server configuration. HTTP_PORT and
// HTTP_HOST override the flags.
func parseConfig(cmd *cobra.Command, settings *config.Settings) (server.Config, error) {
	cfg := server.FromSettings(settings)
	flags := cmd.Flags()

	cfg.Port, _ = flags.GetInt("port")
	cfg.Host, _ = flags.GetString("host")
	cfg.AuthEnabled, _ = flags.GetBool("auth")
	cfg.AuthHeader, _ = flags.GetString("auth-header")
	cfg.APIKey, _ = flags.GetString("api-key")
	cfg.RateLimit, _ = flags.GetInt("rate-limit")
	ttl, _ := flags.GetInt("cache-ttl")
	cfg.CacheTTL = time.Duration(ttl) * time.Second
	cfg.ReadTimeout, _ = flags.GetDuration("read-timeout")
	cfg.WriteTimeout, _ = flags.GetDuration("write-timeout")
	cfg.IdleTimeout, _ = flags.GetDuration("idle-timeout")

	if origins, _ := flags.GetStringSlice("cors-origins"); flags.Changed("cors-origins") {
		cfg.CORSOrigins = origins
	}
	if all, _ := flags.GetBool("cors"); all {
		cfg.CORSOrigins = []string{"*"}
	}

	if cfg.APIKey == "" {
		cfg.APIKey = config.GetString("REFDATA_API_KEY")
	}
	if envPort := config.GetString("HTTP_PORT"); envPort != "" {
		port, err := parsePort(envPort)
		if err != nil {
			return cfg, err
		}
		cfg.Port = port
	}
	if envHost := config.GetString("HTTP_HOST"); envHost != "" {
		cfg.Host = envHost
	}

	if cfg.AuthEnabled && cfg.APIKey == "" {
		return cfg, fmt.Errorf("--auth requires --api-key or REFDATA_API_KEY")
	}
	return cfg, nil
}

// parsePort safely parses a port string to integer.
func parsePort(portStr string) (int, error) {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port number: %s", portStr)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port out of range: %d", port)
	}
	return port, nil
}

// startWithGracefulShutdown serves until the command context is cancelled,
// then drains connections and stops background services.
func startWithGracefulShutdown(cmd *cobra.Command, httpServer *http.Server, srv *server.Server, logger *zerolog.Logger) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	serverErr := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		_, _ = fmt.Fprintf(out, "%s RefData Hub API listening on http://%s\n", emoji.Success, httpServer.Addr)
		_, _ = fmt.Fprintln(out, "   Press Ctrl+C to stop")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return err
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received via context")
		_, _ = fmt.Fprintf(out, "\n%s Shutting down API server...\n", emoji.Stop)

		// the parent context is already cancelled
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Background services shutdown had issues")
		}

		logger.Info().Msg("Server stopped gracefully")
		_, _ = fmt.Fprintf(out, "%s Server stopped\n", emoji.Success)
		return nil
	}
}
