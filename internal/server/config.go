package server

import (
	"net"
	"strconv"
	"time"

	"github.com/agentstation/refdata/internal/config"
)

// Config holds server configuration.
type Config struct {
	// Server settings
	Host string
	Port int

	// CORS origins; "*" allows any origin and an empty list disables CORS.
	CORSOrigins []string

	// Authentication settings
	AuthEnabled bool
	APIKey      string
	AuthHeader  string

	// Performance settings
	RateLimit int // Requests per minute per IP (0 to disable)
	CacheTTL  time.Duration

	// HTTP timeouts
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         8000,
		CORSOrigins:  []string{},
		AuthEnabled:  false,
		AuthHeader:   "X-API-Key",
		RateLimit:    100,
		CacheTTL:     5 * time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// FromSettings returns the default config with CORS origins taken from the
// hub settings.
func FromSettings(settings *config.Settings) Config {
	cfg := DefaultConfig()
	if settings != nil {
		cfg.CORSOrigins = append([]string(nil), settings.CORSOrigins...)
	}
	return cfg
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
