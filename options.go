package refdata

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/refdata/internal/config"
	"github.com/agentstation/refdata/internal/matcher"
	"github.com/agentstation/refdata/pkg/errors"
)

// Option is a function that configures a Hub.
type Option func(*Hub) error

// options applies the given options to the hub.
func (h *Hub) options(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return err
		}
	}
	return nil
}

// WithSettings sets the settings used for defaults such as the fallback
// dimension of imports and the configuration row created on first read.
func WithSettings(settings *config.Settings) Option {
	return func(h *Hub) error {
		if settings == nil {
			return errors.NewConfigError("hub", "settings cannot be nil", nil)
		}
		h.settings = settings
		return nil
	}
}

// WithMatcherOptions appends options passed to every matcher the hub builds.
func WithMatcherOptions(opts ...matcher.Option) Option {
	return func(h *Hub) error {
		h.matcherOpts = append(h.matcherOpts, opts...)
		return nil
	}
}

// WithLogger sets the hub logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(h *Hub) error {
		if logger != nil {
			h.logger = logger
		}
		return nil
	}
}
