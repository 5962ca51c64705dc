// Package server provides the HTTP server for the RefData Hub API.
package server

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/refdata"
	"github.com/agentstation/refdata/internal/server/cache"
	"github.com/agentstation/refdata/internal/server/events"
	"github.com/agentstation/refdata/internal/server/events/adapters"
	"github.com/agentstation/refdata/internal/server/middleware"
	"github.com/agentstation/refdata/internal/server/sse"
	ws "github.com/agentstation/refdata/internal/server/websocket"
	"github.com/agentstation/refdata/pkg/errors"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	hub            *refdata.Hub
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	unsubscribe    []func()
	rateLimiter    *middleware.RateLimiter
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	group          *errgroup.Group
	startTime      time.Time
}

// New creates a server over hub. Hub mutations are published to the event
// broker and invalidate cached reference reads.
func New(hub *refdata.Hub, cfg Config, logger *zerolog.Logger) (*Server, error) {
	if hub == nil {
		return nil, errors.NewConfigError("server", "hub is required", nil)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)

	unsubscribe := []func(){
		broker.Subscribe(adapters.WebSocket(wsHub)),
		broker.Subscribe(adapters.SSE(sseBroadcaster)),
	}
	logger.Debug().Int("subscribers", broker.Stats().Subscribers).Msg("Transports subscribed to event broker")

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		hub:            hub,
		cache:          cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		unsubscribe:    unsubscribe,
		logger:         logger,
		config:         cfg,
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	if cfg.RateLimit > 0 {
		s.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit, logger)
	}

	s.connectHooks()
	return s, nil
}

// checkOrigin admits WebSocket upgrades from the configured CORS origins.
// Requests without an Origin header are not browsers and pass.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(s.config.CORSOrigins, "*") || slices.Contains(s.config.CORSOrigins, origin)
}

// connectHooks publishes hub changes to the broker and drops cached reads
// the change makes stale.
func (s *Server) connectHooks() {
	s.hub.OnChange(func(change refdata.Change) {
		eventType := events.EventType(change.Type)
		if eventType.Reference() {
			n := s.cache.DeletePrefix(cache.PrefixReference)
			s.logger.Debug().Str("change", change.Type).Int("evicted", n).Msg("Reference cache invalidated")
		}
		if !s.broker.Publish(eventType, change.Data) {
			s.logger.Warn().Str("change", change.Type).Msg("Event queue full, change not broadcast")
		}
	})
	s.logger.Debug().Msg("Hub hooks connected to event broker")
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster).
func (s *Server) Start() {
	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error { s.broker.Run(ctx); return nil })
	g.Go(func() error { s.wsHub.Run(ctx); return nil })
	g.Go(func() error { s.sseBroadcaster.Run(ctx); return nil })
	s.group = g
	s.logger.Debug().Msg("Background services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown stops background services and waits for them until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")
	s.cancel()
	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.group == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- s.group.Wait() }()
	select {
	case err := <-done:
		s.logger.Info().Msg("Background services shut down")
		return err
	case <-ctx.Done():
		s.logger.Warn().Msg("Background services shutdown timed out")
		return ctx.Err()
	}
}

// Cache returns the server's cache instance.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// Broker returns the event broker.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// StartTime returns the server start time.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
