package server

import (
	"net/http"

	"github.com/agentstation/refdata/internal/server/handlers"
	"github.com/agentstation/refdata/internal/server/middleware"
	"github.com/agentstation/refdata/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(
		s.hub,
		s.cache,
		s.broker,
		s.wsHub,
		s.sseBroadcaster,
		s.upgrader,
		s.logger,
	)

	s.registerRoutes(mux, h)
	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Not Found")
	})
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Public
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /api/ready", h.HandleReady)

	// Canonical values
	mux.HandleFunc("GET /api/reference/canonical", h.HandleListCanonical)
	mux.HandleFunc("POST /api/reference/canonical", h.HandleCreateCanonical)
	mux.HandleFunc("PUT /api/reference/canonical/{id}", h.HandleUpdateCanonical)
	mux.HandleFunc("DELETE /api/reference/canonical/{id}", h.HandleDeleteCanonical)
	mux.HandleFunc("POST /api/reference/canonical/import", h.HandleImportCanonical)
	mux.HandleFunc("POST /api/reference/canonical/import/preview", h.HandlePreviewImport)
	mux.HandleFunc("POST /api/reference/propose", h.HandlePropose)

	// Dimensions
	mux.HandleFunc("GET /api/reference/dimensions", h.HandleListDimensions)
	mux.HandleFunc("POST /api/reference/dimensions", h.HandleCreateDimension)
	mux.HandleFunc("GET /api/reference/dimensions/{code}", h.HandleGetDimension)
	mux.HandleFunc("PUT /api/reference/dimensions/{code}", h.HandleUpdateDimension)
	mux.HandleFunc("DELETE /api/reference/dimensions/{code}", h.HandleDeleteDimension)

	// Dimension relations
	mux.HandleFunc("GET /api/reference/dimension-relations", h.HandleListRelations)
	mux.HandleFunc("POST /api/reference/dimension-relations", h.HandleCreateRelation)
	mux.HandleFunc("GET /api/reference/dimension-relations/{id}", h.HandleGetRelation)
	mux.HandleFunc("PUT /api/reference/dimension-relations/{id}", h.HandleUpdateRelation)
	mux.HandleFunc("DELETE /api/reference/dimension-relations/{id}", h.HandleDeleteRelation)
	mux.HandleFunc("GET /api/reference/dimension-relations/{id}/links", h.HandleListRelationLinks)
	mux.HandleFunc("POST /api/reference/dimension-relations/{id}/links", h.HandleCreateRelationLink)
	mux.HandleFunc("DELETE /api/reference/dimension-relations/{id}/links/{link_id}", h.HandleDeleteRelationLink)

	// System configuration
	mux.HandleFunc("GET /api/config", h.HandleGetConfig)
	mux.HandleFunc("PUT /api/config", h.HandleUpdateConfig)

	// Source connections
	mux.HandleFunc("GET /api/source/connections", h.HandleListConnections)
	mux.HandleFunc("POST /api/source/connections", h.HandleCreateConnection)
	mux.HandleFunc("POST /api/source/connections/test", h.HandleTestConnectionSettings)
	mux.HandleFunc("GET /api/source/connections/{id}", h.HandleGetConnection)
	mux.HandleFunc("PUT /api/source/connections/{id}", h.HandleUpdateConnection)
	mux.HandleFunc("DELETE /api/source/connections/{id}", h.HandleDeleteConnection)
	mux.HandleFunc("POST /api/source/connections/{id}/test", h.HandleTestConnection)
	mux.HandleFunc("GET /api/source/connections/{id}/tables", h.HandleListTables)
	mux.HandleFunc("GET /api/source/connections/{id}/tables/{table}/fields", h.HandleListFields)

	// Field mappings, samples and statistics
	mux.HandleFunc("GET /api/source/connections/{id}/mappings", h.HandleListFieldMappings)
	mux.HandleFunc("POST /api/source/connections/{id}/mappings", h.HandleCreateFieldMapping)
	mux.HandleFunc("PUT /api/source/connections/{id}/mappings/{mapping_id}", h.HandleUpdateFieldMapping)
	mux.HandleFunc("DELETE /api/source/connections/{id}/mappings/{mapping_id}", h.HandleDeleteFieldMapping)
	mux.HandleFunc("GET /api/source/connections/{id}/samples", h.HandleListSamples)
	mux.HandleFunc("POST /api/source/connections/{id}/samples", h.HandleIngestSamples)
	mux.HandleFunc("GET /api/source/connections/{id}/match-stats", h.HandleMatchStats)
	mux.HandleFunc("GET /api/source/connections/{id}/unmatched", h.HandleUnmatched)

	// Value mappings
	mux.HandleFunc("GET /api/source/connections/{id}/value-mappings", h.HandleListValueMappings)
	mux.HandleFunc("POST /api/source/connections/{id}/value-mappings", h.HandleCreateValueMapping)
	mux.HandleFunc("PUT /api/source/connections/{id}/value-mappings/{mapping_id}", h.HandleUpdateValueMapping)
	mux.HandleFunc("DELETE /api/source/connections/{id}/value-mappings/{mapping_id}", h.HandleDeleteValueMapping)
	mux.HandleFunc("GET /api/source/value-mappings", h.HandleListAllValueMappings)
	mux.HandleFunc("GET /api/source/value-mappings/export", h.HandleExportValueMappings)
	mux.HandleFunc("POST /api/source/value-mappings/import", h.HandleImportValueMappings)

	// Operations
	mux.HandleFunc("GET /api/admin/stats", h.HandleStats)
	mux.HandleFunc("GET /api/updates/ws", h.HandleWebSocket)
	mux.HandleFunc("GET /api/updates/stream", h.HandleSSE)
}

// applyMiddleware wraps handler with the middleware chain. The last wrap
// runs first: recovery, request ID, logger, CORS, auth, rate limit.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	if s.rateLimiter != nil {
		handler = middleware.RateLimit(s.rateLimiter)(handler)
	}

	if cfg.AuthEnabled {
		guard := middleware.APIKey{Key: cfg.APIKey, Header: cfg.AuthHeader, Public: middleware.PublicPaths}
		handler = guard.Middleware(s.logger)(handler)
	}

	if len(cfg.CORSOrigins) > 0 {
		handler = middleware.CORS(cfg.CORSOrigins)(handler)
	}

	handler = middleware.Logger(s.logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(s.logger)(handler)

	return handler
}
