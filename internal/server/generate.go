// Package server provides the HTTP server for the RefData Hub API.
//
// The layers are:
//
//   - Server: lifecycle, event broker and realtime transports
//   - Config: listen address, CORS, auth, rate limit and timeouts
//   - Router: route registration and the middleware chain
//   - Handlers: HTTP handlers over a refdata.Hub
//
// Usage:
//
//	hub, err := refdata.Open(ctx, settings)
//	if err != nil {
//	    return err
//	}
//	srv, err := server.New(hub, server.FromSettings(settings), logger)
//	if err != nil {
//	    return err
//	}
//	srv.Start()
//	http.ListenAndServe(cfg.Addr(), srv.Handler())
package server

//go:generate gomarkdoc --output README.md .
