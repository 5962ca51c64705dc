// Package handlers provides HTTP request handlers for the refdata API.
//
// Handlers are organized by domain:
//
//   - reference.go: canonical values, proposals and bulk import
//   - dimensions.go: dimensions, relations and relation links
//   - connections.go: source connections, tests and introspection
//   - mappings.go: field mappings, samples and match statistics
//   - valuemappings.go: value mappings, export and import
//   - config.go: system configuration
//   - admin.go: operational statistics
//   - health.go: health and readiness checks
//   - realtime.go: WebSocket and SSE change streams
//
// Every handler decodes its input, calls the hub, and writes either a bare
// JSON body or a typed error through the response package.
package handlers

//go:generate gomarkdoc --output README.md .
