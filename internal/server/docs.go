// Package server provides the HTTP server for the RefData Hub API.
//
// This file holds the API-level annotations for swag. Endpoint annotations
// live in the handler files.
package server

// @title RefData Hub API
// @version 1.0
// @description REST API for canonical reference data, source connections and value mappings.
// @description
// @description Features:
// @description - Dimensions with typed attribute schemas and relations
// @description - Semantic matching of raw values to canonical values
// @description - CSV and XLSX import and export
// @description - Change events via WebSocket and Server-Sent Events
//
// @contact.name RefData Hub
// @contact.url https://github.com/agentstation/refdata
//
// @license.name MIT
// @license.url https://github.com/agentstation/refdata/blob/master/LICENSE
//
// @host localhost:8000
// @BasePath /
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for authentication (optional, configurable)
