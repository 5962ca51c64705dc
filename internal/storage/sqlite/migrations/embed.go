package migrations

import "embed"

// FS contains embedded SQLite migrations for hub storage.
//
//go:embed *.sql
var FS embed.FS
