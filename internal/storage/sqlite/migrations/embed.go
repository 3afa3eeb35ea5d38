package migrations

import "embed"

// FS contains the embedded SQLite schema for batch results.
//
//go:embed *.sql
var FS embed.FS
