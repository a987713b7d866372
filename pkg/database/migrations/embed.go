package migrations

import "embed"

// FS holds the sqlite migration files.
//
//go:embed *.sql
var FS embed.FS
