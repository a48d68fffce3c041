// Package migrations embeds the SQL migrations of the ledger schema
package migrations

import "embed"

// FS holds every *.sql migration in this directory
//
//go:embed *.sql
var FS embed.FS
