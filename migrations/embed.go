// Package migrations holds the versioned SQL schema, embedded so binaries and
// tests can migrate without a migrations directory on disk.
package migrations

import "embed"

// FS contains every *.up.sql and *.down.sql file of this directory
//
//go:embed *.sql
var FS embed.FS
