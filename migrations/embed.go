// Package migrations holds the versioned SQL schema for the WMS tables.
package migrations

import "embed"

// FS contains every *.up.sql / *.down.sql pair in this directory
//
//go:embed *.sql
var FS embed.FS
