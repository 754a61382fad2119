// Package migrations embeds the SQL schema migrations applied by goose.
package migrations

import "embed"

// FS holds every migration file. Paths are relative to this directory, so
// goose should be pointed at ".".
//
//go:embed *.sql
var FS embed.FS
