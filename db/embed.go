// Package db embeds the SQL schema shipped with the binary.
package db

import _ "embed"

// Schema is the complete DDL; every statement is idempotent, so it is safe
// to execute on startup against an already-migrated database.
//
//go:embed migrations/001_schema.sql
var Schema string
