// Package migrations holds the SQL schema of the tenantdesk datastore.
//
// Files follow golang-migrate naming: NNNNNN_name.up.sql / .down.sql.
package migrations

import "embed"

// FS contains every migration file
//
//go:embed *.sql
var FS embed.FS
