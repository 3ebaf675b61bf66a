package migrations

import "embed"

// FS contains the per-driver schema migrations, one directory per driver.
//
//go:embed mysql/*.sql sqlite/*.sql
var FS embed.FS
