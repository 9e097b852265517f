// Package migrations embeds the SQL schema files so the migrator and the
// integration tests apply exactly the same statements.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
