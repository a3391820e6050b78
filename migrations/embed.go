// Package migrations embeds the schema of the SQL cloud backends.
package migrations

import "embed"

//go:embed mysql/*.sql postgres/*.sql
var FS embed.FS
