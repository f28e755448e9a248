// Package migrations embeds the SQL schema for the leads database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
