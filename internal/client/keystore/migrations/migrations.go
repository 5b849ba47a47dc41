// Package migrations embeds the SQL migration files for the local keystore.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
