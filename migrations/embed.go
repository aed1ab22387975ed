// Package migrations embeds the Postgres schema of the published run snapshots.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
