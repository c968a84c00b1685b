// Package migrations embeds the goose SQL migrations of the notification subsystem.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
