// Package scripts embeds the versioned SQL migrations.
package scripts

import "embed"

// Goose holds goose-annotated migrations under goose/.
//
//go:embed goose/*.sql
var Goose embed.FS

// Migrate holds the same migrations as up/down pairs under migrate/.
//
//go:embed migrate/*.sql
var Migrate embed.FS
