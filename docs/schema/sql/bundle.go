// Package sqldocs embeds the per-service DDL scripts from the docs tree.
package sqldocs

import "embed"

// Scripts holds postgres/<service>.sql and sqlite/<service>.sql.
//
//go:embed postgres/*.sql sqlite/*.sql
var Scripts embed.FS
