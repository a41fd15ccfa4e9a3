// Package appfs exposes static files embedded into the binary.
package appfs

import "embed"

//go:embed migrations/*.sql
var FS embed.FS
