// Package defaultdata provides embedded copies of the shipped city
// catalog files. This package exists solely to satisfy go:embed's
// requirement that embedded files reside in or below the embedding
// package directory.
//
// The runtime catalog loader lives in internal/catalog.
package defaultdata

import "embed"

// FS contains the shipped catalog YAML files.
//
//go:embed *.yaml
var FS embed.FS
