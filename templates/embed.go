// Package defaulttemplates provides embedded copies of the shipped
// response templates. This package exists solely to satisfy go:embed's
// requirement that embedded files reside in or below the embedding
// package directory.
//
// The runtime template store lives in internal/templates.
package defaulttemplates

import "embed"

// FS contains the shipped response templates.
//
//go:embed *.tmpl
var FS embed.FS
