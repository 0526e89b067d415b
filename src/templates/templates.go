// Package templates embeds the default HTML pages.
package templates

import "embed"

//go:embed index.html
var FS embed.FS

const Index = "index.html"
