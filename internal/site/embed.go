// ABOUTME: Embeds the public page templates into the binary using go:embed
// ABOUTME: Provides templateFS for loading templates at runtime

package site

import "embed"

//go:embed templates/*.html
var templateFS embed.FS
