// Package assets serves the site's stylesheets and icons embedded via go:embed.
// Each file is also reachable under a content-hashed name so pages can link
// it with long-lived cache headers.
package assets

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
)

//go:embed all:static
var staticFS embed.FS

var (
	// hashedToFile maps "site.3f2a9c1b.css" to "site.css"
	hashedToFile = map[string]string{}
	// fileToHashed maps "site.css" to "site.3f2a9c1b.css"
	fileToHashed = map[string]string{}
)

// hashPattern detects the content hash inserted into filenames (e.g. ".3f2a9c1b.").
var hashPattern = regexp.MustCompile(`\.[a-f0-9]{8}\.`)

func init() {
	// Register MIME types that may not be in the default database.
	_ = mime.AddExtensionType(".woff2", "font/woff2")
	_ = mime.AddExtensionType(".webmanifest", "application/manifest+json")

	err := fs.WalkDir(staticFS, "static", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(staticFS, p)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(p, "static/")
		name := hashedName(rel, data)
		hashedToFile[name] = rel
		fileToHashed[rel] = name
		return nil
	})
	if err != nil {
		slog.Error("failed to index embedded assets", "error", err)
	}
}

// hashedName inserts the first 8 hex chars of the content hash before the
// extension: "css/site.css" becomes "css/site.3f2a9c1b.css".
func hashedName(rel string, data []byte) string {
	sum := sha256.Sum256(data)
	ext := path.Ext(rel)
	return strings.TrimSuffix(rel, ext) + "." + hex.EncodeToString(sum[:])[:8] + ext
}

// URL returns the cache-busting URL for an embedded file, for use in templates.
// Unknown names are returned unhashed.
func URL(name string) string {
	if hashed, ok := fileToHashed[name]; ok {
		return "/static/" + hashed
	}
	return "/static/" + name
}

// containsHash reports whether the given path contains a content hash
// (8 hex characters between dots, e.g. "site.a1b2c3d4.css").
func containsHash(p string) bool {
	return hashPattern.MatchString(p)
}

// mimeFromExt returns the MIME type for a file extension.
// Falls back to the Go standard library's MIME type database,
// then to "application/octet-stream" if unknown.
func mimeFromExt(ext string) string {
	switch ext {
	case ".js", ".mjs":
		return "application/javascript"
	case ".css":
		return "text/css; charset=utf-8"
	case ".woff2":
		return "font/woff2"
	case ".svg":
		return "image/svg+xml"
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
		return "application/octet-stream"
	}
}

// FileServer returns an http.Handler that serves embedded assets from static/.
// Hashed names get immutable cache headers; plain names get no-cache.
// The handler expects paths relative to the static root (strip /static/ before calling).
func FileServer() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("assets: failed to create sub filesystem: " + err.Error())
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")

		// Set content type explicitly for known extensions
		ext := strings.ToLower(path.Ext(name))
		if ext != "" {
			w.Header().Set("Content-Type", mimeFromExt(ext))
		}

		if file, ok := hashedToFile[name]; ok && containsHash(name) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			r2 := r.Clone(r.Context())
			r2.URL.Path = "/" + file
			fileServer.ServeHTTP(w, r2)
			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		fileServer.ServeHTTP(w, r)
	})
}
