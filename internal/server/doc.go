// Package server orchestrates the folio server components.
//
// # Overview
//
// The server package wires the content stack into one HTTP server. It owns
// the entity repository, the local key/value store, the entity cache, the
// settings editor and the contact dedupe window, and mounts the public site,
// the web admin and the entity API on a single mux.
//
// # Repository
//
// The repository is chosen at startup:
//
//   - remote.url set: a remote.Client talking to another folio server's
//     entity API. Readiness is that server's /health.
//   - otherwise: a SQLite database at database.path. Readiness is a ping.
//
// # HTTP Routes
//
//   - GET /            Home page (profile, first projects, contact form)
//   - GET /projects    Full project list
//   - POST /contact    Contact form submission
//   - POST /theme      Toggle light/dark theme
//   - /admin/...       Web admin (profile, skills, projects, messages)
//   - /api/entities/.. Entity API used by remote servers and folio-admin
//   - GET /static/...  Embedded CSS and images
//   - GET /health      Liveness check
//   - GET /health/ready Readiness check
//
// Writes through the entity API invalidate the cache so pages re-render
// from fresh data.
//
// # Listeners
//
// Without Tailscale the server listens on server.http_addr. With
// tailscale.enabled it joins the tailnet through tsnet and serves plain
// HTTP on :80, HTTPS with the tailnet certificate, or Funnel.
//
// # Lifecycle
//
//	srv, err := server.New(ctx, cfg, logger)
//	err = srv.Run(ctx) // returns after ctx is done and shutdown completes
//
// Shutdown stops the HTTP server, the tsnet node, the editor watch, the
// cache and the dedupe window, then closes both databases.
package server
