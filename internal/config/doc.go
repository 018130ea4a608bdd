// Package config handles configuration loading for folio.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from FOLIO_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/folio/config.yaml
//  3. ~/.config/folio/config.yaml
//
// FOLIO_DB_PATH overrides database.path.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	tailscale:
//	  auth_key: "${TS_AUTHKEY}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
//	server:
//	  http_addr: "127.0.0.1:8080"
//
//	database:
//	  path: "~/.local/share/folio/folio.db"
//
//	local:
//	  path: "~/.local/share/folio/local.db"   # theme and offline contact log
//
//	remote:
//	  url: ""          # use another folio server's entity API instead of database.path
//	  timeout: "10s"
//
//	contact:
//	  sending_delay: "800ms"
//	  sent_display: "3s"
//	  dedupe_window: "10m"
//
//	tailscale:
//	  enabled: false
//	  hostname: "folio"
//	  auth_key: "${TS_AUTHKEY}"
//	  https: true
//	  funnel: false
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	site:
//	  base_url: ""
package config
