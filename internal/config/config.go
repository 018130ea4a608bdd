// ABOUTME: Configuration loading and parsing for folio
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults used when a value is not set in the file.
const (
	DefaultHTTPAddr      = "127.0.0.1:8080"
	DefaultSendingDelay  = 800 * time.Millisecond
	DefaultSentDisplay   = 3 * time.Second
	DefaultDedupeWindow  = 10 * time.Minute
	DefaultRemoteTimeout = 10 * time.Second
)

// Config represents the complete folio configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database"`
	Local     LocalConfig     `yaml:"local"`
	Remote    RemoteConfig    `yaml:"remote"`
	Contact   ContactConfig   `yaml:"contact"`
	Logging   LoggingConfig   `yaml:"logging"`
	Site      SiteConfig      `yaml:"site"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
	HTTPS     bool   `yaml:"https"`  // Serve with the tailnet's automatic certificate
	Funnel    bool   `yaml:"funnel"` // Expose publicly via Funnel (implies HTTPS)
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds the entity database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LocalConfig holds the local key/value storage configuration
type LocalConfig struct {
	Path string `yaml:"path"`
}

// RemoteConfig points the server at another folio server's entity API
// instead of the local database.
type RemoteConfig struct {
	URL string `yaml:"url"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// ContactConfig holds contact form timing
type ContactConfig struct {
	SendingDelay time.Duration `yaml:"-"`
	SentDisplay  time.Duration `yaml:"-"`
	DedupeWindow time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	SendingDelayRaw string `yaml:"sending_delay"`
	SentDisplayRaw  string `yaml:"sent_display"`
	DedupeWindowRaw string `yaml:"dedupe_window"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SiteConfig holds public site settings
type SiteConfig struct {
	// BaseURL is the external URL of the site, used in the startup banner.
	// If not set, it's derived from server.http_addr or the tailscale hostname.
	BaseURL string `yaml:"base_url"`
}

// DefaultPath returns the config path: $FOLIO_CONFIG, else
// $XDG_CONFIG_HOME/folio/config.yaml, else ~/.config/folio/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("FOLIO_CONFIG"); p != "" {
		return p
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "folio", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "folio", "config.yaml")
}

// DefaultDataDir returns ~/.local/share/folio (or $XDG_DATA_HOME/folio).
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "folio")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "folio")
}

// Default returns a complete configuration for a local install.
func Default() *Config {
	data := DefaultDataDir()
	cfg := &Config{
		Server:   ServerConfig{HTTPAddr: DefaultHTTPAddr},
		Database: DatabaseConfig{Path: filepath.Join(data, "folio.db")},
		Local:    LocalConfig{Path: filepath.Join(data, "local.db")},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
	applyDefaults(cfg)
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if p := os.Getenv("FOLIO_DB_PATH"); p != "" {
		cfg.Database.Path = p
	}
	applyDefaults(&cfg)

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(cfg *Config, path string) error {
	out := *cfg
	out.Remote.TimeoutRaw = formatDuration(cfg.Remote.Timeout)
	out.Contact.SendingDelayRaw = formatDuration(cfg.Contact.SendingDelay)
	out.Contact.SentDisplayRaw = formatDuration(cfg.Contact.SentDisplay)
	out.Contact.DedupeWindowRaw = formatDuration(cfg.Contact.DedupeWindow)

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in values left unset by the file.
func applyDefaults(cfg *Config) {
	if cfg.Contact.SendingDelay == 0 {
		cfg.Contact.SendingDelay = DefaultSendingDelay
	}
	if cfg.Contact.SentDisplay == 0 {
		cfg.Contact.SentDisplay = DefaultSentDisplay
	}
	if cfg.Contact.DedupeWindow == 0 {
		cfg.Contact.DedupeWindow = DefaultDedupeWindow
	}
	if cfg.Remote.Timeout == 0 {
		cfg.Remote.Timeout = DefaultRemoteTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// Server address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	// The entity database is only needed when no remote is configured
	if c.Remote.URL == "" && c.Database.Path == "" {
		return fmt.Errorf("database.path is required (or set remote.url)")
	}
	if c.Remote.URL != "" {
		u, err := url.Parse(c.Remote.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("remote.url must be an http(s) URL, got %q", c.Remote.URL)
		}
	}

	if c.Local.Path == "" {
		return fmt.Errorf("local.path is required")
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"remote.timeout", cfg.Remote.TimeoutRaw, &cfg.Remote.Timeout},
		{"contact.sending_delay", cfg.Contact.SendingDelayRaw, &cfg.Contact.SendingDelay},
		{"contact.sent_display", cfg.Contact.SentDisplayRaw, &cfg.Contact.SentDisplay},
		{"contact.dedupe_window", cfg.Contact.DedupeWindowRaw, &cfg.Contact.DedupeWindow},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		if d < 0 {
			return fmt.Errorf("parsing %s %q: must not be negative", f.name, f.raw)
		}
		*f.dst = d
	}

	return nil
}
