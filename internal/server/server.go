// ABOUTME: Server orchestrator that wires the content stack into one HTTP server
// ABOUTME: Manages repository, local storage, cache, listeners and graceful shutdown

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/folio/internal/api"
	"github.com/2389/folio/internal/assets"
	"github.com/2389/folio/internal/cache"
	"github.com/2389/folio/internal/config"
	"github.com/2389/folio/internal/contact"
	"github.com/2389/folio/internal/dedupe"
	"github.com/2389/folio/internal/editor"
	"github.com/2389/folio/internal/inbox"
	"github.com/2389/folio/internal/local"
	"github.com/2389/folio/internal/remote"
	"github.com/2389/folio/internal/site"
	"github.com/2389/folio/internal/store"
	"github.com/2389/folio/internal/theme"
	"github.com/2389/folio/internal/webadmin"
)

// dedupeMaxSize bounds the contact fingerprints held at once.
const dedupeMaxSize = 10_000

// Server orchestrates the folio components.
type Server struct {
	config      *config.Config
	repo        store.Repository
	sqlStore    *store.SQLiteStore // nil when a remote repository is configured
	local       *local.Store
	cache       *cache.Cache
	editor      *editor.Controller
	dedupe      *dedupe.Window
	handler     http.Handler
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// ready reports whether the repository answers
	ready func(ctx context.Context) error

	// stopWatch ends the editor's settings subscription
	stopWatch context.CancelFunc
}

// initRepository returns the remote repository when remote.url is set,
// otherwise the SQLite database at database.path.
func initRepository(cfg *config.Config, logger *slog.Logger) (store.Repository, *store.SQLiteStore, func(context.Context) error, error) {
	if cfg.Remote.URL != "" {
		client, err := remote.New(cfg.Remote.URL,
			remote.WithTimeout(cfg.Remote.Timeout),
			remote.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("initializing remote repository: %w", err)
		}
		logger.Info("using remote repository", "url", cfg.Remote.URL)
		return client, nil, client.Health, nil
	}

	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o700); err != nil {
			return nil, nil, nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, s, s.Ping, nil
}

// New creates a new Server instance with the given configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	repo, sqlStore, ready, err := initRepository(cfg, logger)
	if err != nil {
		return nil, err
	}

	localStore, err := local.Open(ctx, cfg.Local.Path)
	if err != nil {
		if sqlStore != nil {
			_ = sqlStore.Close()
		}
		return nil, fmt.Errorf("opening local storage: %w", err)
	}

	entityCache := cache.New(repo, logger)
	ed := editor.New(entityCache, logger)
	watchCtx, stopWatch := context.WithCancel(context.Background())
	go ed.Watch(watchCtx, entityCache)

	srv := &Server{
		config:    cfg,
		repo:      repo,
		sqlStore:  sqlStore,
		local:     localStore,
		cache:     entityCache,
		editor:    ed,
		dedupe:    dedupe.New(cfg.Contact.DedupeWindow, dedupeMaxSize),
		logger:    logger.With("component", "server"),
		ready:     ready,
		stopWatch: stopWatch,
	}

	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("GET /health/ready", srv.handleReady)

	// Static assets
	mux.Handle("GET /static/", http.StripPrefix("/static/", assets.FileServer()))

	// Entity API; writes made through it refresh the cached kind
	entityAPI := api.New(repo, logger)
	entityAPI.OnChange = entityCache.Invalidate
	entityAPI.RegisterRoutes(mux)

	// Public site
	themeStore := theme.New(ctx, localStore, logger)
	publicSite := site.New(entityCache, themeStore, site.Options{
		Contact: contact.Options{
			SendingDelay: cfg.Contact.SendingDelay,
			SentDisplay:  cfg.Contact.SentDisplay,
		},
		Fallback: contact.NewFallbackLog(localStore),
		Dedupe:   srv.dedupe,
		Logger:   logger,
	})
	publicSite.RegisterRoutes(mux)

	// Admin
	siteURL := "/"
	if cfg.Site.BaseURL != "" {
		siteURL = cfg.Site.BaseURL
	}
	admin := webadmin.New(ed, inbox.New(entityCache, logger), entityCache, webadmin.Config{SiteURL: siteURL}, logger)
	admin.RegisterRoutes(mux)

	srv.handler = mux
	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv, nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// BaseURL resolves the external URL from config.
func (s *Server) BaseURL() string {
	cfg := s.config
	if cfg.Site.BaseURL != "" {
		return cfg.Site.BaseURL
	}
	if !cfg.Tailscale.Enabled {
		return "http://" + cfg.Server.HTTPAddr
	}
	if cfg.Tailscale.HTTPS || cfg.Tailscale.Funnel {
		return "https://" + cfg.Tailscale.Hostname
	}
	return "http://" + cfg.Tailscale.Hostname
}

// setupListener creates the listener based on configuration (Tailscale or TCP).
func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.config.Tailscale.Enabled {
		if s.config.Server.HTTPAddr != "" {
			s.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", s.config.Server.HTTPAddr)
		}
		return s.setupTailscaleListener(ctx)
	}

	s.logger.Info("starting server", "http_addr", s.config.Server.HTTPAddr)
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.setupListener(ctx)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until the context is canceled, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() since the original context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) string {
	if configured != "" {
		return configured
	}
	return filepath.Join(config.DefaultDataDir(), "tailscale")
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set tailscale.auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListener starts a tsnet node and returns its HTTP listener.
func (s *Server) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := s.config.Tailscale

	stateDir := resolveTailscaleStateDir(tsCfg.StateDir)
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	s.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	s.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := s.tsnetServer.Up(ctx)
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	s.logTailscaleStatus(tsCfg.Hostname, status)

	return s.createTailscaleHTTPListener(tsCfg)
}

// logTailscaleStatus logs info about the tailscale node status.
func (s *Server) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		s.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = strings.TrimSuffix(status.Self.DNSName, ".")
	}
	s.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// createTailscaleHTTPListener creates the appropriate HTTP listener based on config.
func (s *Server) createTailscaleHTTPListener(tsCfg config.TailscaleConfig) (net.Listener, error) {
	switch {
	case tsCfg.Funnel:
		s.logger.Info("enabling tailscale funnel (public HTTPS) on :443")
		ln, err := s.tsnetServer.ListenFunnel("tcp", ":443")
		if err != nil {
			_ = s.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale funnel port: %w", err)
		}
		return ln, nil
	case tsCfg.HTTPS:
		return s.createTailscaleTLSListener()
	default:
		ln, err := s.tsnetServer.Listen("tcp", ":80")
		if err != nil {
			_ = s.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
		}
		return ln, nil
	}
}

// createTailscaleTLSListener creates a TLS listener using Tailscale's auto-provisioned certs.
func (s *Server) createTailscaleTLSListener() (net.Listener, error) {
	s.logger.Info("enabling HTTPS with Tailscale certs on :443")
	ln, err := s.tsnetServer.Listen("tcp", ":443")
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTPS port: %w", err)
	}
	lc, err := s.tsnetServer.LocalClient()
	if err != nil {
		_ = ln.Close()
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("getting tailscale local client: %w", err)
	}
	return tls.NewListener(ln, &tls.Config{
		GetCertificate: lc.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}), nil
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))

	if s.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", s.tsnetServer.Close())
	}

	s.Close()

	errs = appendCloseError(errs, "local storage close", s.local.Close())
	if s.sqlStore != nil {
		errs = appendCloseError(errs, "store close", s.sqlStore.Close())
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// Close stops background work without touching the listener. Safe to call
// more than once.
func (s *Server) Close() {
	s.stopWatch()
	s.cache.Close()
	s.dedupe.Close()
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the repository is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.ready(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("repository unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
