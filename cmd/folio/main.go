// ABOUTME: Entry point for the folio portfolio server
// ABOUTME: Serves the site and admin, seeds content and inspects local fallback data

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/folio/internal/config"
	"github.com/2389/folio/internal/contact"
	"github.com/2389/folio/internal/content"
	"github.com/2389/folio/internal/local"
	"github.com/2389/folio/internal/remote"
	"github.com/2389/folio/internal/server"
	"github.com/2389/folio/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  __       _ _
 / _| ___ | (_) ___
| |_ / _ \| | |/ _ \
|  _| (_) | | | (_) |
|_|  \___/|_|_|\___/
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: folio <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve      Start the portfolio server")
		fmt.Println("  init       Create a new config file interactively")
		fmt.Println("  seed       Insert the starter profile and projects into an empty store")
		fmt.Println("  health     Check server health")
		fmt.Println("  fallback   List contact messages captured locally during outages")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "seed":
		err = runSeed(ctx)
	case "health":
		err = runHealth(ctx)
	case "fallback":
		err = runFallback(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	if cfg.Remote.URL != "" {
		green.Print("    ▶ ")
		fmt.Printf("Remote:    %s\n", cfg.Remote.URL)
	} else {
		green.Print("    ▶ ")
		fmt.Printf("Database:  %s\n", cfg.Database.Path)
	}
	green.Print("    ▶ ")
	fmt.Printf("Local:     %s\n", cfg.Local.Path)

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	} else {
		green.Print("    ▶ ")
		fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	}

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	green.Print("    ▶ ")
	fmt.Printf("Site:      %s\n", srv.BaseURL())
	green.Print("    ▶ ")
	fmt.Printf("Admin:     %s/admin\n", strings.TrimSuffix(srv.BaseURL(), "/"))
	fmt.Println()

	logger.Info("starting folio",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	return srv.Run(ctx)
}

// openRepository opens the configured repository for one-shot commands.
func openRepository(cfg *config.Config) (store.Repository, func() error, error) {
	if cfg.Remote.URL != "" {
		client, err := remote.New(cfg.Remote.URL, remote.WithTimeout(cfg.Remote.Timeout))
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("creating database directory: %w", err)
	}
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return s, s.Close, nil
}

func runSeed(ctx context.Context) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeRepo() }()

	result, err := content.Seed(ctx, repo)
	if err != nil {
		return fmt.Errorf("seeding content: %w", err)
	}

	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)
	if result.Settings {
		green.Print("✓ ")
		fmt.Println("Created starter profile")
	} else {
		gray.Println("· Profile already exists, left unchanged")
	}
	if result.Projects > 0 {
		green.Print("✓ ")
		fmt.Printf("Created %d projects\n", result.Projects)
	} else {
		gray.Println("· Projects already exist, left unchanged")
	}
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	baseURL := cfg.Site.BaseURL
	if baseURL == "" {
		baseURL = "http://" + cfg.Server.HTTPAddr
	}
	client, err := remote.New(baseURL, remote.WithTimeout(5*time.Second))
	if err != nil {
		return err
	}

	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Println("healthy")
	return nil
}

func runFallback(ctx context.Context) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	kv, err := local.Open(ctx, cfg.Local.Path)
	if err != nil {
		return fmt.Errorf("opening local storage: %w", err)
	}
	defer kv.Close()

	entries, err := contact.NewFallbackLog(kv).List(ctx)
	if err != nil {
		return fmt.Errorf("reading fallback log: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No locally captured messages.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECEIVED\tNAME\tEMAIL\tMESSAGE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Name,
			e.Email,
			truncate(e.Message, 60),
		)
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("folio configuration setup")
	fmt.Println("=========================")
	fmt.Println()

	cfg := config.Default()

	outputFile := prompt(reader, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !yes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config file: %w", err)
	}

	fmt.Println("\n--- Server Configuration ---")
	cfg.Server.HTTPAddr = prompt(reader, "HTTP address", cfg.Server.HTTPAddr)

	fmt.Println("\n--- Storage Configuration ---")
	cfg.Remote.URL = prompt(reader, "Remote folio server URL (leave empty to use a local database)", "")
	if cfg.Remote.URL == "" {
		cfg.Database.Path = prompt(reader, "SQLite database path", cfg.Database.Path)
	}
	cfg.Local.Path = prompt(reader, "Local storage path", cfg.Local.Path)

	fmt.Println("\n--- Tailscale Configuration ---")
	cfg.Tailscale.Enabled = yes(prompt(reader, "Enable Tailscale?", "no"))
	if cfg.Tailscale.Enabled {
		cfg.Tailscale.Hostname = prompt(reader, "Tailscale hostname", "folio")
		cfg.Tailscale.AuthKey = prompt(reader, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		cfg.Tailscale.Ephemeral = yes(prompt(reader, "Ephemeral node?", "no"))
		cfg.Tailscale.HTTPS = yes(prompt(reader, "Serve HTTPS with tailnet certificates?", "yes"))
		cfg.Tailscale.Funnel = yes(prompt(reader, "Enable Funnel (public HTTPS)?", "no"))
	}

	fmt.Println("\n--- Logging Configuration ---")
	cfg.Logging.Level = prompt(reader, "Log level (debug/info/warn/error)", cfg.Logging.Level)
	cfg.Logging.Format = prompt(reader, "Log format (text/json)", cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.Save(cfg, outputFile); err != nil {
		return err
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo add starter content and start the server:")
	fmt.Println("  folio seed")
	fmt.Println("  folio serve")

	return nil
}

func yes(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "yes" || a == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
