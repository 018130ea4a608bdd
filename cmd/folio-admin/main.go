// ABOUTME: Admin CLI for a running folio server
// ABOUTME: Manages profile settings, projects and contact messages over the entity API

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/folio/internal/cache"
	"github.com/2389/folio/internal/content"
	"github.com/2389/folio/internal/editor"
	"github.com/2389/folio/internal/inbox"
	"github.com/2389/folio/internal/remote"
	"github.com/2389/folio/internal/store"
	"github.com/2389/folio/internal/webadmin"
)

const banner = `
  __       _ _                 _           _
 / _| ___ | (_) ___       __ _| |_ __ ___ (_)_ __
| |_ / _ \| | |/ _ \____ / _' | | '_ ' _ \| | '_ \
|  _| (_) | | | (_) |___| (_| | | | | | | | | | | |
|_|  \___/|_|_|\___/     \__,_|_|_| |_| |_|_|_| |_|
`

// session is the client-side stack one command runs against.
type session struct {
	cache  *cache.Cache
	editor *editor.Controller
	inbox  *inbox.Inbox
	client *remote.Client
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := run(ctx, cmd, args, os.Stdout)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, out io.Writer) error {
	cfg, err := Load(DefaultConfigPath())
	if err != nil {
		return err
	}

	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer s.cache.Close()

	switch cmd {
	case "status":
		return s.cmdStatus(ctx, out, cfg.Server.URL)
	case "settings":
		return s.cmdSettings(ctx, out)
	case "set":
		return s.cmdSet(ctx, out, args)
	case "projects":
		return s.cmdProjects(ctx, out, args)
	case "messages":
		return s.cmdMessages(ctx, out)
	case "unread":
		return s.cmdUnread(ctx, out)
	case "read":
		return s.cmdRead(ctx, out, args)
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func newSession(cfg *Config) (*session, error) {
	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.Logging.Level)}))

	client, err := remote.New(cfg.Server.URL, remote.WithTimeout(timeout), remote.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	c := cache.New(client, logger)
	return &session{
		cache:  c,
		editor: editor.New(c, logger),
		inbox:  inbox.New(c, logger),
		client: client,
	}, nil
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: folio-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  status                    Show server health and content counts")
	fmt.Println("  settings                  Show the profile settings")
	fmt.Println("  set <field> <value>       Change one profile field and save")
	fmt.Println("  projects                  List projects, newest first")
	fmt.Println("  projects add <title>      Add a project with the given title")
	fmt.Println("  projects delete <id>      Delete a project by ID")
	fmt.Println("  messages                  List contact messages, newest first")
	fmt.Println("  unread                    Print the unread message count")
	fmt.Println("  read <id>                 Mark a message read")
	fmt.Println()
	yellow.Println("Fields for set:")
	fmt.Println("  name title tagline bio email photo_url github_url linkedin_url twitter_url")
	fmt.Println("  skills   (\"Category: a, b; Other: c\")")
	fmt.Println()
	yellow.Println("Config:")
	fmt.Printf("  %s\n", DefaultConfigPath())
	fmt.Println()
	yellow.Println("Example admin.toml:")
	fmt.Println("  [server]")
	fmt.Println("  url = \"https://folio.tailnet.ts.net\"")
	fmt.Println("  timeout = \"10s\"")
	fmt.Println()
}

func (s *session) settings(ctx context.Context) (*content.PortfolioSettings, error) {
	snap, err := s.cache.Load(ctx, store.KindSettings)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return content.FirstSettings(snap.Records), nil
}

func (s *session) cmdStatus(ctx context.Context, out io.Writer, serverURL string) error {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	fmt.Fprintf(out, "Server:   %s\n", serverURL)
	if err := s.client.Health(ctx); err != nil {
		red.Fprintf(out, "Health:   unreachable (%v)\n", err)
		return nil
	}
	green.Fprintln(out, "Health:   ok")

	projects, err := s.cache.Load(ctx, store.KindProject)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}
	unread, err := s.inbox.Unread(ctx)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}

	fmt.Fprintf(out, "Projects: %d\n", len(projects.Records))
	fmt.Fprintf(out, "Unread:   %d\n", unread)
	return nil
}

func (s *session) cmdSettings(ctx context.Context, out io.Writer) error {
	settings, err := s.settings(ctx)
	if err != nil {
		return err
	}
	if settings == nil {
		fmt.Fprintln(out, "No settings saved yet. Use 'folio-admin set' or 'folio seed'.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", settings.ID)
	fmt.Fprintf(w, "Name:\t%s\n", settings.Name)
	fmt.Fprintf(w, "Title:\t%s\n", settings.Title)
	fmt.Fprintf(w, "Tagline:\t%s\n", settings.Tagline)
	fmt.Fprintf(w, "Email:\t%s\n", settings.Email)
	fmt.Fprintf(w, "Photo:\t%s\n", settings.PhotoURL)
	fmt.Fprintf(w, "GitHub:\t%s\n", settings.GithubURL)
	fmt.Fprintf(w, "LinkedIn:\t%s\n", settings.LinkedinURL)
	fmt.Fprintf(w, "Twitter:\t%s\n", settings.TwitterURL)
	if err := w.Flush(); err != nil {
		return err
	}

	if settings.Bio != "" {
		fmt.Fprintf(out, "\nBio:\n%s\n", settings.Bio)
	}
	if len(settings.Skills) > 0 {
		fmt.Fprintf(out, "\nSkills:\n%s\n", webadmin.FormatSkills(settings.Skills))
	}
	return nil
}

// patchFor builds the edit for one named field.
func patchFor(field, value string) (editor.Patch, error) {
	var p editor.Patch
	v := editor.String(value)
	switch strings.ToLower(strings.ReplaceAll(field, "-", "_")) {
	case "name":
		p.Name = v
	case "title":
		p.Title = v
	case "tagline":
		p.Tagline = v
	case "bio":
		p.Bio = v
	case "email":
		p.Email = v
	case "photo_url", "photo":
		p.PhotoURL = v
	case "github_url", "github":
		p.GithubURL = v
	case "linkedin_url", "linkedin":
		p.LinkedinURL = v
	case "twitter_url", "twitter":
		p.TwitterURL = v
	case "skills":
		skills := webadmin.ParseSkills(strings.ReplaceAll(value, ";", "\n"))
		p.Skills = &skills
	default:
		return p, fmt.Errorf("unknown field %q", field)
	}
	return p, nil
}

func (s *session) cmdSet(ctx context.Context, out io.Writer, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: folio-admin set <field> <value>")
	}
	patch, err := patchFor(args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	settings, err := s.settings(ctx)
	if err != nil {
		return err
	}
	if settings != nil {
		s.editor.Load(settings)
	}

	s.editor.Edit(patch)
	if err := s.editor.Save(ctx); err != nil {
		var verr *content.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%s (set it first with 'folio-admin set %s <value>')", verr.Error(), verr.Field)
		}
		return err
	}

	color.New(color.FgGreen).Fprint(out, "✓ ")
	fmt.Fprintf(out, "Saved %s\n", args[0])
	return nil
}

func (s *session) cmdProjects(ctx context.Context, out io.Writer, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		return s.listProjects(ctx, out)
	}

	switch args[0] {
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: folio-admin projects add <title>")
		}
		p := &content.Project{Title: strings.Join(args[1:], " ")}
		if err := p.Validate(); err != nil {
			return err
		}
		rec, err := s.cache.Mutate(ctx, store.KindProject, cache.Create(p.Fields()))
		if err != nil {
			return fmt.Errorf("creating project: %w", err)
		}
		color.New(color.FgGreen).Fprint(out, "✓ ")
		fmt.Fprintf(out, "Created project %s\n", rec.ID)
		return nil
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: folio-admin projects delete <id>")
		}
		if _, err := s.cache.Mutate(ctx, store.KindProject, cache.Delete(args[1])); err != nil {
			return fmt.Errorf("deleting project: %w", err)
		}
		color.New(color.FgGreen).Fprint(out, "✓ ")
		fmt.Fprintf(out, "Deleted project %s\n", args[1])
		return nil
	default:
		return fmt.Errorf("unknown projects subcommand: %s", args[0])
	}
}

func (s *session) listProjects(ctx context.Context, out io.Writer) error {
	snap, err := s.cache.Load(ctx, store.KindProject)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}
	projects := content.Projects(snap.Records)
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tTITLE\tTAGS")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			p.ID,
			p.CreatedAt.Local().Format("2006-01-02"),
			p.Title,
			strings.Join(p.Tags, ", "),
		)
	}
	return w.Flush()
}

func (s *session) cmdMessages(ctx context.Context, out io.Writer) error {
	msgs, err := s.inbox.Messages(ctx)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}
	if len(msgs) == 0 {
		fmt.Fprintln(out, "No messages.")
		return nil
	}

	yellow := color.New(color.FgYellow)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, " \tID\tRECEIVED\tFROM\tMESSAGE")
	for _, m := range msgs {
		marker := " "
		if !m.Read {
			marker = yellow.Sprint("*")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s <%s>\t%s\n",
			marker,
			m.ID,
			m.CreatedAt.Local().Format("2006-01-02 15:04"),
			m.Name,
			m.Email,
			oneLine(m.Message, 50),
		)
	}
	return w.Flush()
}

func (s *session) cmdUnread(ctx context.Context, out io.Writer) error {
	n, err := s.inbox.Unread(ctx)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}
	fmt.Fprintln(out, n)
	return nil
}

func (s *session) cmdRead(ctx context.Context, out io.Writer, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: folio-admin read <id>")
	}
	// Populate the cache so an already-read message costs no write
	if _, err := s.inbox.Messages(ctx); err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}
	if err := s.inbox.MarkRead(ctx, args[0]); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprint(out, "✓ ")
	fmt.Fprintf(out, "Marked %s read\n", args[0])
	return nil
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
