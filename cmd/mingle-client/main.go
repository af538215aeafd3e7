// ABOUTME: Entry point for mingle-client, a terminal harness for the event router and state cache
// ABOUTME: Commands: run (consume event streams), init (write config), inspect (show snapshot), version

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/mingle-client/internal/app"
	"github.com/2389/mingle-client/internal/config"
	"github.com/2389/mingle-client/internal/feed"
	"github.com/2389/mingle-client/internal/router"
	"github.com/2389/mingle-client/internal/session"
	"github.com/2389/mingle-client/internal/state"
	"github.com/2389/mingle-client/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
           _             _
 _ __ ___ (_)_ __   __ _| | ___
| '_ ' _ \| | '_ \ / _' | |/ _ \
| | | | | | | | | | (_| | |  __/
|_| |_| |_|_|_| |_|\__, |_|\___|
                   |___/
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: mingle-client <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  run [files...]   Route events from stdin or JSON-lines files")
		fmt.Println("  init             Write the default config file")
		fmt.Println("  inspect          Show the persisted cache snapshot")
		fmt.Println("  version          Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "run":
		err = runRun(ctx, os.Args[2:])
	case "init":
		err = runInit()
	case "inspect":
		err = runInspect(ctx, os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the config file, falling back to defaults when none exists.
func loadConfig() (*config.Config, string, error) {
	configPath := config.DefaultConfigPath()

	cfg, err := config.Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		def := config.Default()
		return &def, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, configPath, nil
}

func resolveIdentity(cfg *config.Config) (session.Identity, error) {
	token := cfg.Session.Token
	if token == "" {
		token = os.Getenv("MINGLE_SESSION_TOKEN")
	}
	if token == "" {
		return session.Identity{}, fmt.Errorf("no session token: set session.token or MINGLE_SESSION_TOKEN")
	}

	if cfg.Session.VerifySecret != "" {
		return session.Verify(token, []byte(cfg.Session.VerifySecret))
	}
	return session.Parse(token)
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	background := fs.Bool("background", false, "start in the background state")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	id, err := resolveIdentity(cfg)
	if err != nil {
		return fmt.Errorf("resolving session: %w", err)
	}

	green := color.New(color.FgGreen)
	if configPath == "" {
		configPath = "(defaults)"
	}
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Storage:   %s %s\n", cfg.Storage.Driver, cfg.Storage.Path)
	green.Print("    ▶ ")
	fmt.Printf("User:      %s @ %s\n", id.UserID, id.EventID)
	if cfg.Mute.BaseURL != "" {
		green.Print("    ▶ ")
		fmt.Printf("Mutes:     %s\n", cfg.Mute.BaseURL)
	}
	fmt.Println()

	a, err := app.New(cfg, logger, newTerminalPresenter(os.Stdout))
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing client", "error", err)
		}
	}()

	a.SetForeground(!*background)
	a.Start(ctx, id)

	go watchForeground(ctx, a, logger)
	go watchNavigation(ctx, a)
	go watchMatches(ctx, a, logger)

	sources, closeSources, err := openSources(fs.Args())
	if err != nil {
		return err
	}
	defer closeSources()

	logger.Info("routing events", "subscriptions", len(sources), "foreground", a.Foreground())

	start := time.Now()
	stats, err := feed.RunAll(ctx, sources, feed.HandlerFunc(a.Handle), logger)
	printStats(stats, time.Since(start))
	return err
}

// watchForeground toggles the foreground state on SIGUSR1.
func watchForeground(ctx context.Context, a *app.App, logger *slog.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			a.SetForeground(!a.Foreground())
			logger.Info("foreground toggled", "foreground", a.Foreground())
		}
	}
}

// watchNavigation prints the match list whenever a notice asks to open it.
func watchNavigation(ctx context.Context, a *app.App) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.NavigateRequests():
			matches := a.State().MatchesSummary()
			color.New(color.FgMagenta).Printf("    ♥ %d matches\n", len(matches))
			for _, m := range matches {
				name := m.PeerName
				if name == "" {
					name = m.PeerProfileID
				}
				fmt.Printf("      - %s\n", name)
			}
		}
	}
}

// watchMatches logs every replacement of the cached match list until ctx is
// done or the client closes.
func watchMatches(ctx context.Context, a *app.App, logger *slog.Logger) {
	changes, _ := a.State().Subscribe(ctx, state.SliceMatches)
	for c := range changes {
		logger.Info("match list updated",
			"matches", len(a.State().MatchesSummary()),
			"at", c.At.Format(time.TimeOnly))
	}
}

func openSources(paths []string) ([]feed.Source, func(), error) {
	if len(paths) == 0 {
		return []feed.Source{{Name: "stdin", Reader: os.Stdin}}, func() {}, nil
	}

	var (
		sources []feed.Source
		closers []io.Closer
	)
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	for _, p := range paths {
		if p == "-" {
			sources = append(sources, feed.Source{Name: "stdin", Reader: os.Stdin})
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("opening event stream: %w", err)
		}
		closers = append(closers, f)
		sources = append(sources, feed.Source{Name: p, Reader: f})
	}
	return sources, closeAll, nil
}

func printStats(stats feed.Stats, elapsed time.Duration) {
	fmt.Println()
	bold := color.New(color.Bold)
	bold.Printf("    %d events in %s\n", stats.Lines, elapsed.Round(time.Millisecond))

	decisions := make([]router.Decision, 0, len(stats.Decisions))
	for d := range stats.Decisions {
		decisions = append(decisions, d)
	}
	sort.Slice(decisions, func(i, j int) bool { return decisions[i] < decisions[j] })
	for _, d := range decisions {
		fmt.Printf("      %-11s %d\n", d, stats.Decisions[d])
	}
	if stats.Unknown > 0 {
		color.New(color.FgHiBlack).Printf("      %-11s %d\n", "unknown", stats.Unknown)
	}
	if stats.Malformed > 0 {
		color.New(color.FgYellow).Printf("      %-11s %d\n", "malformed", stats.Malformed)
	}
}

func runInit() error {
	configPath := config.DefaultConfigPath()

	if err := config.WriteDefault(configPath); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Print("✓ ")
	fmt.Printf("Wrote %s\n", configPath)
	fmt.Println("  Set MINGLE_SESSION_TOKEN or session.token before running.")
	return nil
}

func runInspect(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	raw := fs.Bool("json", false, "print the raw snapshot JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	snapshots, err := app.OpenSnapshotStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	infos, err := snapshots.ListSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No snapshots stored.")
		return nil
	}

	blob, err := snapshots.LoadSnapshot(ctx, store.SnapshotKeyAlwaysOn)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	if *raw {
		var v any
		if err := json.Unmarshal(blob, &v); err != nil {
			return fmt.Errorf("decoding snapshot: %w", err)
		}
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	var snap state.Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	printSnapshot(snap, infos)
	return nil
}

func printSnapshot(snap state.Snapshot, infos []store.SnapshotInfo) {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	for _, info := range infos {
		gray.Printf("%s  %d bytes  %s\n", info.Key, info.Size, info.UpdatedAt.Local().Format(time.DateTime))
	}
	fmt.Println()

	cyan.Print("User:      ")
	fmt.Printf("%s (event %s, session %s)\n", snap.UserID, snap.EventID, snap.SessionID)
	cyan.Print("Saved:     ")
	fmt.Println(snap.SavedAt.Local().Format(time.DateTime))

	if p := snap.CurrentUserProfile; p != nil {
		cyan.Print("Profile:   ")
		fmt.Printf("%s (%s)\n", p.DisplayName, p.ID)
	}
	if e := snap.CurrentEvent; e != nil {
		cyan.Print("Event:     ")
		fmt.Printf("%s at %s\n", e.Name, e.Venue)
	}

	cyan.Print("Matches:   ")
	fmt.Println(len(snap.MatchesSummary))
	for _, m := range snap.MatchesSummary {
		fmt.Printf("  - %s %s", m.MatchID, m.PeerName)
		if m.Unread > 0 {
			color.New(color.FgYellow).Printf(" (%d unread)", m.Unread)
		}
		fmt.Println()
	}

	cyan.Print("Discover:  ")
	fmt.Printf("%d profiles on page 1\n", len(snap.DiscoveryPage1))
}
