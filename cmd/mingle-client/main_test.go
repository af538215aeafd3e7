// ABOUTME: Tests for the CLI's log handler and terminal presenter
// ABOUTME: Output is checked with colors disabled

package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mingle-client/internal/app"
	"github.com/2389/mingle-client/internal/config"
	"github.com/2389/mingle-client/internal/events"
	"github.com/2389/mingle-client/internal/feed"
	"github.com/2389/mingle-client/internal/router"
	"github.com/2389/mingle-client/internal/session"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestColorHandler(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	h := &colorHandler{mu: &sync.Mutex{}, out: &buf, level: slog.LevelInfo}
	logger := slog.New(h).With("component", "router")

	logger.Debug("hidden")
	logger.Info("routed event", "decision", "toast")
	logger.WithGroup("mute").Warn("lookup failed", "error", "timeout")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INF [router] routed event decision=toast\n")
	assert.Contains(t, out, "WRN [router] lookup failed mute.error=timeout\n")
	assert.NotContains(t, out, "component=")
}

func TestTerminalPresenter(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	p := newTerminalPresenter(&buf)

	navigated := false
	p.Present(router.Notice{Style: router.StyleDialog, Title: "It's a match!", Body: "You and Alex", Navigate: func() { navigated = true }})
	p.Present(router.Notice{Style: router.StyleToast, Title: "Alex", Body: "see you there"})

	out := buf.String()
	assert.Contains(t, out, "[dialog] It's a match!")
	assert.Contains(t, out, "[toast] Alex see you there")
	assert.True(t, navigated)
}

func TestResolveIdentity(t *testing.T) {
	secret := "dev-secret"
	good, err := session.Sign(session.Identity{UserID: "u", EventID: "e", SessionID: "s"}, []byte(secret), time.Hour)
	require.NoError(t, err)

	cfg := config.Default()
	t.Setenv("MINGLE_SESSION_TOKEN", good)

	id, err := resolveIdentity(&cfg)
	require.NoError(t, err)
	assert.Equal(t, "u", id.UserID)

	cfg.Session.VerifySecret = "wrong"
	_, err = resolveIdentity(&cfg)
	assert.ErrorIs(t, err, session.ErrInvalidToken)

	t.Setenv("MINGLE_SESSION_TOKEN", "")
	cfg.Session.VerifySecret = ""
	_, err = resolveIdentity(&cfg)
	assert.Error(t, err)
}

func TestOpenSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0644))

	sources, closeAll, err := openSources([]string{path, "-"})
	require.NoError(t, err)
	defer closeAll()

	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	assert.Equal(t, []string{path, "stdin"}, names)

	_, _, err = openSources([]string{filepath.Join(dir, "missing.jsonl")})
	assert.Error(t, err)
}

func TestPrintStatsDoesNotPanic(t *testing.T) {
	noColor(t)
	stats := feed.Stats{Lines: 3, Unknown: 1, Decisions: map[router.Decision]int{router.DecisionToast: 2}}
	assert.NotPanics(t, func() { printStats(stats, 0) })
}

// lockedBuffer is a bytes.Buffer safe for a concurrent writer and reader.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchMatchesLogsChangesUntilCancelled(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = config.DriverMemory
	cfg.Router.SweepInterval = 0

	a, err := app.New(&cfg, nil, nil)
	require.NoError(t, err)
	defer a.Close()
	a.Start(context.Background(), session.Identity{UserID: "u", EventID: "e", SessionID: "s"})

	var out lockedBuffer
	logger := slog.New(slog.NewTextHandler(&out, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		watchMatches(ctx, a, logger)
	}()

	// The subscription is made inside the goroutine, so keep delivering
	// new matches until one is observed.
	n := 0
	require.Eventually(t, func() bool {
		n++
		a.Handle(context.Background(), events.MatchEvent{ID: fmt.Sprintf("m-%d", n), OtherPartyID: "p"})
		return strings.Contains(out.String(), "match list updated")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchMatches did not return after cancel")
	}
}
