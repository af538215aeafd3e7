// ABOUTME: Composition root that wires config, snapshot storage, mute lookups, router, and state store
// ABOUTME: Routes each incoming event, then applies it to the cached working set

package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2389/mingle-client/internal/config"
	"github.com/2389/mingle-client/internal/events"
	"github.com/2389/mingle-client/internal/mute"
	"github.com/2389/mingle-client/internal/router"
	"github.com/2389/mingle-client/internal/session"
	"github.com/2389/mingle-client/internal/state"
	"github.com/2389/mingle-client/internal/store"
)

// closeTimeout bounds the final snapshot flush on Close.
const closeTimeout = 5 * time.Second

// Option configures an App.
type Option func(*App)

// WithSnapshotStore uses s instead of opening the configured storage.
// The App takes ownership and closes it.
func WithSnapshotStore(s store.Store) Option {
	return func(a *App) {
		a.snapshots = s
	}
}

// WithMuteChecker uses c instead of the configured HTTP mute service.
func WithMuteChecker(c mute.Checker) Option {
	return func(a *App) {
		a.checker = c
	}
}

// WithClock overrides the time source of the router and the state store.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// App is the client core: one router and one state store over one snapshot store.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time

	snapshots store.Store
	router    *router.Router
	state     *state.Store

	mu       sync.RWMutex
	checker  mute.Checker
	identity session.Identity

	foreground atomic.Bool
	navigate   chan struct{}

	closeOnce sync.Once
}

// New builds the App from cfg. Routing stays inert until Start.
func New(cfg *config.Config, logger *slog.Logger, presenter router.Presenter, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		cfg:      cfg,
		logger:   logger.With("component", "app"),
		navigate: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.snapshots == nil {
		s, err := OpenSnapshotStore(cfg.Storage)
		if err != nil {
			return nil, err
		}
		a.snapshots = s
	}

	routerOpts := []router.Option{
		router.WithCooldowns(cfg.Router.MatchCooldown, cfg.Router.MessageCooldown),
		router.WithMuteTimeout(cfg.Router.MuteTimeout),
		router.WithPreviewLength(cfg.Router.PreviewLength),
		router.WithSweepInterval(cfg.Router.SweepInterval),
	}
	stateOpts := []state.Option{
		state.WithMaxActiveChats(cfg.Cache.MaxActiveChats),
		state.WithMaxRecentProfiles(cfg.Cache.MaxRecentProfiles),
	}
	if a.now != nil {
		routerOpts = append(routerOpts, router.WithClock(a.now))
		stateOpts = append(stateOpts, state.WithClock(a.now))
	}

	a.router = router.New(presenter, mute.Func(a.isMuted), logger, routerOpts...)
	a.state = state.New(a.snapshots, logger, stateOpts...)
	return a, nil
}

// OpenSnapshotStore opens the storage selected by cfg.
func OpenSnapshotStore(cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return store.NewMockStore(), nil
	case config.DriverSQLite, "":
		s, err := store.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening snapshot store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Start binds the cache to id, loads the persisted snapshot, and enables routing.
func (a *App) Start(ctx context.Context, id session.Identity) {
	a.mu.Lock()
	a.identity = id
	if a.checker == nil && a.cfg.Mute.BaseURL != "" {
		a.checker = mute.NewHTTPChecker(a.cfg.Mute.BaseURL, id.SessionID, a.cfg.Mute.Token, nil)
	}
	a.mu.Unlock()

	a.state.Initialize(ctx, id.UserID, id.EventID, id.SessionID)
	a.router.Init(a.Foreground, a.requestNavigate)

	a.logger.Info("client started",
		"user_id", id.UserID,
		"event_id", id.EventID,
		"mute_lookups", a.muteEnabled())
}

// Handle routes ev and then applies it to the cache. Events the router drops
// as duplicates, or before Start, are not applied.
func (a *App) Handle(ctx context.Context, ev events.Event) router.Decision {
	decision := a.router.HandleIncoming(ctx, ev)
	switch decision {
	case router.DecisionNotReady, router.DecisionIgnored, router.DecisionDuplicate:
		return decision
	}

	events.Dispatch[struct{}](events.Normalize(ev), &applier{state: a.state})
	return decision
}

// SetForeground records whether the UI is in front.
func (a *App) SetForeground(fg bool) {
	a.foreground.Store(fg)
	a.logger.Debug("foreground changed", "foreground", fg)
}

// Foreground reports whether the UI is in front.
func (a *App) Foreground() bool {
	return a.foreground.Load()
}

// NavigateRequests delivers a signal each time a notice asks to open the
// match list. Signals coalesce while unread.
func (a *App) NavigateRequests() <-chan struct{} {
	return a.navigate
}

// Identity returns the identity passed to Start.
func (a *App) Identity() session.Identity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.identity
}

// State returns the state store.
func (a *App) State() *state.Store {
	return a.state
}

// Router returns the event router.
func (a *App) Router() *router.Router {
	return a.router
}

// Close clears the bounded tier, writes the always-on snapshot and releases
// every resource. Safe to call more than once.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.state.Cleanup()

		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if ferr := a.state.Flush(ctx); ferr != nil {
			a.logger.Warn("snapshot flush did not finish", "error", ferr)
		}

		a.state.Close()
		a.router.Close()
		err = a.snapshots.Close()
	})
	return err
}

func (a *App) requestNavigate() {
	select {
	case a.navigate <- struct{}{}:
	default:
	}
}

func (a *App) muteEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.checker != nil
}

// isMuted delegates to the checker chosen at Start.
func (a *App) isMuted(ctx context.Context, senderSessionID string) (bool, error) {
	a.mu.RLock()
	checker := a.checker
	a.mu.RUnlock()

	if checker == nil {
		return false, nil
	}
	return checker.IsMuted(ctx, senderSessionID)
}

// applier folds routed events into the cache.
type applier struct {
	state *state.Store
}

// Match prepends the new match to the summary list unless it is already there.
func (ap *applier) Match(m events.MatchEvent) struct{} {
	ap.state.ModifyMatchesSummary(func(current []state.MatchSummary) []state.MatchSummary {
		for _, s := range current {
			if s.MatchID == m.ID {
				return nil
			}
		}

		next := make([]state.MatchSummary, 0, len(current)+1)
		next = append(next, state.MatchSummary{
			MatchID:       m.ID,
			PeerProfileID: m.OtherPartyID,
			PeerName:      m.OtherName,
			CreatedAt:     m.CreatedAt,
		})
		return append(next, current...)
	})
	return struct{}{}
}

// Message appends to the open chat, if cached, and bumps the sender's
// match summary.
func (ap *applier) Message(m events.MessageEvent) struct{} {
	chatID := m.ConversationID
	if chatID == "" {
		chatID = m.SenderProfileID
	}
	ap.state.AppendChatMessage(chatID, state.ChatMessage{
		ID:              m.ID,
		SenderProfileID: m.SenderProfileID,
		Body:            m.PreviewText,
		SentAt:          m.CreatedAt,
	})

	ap.state.ModifyMatchesSummary(func(matches []state.MatchSummary) []state.MatchSummary {
		changed := false
		for i := range matches {
			if matches[i].PeerProfileID == m.SenderProfileID {
				matches[i].LastMessage = m.PreviewText
				matches[i].Unread++
				changed = true
			}
		}
		if !changed {
			return nil
		}
		return matches
	})
	return struct{}{}
}
