// ABOUTME: Event router that dedupes incoming match/message events and decides how to surface them
// ABOUTME: Arbitrates against foreground state, match role, and per-sender mute status

package router

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/mingle-client/internal/dedupe"
	"github.com/2389/mingle-client/internal/events"
	"github.com/2389/mingle-client/internal/mute"
	"github.com/2389/mingle-client/internal/preview"
)

// Default routing parameters.
const (
	DefaultMatchCooldown   = 5000 * time.Millisecond
	DefaultMessageCooldown = 3000 * time.Millisecond
	DefaultMuteTimeout     = 3 * time.Second
	DefaultPreviewLength   = 80
)

// Decision describes what the router did with an event.
type Decision string

// Possible routing decisions.
const (
	DecisionNotReady   Decision = "not_ready"  // dropped: Init not called yet
	DecisionIgnored    Decision = "ignored"    // nil or unrecognized event
	DecisionDuplicate  Decision = "duplicate"  // inside the dedup window
	DecisionMuted      Decision = "muted"      // sender muted for this user
	DecisionBackground Decision = "background" // left to server-side push
	DecisionDialog     Decision = "dialog"
	DecisionToast      Decision = "toast"
)

// Presented reports whether the decision resulted in something shown to the user.
func (d Decision) Presented() bool {
	return d == DecisionDialog || d == DecisionToast
}

// Router decides, per incoming event, whether and how to surface it.
// It is inert until Init registers a foreground query.
type Router struct {
	presenter Presenter
	mute      mute.Checker
	ledger    *dedupe.Ledger
	logger    *slog.Logger

	matchCooldown   time.Duration
	messageCooldown time.Duration
	muteTimeout     time.Duration
	previewLength   int
	now             func() time.Time
	sweepInterval   time.Duration

	mu           sync.RWMutex
	isForeground func() bool
	navigate     func()
}

// Option configures a Router.
type Option func(*Router)

// WithCooldowns sets the dedup windows for match and message events.
// Non-positive values keep the defaults.
func WithCooldowns(match, message time.Duration) Option {
	return func(r *Router) {
		if match > 0 {
			r.matchCooldown = match
		}
		if message > 0 {
			r.messageCooldown = message
		}
	}
}

// WithMuteTimeout bounds each mute lookup. A lookup that times out is treated as "not muted".
func WithMuteTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.muteTimeout = d
		}
	}
}

// WithPreviewLength sets the maximum rune length of message previews.
func WithPreviewLength(n int) Option {
	return func(r *Router) {
		r.previewLength = n
	}
}

// WithClock overrides the time source used by the dedup ledger.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSweepInterval sets how often the dedup ledger drops stale entries.
// A non-positive interval disables sweeping.
func WithSweepInterval(d time.Duration) Option {
	return func(r *Router) {
		r.sweepInterval = d
	}
}

// New creates a Router. A nil mute checker means no sender is ever muted.
// Pass nil logger for default.
func New(presenter Presenter, checker mute.Checker, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if checker == nil {
		checker = mute.Never
	}
	if presenter == nil {
		presenter = PresenterFunc(func(Notice) {})
	}

	r := &Router{
		presenter:       presenter,
		mute:            checker,
		logger:          logger.With("component", "router"),
		matchCooldown:   DefaultMatchCooldown,
		messageCooldown: DefaultMessageCooldown,
		muteTimeout:     DefaultMuteTimeout,
		previewLength:   DefaultPreviewLength,
		now:             time.Now,
		sweepInterval:   dedupe.DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.ledger = dedupe.New(dedupe.WithClock(r.now), dedupe.WithSweepInterval(r.sweepInterval))
	return r
}

// Init registers the foreground query and the navigate-to-matches action.
// Until isForeground is non-nil every event is dropped. Calling Init again
// replaces the registered callbacks.
func (r *Router) Init(isForeground func() bool, navigateToMatches func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.isForeground = isForeground
	r.navigate = navigateToMatches
	r.logger.Debug("router initialized", "ready", isForeground != nil)
}

// Ready reports whether Init has registered a foreground query.
func (r *Router) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isForeground != nil
}

// Cooldown returns the dedup window for the given kind.
func (r *Router) Cooldown(kind events.Kind) time.Duration {
	switch kind {
	case events.KindMatch:
		return r.matchCooldown
	case events.KindMessage:
		return r.messageCooldown
	}
	return 0
}

// HandleIncoming routes a single event. It never panics and never returns
// an error; the returned Decision is informational.
func (r *Router) HandleIncoming(ctx context.Context, ev events.Event) (decision Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("recovered from panic while routing event", "panic", rec)
			decision = DecisionIgnored
		}
	}()

	ev = events.Normalize(ev)
	if ev == nil {
		return DecisionIgnored
	}

	r.mu.RLock()
	isForeground, navigate := r.isForeground, r.navigate
	r.mu.RUnlock()

	if isForeground == nil {
		r.logger.Debug("dropping event before init", "kind", ev.Kind(), "event_id", ev.EventID())
		return DecisionNotReady
	}

	// Mark synchronously before any lookup so concurrent deliveries of the
	// same event cannot both pass.
	if r.ledger.CheckAndMark(events.Key(ev), r.Cooldown(ev.Kind())) {
		r.logger.Debug("suppressed duplicate event", "kind", ev.Kind(), "event_id", ev.EventID())
		return DecisionDuplicate
	}

	decision = events.Dispatch[Decision](ev, &dispatcher{
		r:            r,
		ctx:          ctx,
		isForeground: isForeground,
		navigate:     navigate,
	})
	r.logger.Debug("routed event", "kind", ev.Kind(), "event_id", ev.EventID(), "decision", decision)
	return decision
}

// Close releases the dedup ledger's background sweep.
func (r *Router) Close() {
	r.ledger.Close()
}

// dispatcher carries per-call state into the kind-specific handlers.
type dispatcher struct {
	r            *Router
	ctx          context.Context
	isForeground func() bool
	navigate     func()
}

// Match handles match events.
func (d *dispatcher) Match(m events.MatchEvent) Decision {
	// The creator just acted in the app, so they are foreground by construction.
	if m.IsCreator {
		d.r.present(Notice{
			Style:    StyleDialog,
			Kind:     events.KindMatch,
			EventID:  m.ID,
			PeerID:   m.OtherPartyID,
			Title:    "It's a match!",
			Body:     matchDialogBody(m.OtherName),
			Navigate: d.navigate,
		})
		return DecisionDialog
	}

	if !d.isForeground() {
		return DecisionBackground
	}

	d.r.present(Notice{
		Style:    StyleToast,
		Kind:     events.KindMatch,
		EventID:  m.ID,
		PeerID:   m.OtherPartyID,
		Title:    "New match",
		Body:     matchToastBody(m.OtherName),
		Navigate: d.navigate,
	})
	return DecisionToast
}

// Message handles message events.
func (d *dispatcher) Message(m events.MessageEvent) Decision {
	if d.r.isMuted(d.ctx, m) {
		return DecisionMuted
	}

	if !d.isForeground() {
		return DecisionBackground
	}

	title := m.SenderName
	if title == "" {
		title = "New message"
	}
	d.r.present(Notice{
		Style:   StyleToast,
		Kind:    events.KindMessage,
		EventID: m.ID,
		PeerID:  m.SenderSessionID,
		ChatID:  m.ConversationID,
		Title:   title,
		Body:    preview.Render(m.PreviewText, d.r.previewLength),
	})
	return DecisionToast
}

// isMuted runs the mute lookup with a timeout. Errors fail open.
func (r *Router) isMuted(ctx context.Context, m events.MessageEvent) bool {
	if m.SenderSessionID == "" {
		return false
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.muteTimeout)
	defer cancel()

	muted, err := r.mute.IsMuted(lookupCtx, m.SenderSessionID)
	if err != nil {
		r.logger.Warn("mute lookup failed, delivering notification",
			"event_id", m.ID,
			"sender_session_id", m.SenderSessionID,
			"error", err)
		return false
	}
	if muted {
		r.logger.Debug("suppressed message from muted sender",
			"event_id", m.ID,
			"sender_session_id", m.SenderSessionID)
	}
	return muted
}

// present hands a notice to the presenter, shielding the caller from presenter panics.
func (r *Router) present(n Notice) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("presenter panicked", "event_id", n.EventID, "panic", rec)
		}
	}()
	r.presenter.Present(n)
}

func matchDialogBody(name string) string {
	if name == "" {
		return "You have a new match. View your matches or keep browsing?"
	}
	return "You and " + name + " liked each other. View your matches or keep browsing?"
}

func matchToastBody(name string) string {
	if name == "" {
		return "Someone liked you back"
	}
	return name + " liked you back"
}
