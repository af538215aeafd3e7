// ABOUTME: Thread-safe dedup ledger with a per-key cooldown window
// ABOUTME: Used by the event router to suppress repeated delivery of the same event

package dedupe

import (
	"sync"
	"time"
)

// DefaultSweepInterval is how often stale entries are dropped.
const DefaultSweepInterval = time.Minute

// ledgerEntry stores when a key was last accepted and the window it was accepted under.
type ledgerEntry struct {
	lastSeen time.Time
	cooldown time.Duration
}

// Ledger records the last accepted sighting of each key. A key seen again
// before its cooldown elapses is reported as a duplicate. Duplicates do not
// refresh the entry: the window is always measured from the last accepted
// sighting.
type Ledger struct {
	mu     sync.Mutex
	seen   map[string]*ledgerEntry
	now    func() time.Time
	sweep  time.Duration
	done   chan struct{}
	closed bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSweepInterval sets how often stale entries are removed.
// A non-positive interval disables the background sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(l *Ledger) {
		l.sweep = d
	}
}

// New creates a ledger. Unless disabled, a background goroutine
// periodically drops entries whose cooldown has fully elapsed.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		seen:  make(map[string]*ledgerEntry),
		now:   time.Now,
		sweep: DefaultSweepInterval,
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.sweep > 0 {
		go l.cleanup()
	}
	return l
}

// CheckAndMark atomically checks whether key is inside its cooldown window
// and records the sighting if it is not.
// Returns true for a duplicate (nothing recorded), false if the key was accepted.
func (l *Ledger) CheckAndMark(key string, cooldown time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.seen[key]
	if ok && now.Sub(entry.lastSeen) < cooldown {
		return true
	}

	if ok {
		entry.lastSeen = now
		entry.cooldown = cooldown
		return false
	}
	l.seen[key] = &ledgerEntry{lastSeen: now, cooldown: cooldown}
	return false
}

// Len returns the number of tracked keys.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// cleanup runs in a background goroutine, periodically removing stale entries.
func (l *Ledger) cleanup() {
	ticker := time.NewTicker(l.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.runCleanup()
		case <-l.done:
			return
		}
	}
}

// runCleanup removes entries that can no longer suppress anything.
func (l *Ledger) runCleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, entry := range l.seen {
		if now.Sub(entry.lastSeen) >= entry.cooldown {
			delete(l.seen, key)
			removed++
		}
	}
	return removed
}

// Close stops the background sweep. It is safe to call multiple times.
func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		close(l.done)
		l.closed = true
	}
}
