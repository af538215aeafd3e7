// ABOUTME: Two-tier bounded state cache with an always-on persisted tier and an LRU tier
// ABOUTME: Mutators never fail; persistence runs on a single coalescing background worker

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/mingle-client/internal/lru"
	"github.com/2389/mingle-client/internal/store"
)

// Default bounded tier capacities.
const (
	DefaultMaxActiveChats    = 5
	DefaultMaxRecentProfiles = 20
)

// persistTimeout bounds a single background snapshot write.
const persistTimeout = 5 * time.Second

// SnapshotStore is the durable storage the always-on tier is mirrored to.
// store.SQLiteStore and store.MockStore satisfy it.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, key string) ([]byte, error)
	SaveSnapshot(ctx context.Context, key string, blob []byte) error
	DeleteSnapshot(ctx context.Context, key string) error
}

// Option configures a Store.
type Option func(*Store)

// WithMaxActiveChats sets the active chat capacity.
func WithMaxActiveChats(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxChats = n
		}
	}
}

// WithMaxRecentProfiles sets the recent profile view capacity.
func WithMaxRecentProfiles(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxProfiles = n
		}
	}
}

// WithClock overrides the time source used for slice timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the client's working set of domain data.
type Store struct {
	snapshots SnapshotStore
	logger    *slog.Logger
	now       func() time.Time

	maxChats    int
	maxProfiles int

	mu    sync.RWMutex
	scope Scope
	ready bool

	// always-on tier
	currentUser  *Profile
	currentEvent *EventInfo
	matches      []MatchSummary
	discovery1   []Profile
	updated      map[Slice]time.Time

	// bounded tier
	chats    *lru.Cache[string, ActiveChat]
	profiles *lru.Cache[string, Profile]
	pages    map[int][]Profile

	feed *changeFeed

	dirty     chan struct{}
	flushReq  chan chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// New creates a Store and starts its persistence worker. A nil logger uses
// slog.Default().
func New(snapshots SnapshotStore, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		snapshots:   snapshots,
		logger:      logger.With("component", "state"),
		now:         time.Now,
		maxChats:    DefaultMaxActiveChats,
		maxProfiles: DefaultMaxRecentProfiles,
		updated:     make(map[Slice]time.Time),
		pages:       make(map[int][]Profile),
		dirty:       make(chan struct{}, 1),
		flushReq:    make(chan chan struct{}),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.chats = lru.New(s.maxChats, lru.WithOnEvict(func(id string, _ ActiveChat) {
		s.logger.Debug("evicted active chat", "chat_id", id)
	}))
	s.profiles = lru.New(s.maxProfiles, lru.WithOnEvict(func(id string, _ Profile) {
		s.logger.Debug("evicted recent profile", "profile_id", id)
	}))
	s.feed = newChangeFeed(s.logger)

	go s.persistLoop()
	return s
}

// Initialize binds the store to a user, event and session, then reloads the
// always-on tier from storage. A snapshot belonging to another user or event
// is discarded.
//
// Writes still pending for the previous scope are flushed first. The scope
// swap and the always-on reset happen under one lock, and the worker skips
// writes until loading finishes, so no snapshot ever pairs one user's data
// with another user's scope.
func (s *Store) Initialize(ctx context.Context, userID, eventID, sessionID string) {
	if err := s.Flush(ctx); err != nil {
		s.logger.Warn("pending snapshot not written before re-initialize", "error", err)
	}

	s.mu.Lock()
	s.scope = Scope{UserID: userID, EventID: eventID, SessionID: sessionID}
	s.ready = false
	s.resetAlwaysOnLocked()
	s.mu.Unlock()

	s.LoadFromStorage(ctx)

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()

	s.logger.Info("state initialized", "user_id", userID, "event_id", eventID)
}

// Ready reports whether Initialize has completed.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Identity returns the scope the store was initialized with.
func (s *Store) Identity() Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// --- Always-on tier ---

// UpdateCurrentUserProfile replaces the current user's profile. nil clears it.
func (s *Store) UpdateCurrentUserProfile(p *Profile) {
	s.mu.Lock()
	s.currentUser = cloneProfilePtr(p)
	at := s.stampLocked(SliceCurrentUser)
	s.mu.Unlock()

	s.changed(SliceCurrentUser, at)
}

// UpdateCurrentEvent replaces the current event metadata. nil clears it.
// Start and end times are stored in UTC so they survive a snapshot round trip
// unchanged.
func (s *Store) UpdateCurrentEvent(e *EventInfo) {
	e = cloneEventPtr(e)
	if e != nil {
		e.StartsAt = e.StartsAt.UTC()
		e.EndsAt = e.EndsAt.UTC()
	}

	s.mu.Lock()
	s.currentEvent = e
	at := s.stampLocked(SliceCurrentEvent)
	s.mu.Unlock()

	s.changed(SliceCurrentEvent, at)
}

// UpdateMatchesSummary replaces the match list.
func (s *Store) UpdateMatchesSummary(matches []MatchSummary) {
	s.mu.Lock()
	s.matches = cloneSlice(matches)
	at := s.stampLocked(SliceMatches)
	s.mu.Unlock()

	s.changed(SliceMatches, at)
}

// ModifyMatchesSummary replaces the match list with fn's result. fn runs
// under the store lock and receives a copy of the current list, so concurrent
// read-modify-write callers never lose each other's updates. Returning nil
// from fn leaves the list untouched. fn must not call back into the store.
func (s *Store) ModifyMatchesSummary(fn func([]MatchSummary) []MatchSummary) bool {
	s.mu.Lock()
	next := fn(cloneSlice(s.matches))
	if next == nil {
		s.mu.Unlock()
		return false
	}
	s.matches = cloneSlice(next)
	at := s.stampLocked(SliceMatches)
	s.mu.Unlock()

	s.changed(SliceMatches, at)
	return true
}

// UpdateDiscoveryPage1 replaces the first discovery page unless the incoming
// list has the same profile IDs in the same order as the cached one. Returns
// false when the update was skipped.
func (s *Store) UpdateDiscoveryPage1(profiles []Profile) bool {
	s.mu.Lock()
	if sameProfileIDs(s.discovery1, profiles) {
		s.mu.Unlock()
		s.logger.Debug("discovery page 1 unchanged, skipping update", "count", len(profiles))
		return false
	}
	s.discovery1 = cloneProfiles(profiles)
	at := s.stampLocked(SliceDiscoveryPage1)
	s.mu.Unlock()

	s.changed(SliceDiscoveryPage1, at)
	return true
}

// CurrentUserProfile returns a copy of the current user's profile, or nil.
func (s *Store) CurrentUserProfile() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProfilePtr(s.currentUser)
}

// CurrentEvent returns a copy of the current event metadata, or nil.
func (s *Store) CurrentEvent() *EventInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEventPtr(s.currentEvent)
}

// MatchesSummary returns a copy of the match list.
func (s *Store) MatchesSummary() []MatchSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.matches)
}

// DiscoveryPage1 returns a copy of the first discovery page.
func (s *Store) DiscoveryPage1() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProfiles(s.discovery1)
}

// LastUpdated returns when slice was last replaced, or the zero time.
func (s *Store) LastUpdated(slice Slice) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated[slice]
}

// --- Bounded tier ---

// AddActiveChat caches a chat transcript as the most recently used chat,
// evicting the least recently used chat when at capacity.
func (s *Store) AddActiveChat(chatID string, messages []ChatMessage) {
	s.mu.Lock()
	now := s.now()
	s.chats.Put(chatID, ActiveChat{ChatID: chatID, Messages: cloneSlice(messages), LastAccessedAt: now})
	s.updated[SliceActiveChats] = now
	s.mu.Unlock()

	s.feed.publish(Change{Slice: SliceActiveChats, At: now})
}

// UpdateChatMessages replaces the transcript of a cached chat and marks it
// most recently used. Returns false, without adding it, if the chat is not cached.
func (s *Store) UpdateChatMessages(chatID string, messages []ChatMessage) bool {
	s.mu.Lock()
	if !s.chats.Contains(chatID) {
		s.mu.Unlock()
		return false
	}
	now := s.now()
	s.chats.Put(chatID, ActiveChat{ChatID: chatID, Messages: cloneSlice(messages), LastAccessedAt: now})
	s.updated[SliceActiveChats] = now
	s.mu.Unlock()

	s.feed.publish(Change{Slice: SliceActiveChats, At: now})
	return true
}

// AppendChatMessage appends one message to a cached chat and marks it most
// recently used. Returns false if the chat is not cached.
func (s *Store) AppendChatMessage(chatID string, msg ChatMessage) bool {
	s.mu.Lock()
	chat, ok := s.chats.Get(chatID)
	if !ok {
		s.mu.Unlock()
		return false
	}
	now := s.now()
	messages := make([]ChatMessage, 0, len(chat.Messages)+1)
	messages = append(messages, chat.Messages...)
	chat.Messages = append(messages, msg)
	chat.LastAccessedAt = now
	s.chats.Put(chatID, chat)
	s.updated[SliceActiveChats] = now
	s.mu.Unlock()

	s.feed.publish(Change{Slice: SliceActiveChats, At: now})
	return true
}

// RemoveActiveChat drops a chat from the cache. Returns true if it was cached.
func (s *Store) RemoveActiveChat(chatID string) bool {
	s.mu.Lock()
	removed := s.chats.Remove(chatID)
	now := s.now()
	if removed {
		s.updated[SliceActiveChats] = now
	}
	s.mu.Unlock()

	if removed {
		s.feed.publish(Change{Slice: SliceActiveChats, At: now})
	}
	return removed
}

// ActiveChat returns a copy of a cached chat and marks it most recently used.
func (s *Store) ActiveChat(chatID string) (ActiveChat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats.Get(chatID)
	if !ok {
		return ActiveChat{}, false
	}
	chat.LastAccessedAt = s.now()
	s.chats.Put(chatID, chat)
	return chat.clone(), true
}

// ActiveChatIDs returns cached chat IDs from most to least recently used.
func (s *Store) ActiveChatIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chats.Keys()
}

// AddRecentProfileView caches a viewed profile keyed by its ID.
func (s *Store) AddRecentProfileView(p Profile) {
	s.mu.Lock()
	s.profiles.Put(p.ID, p.clone())
	now := s.now()
	s.updated[SliceRecentProfiles] = now
	s.mu.Unlock()

	s.feed.publish(Change{Slice: SliceRecentProfiles, At: now})
}

// RecentProfile returns a cached profile view and marks it most recently used.
func (s *Store) RecentProfile(id string) (Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles.Get(id)
	if !ok {
		return Profile{}, false
	}
	return p.clone(), true
}

// RecentProfileIDs returns cached profile IDs from most to least recently used.
func (s *Store) RecentProfileIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles.Keys()
}

// SetDiscoveryPage stores a discovery page. Pages are not bounded.
func (s *Store) SetDiscoveryPage(n int, profiles []Profile) {
	s.mu.Lock()
	s.pages[n] = cloneProfiles(profiles)
	now := s.now()
	s.updated[SliceDiscoveryPages] = now
	s.mu.Unlock()

	s.feed.publish(Change{Slice: SliceDiscoveryPages, At: now})
}

// DiscoveryPage returns a copy of page n.
func (s *Store) DiscoveryPage(n int) ([]Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.pages[n]
	if !ok {
		return nil, false
	}
	return cloneProfiles(page), true
}

// Cleanup clears the bounded tier. The always-on tier is left untouched.
func (s *Store) Cleanup() {
	s.mu.Lock()
	s.chats.Clear()
	s.profiles.Clear()
	s.pages = make(map[int][]Profile)
	now := s.now()
	for _, slice := range []Slice{SliceActiveChats, SliceRecentProfiles, SliceDiscoveryPages} {
		delete(s.updated, slice)
	}
	s.mu.Unlock()

	s.logger.Debug("bounded tier cleared")
	for _, slice := range []Slice{SliceActiveChats, SliceRecentProfiles, SliceDiscoveryPages} {
		s.feed.publish(Change{Slice: slice, At: now})
	}
}

// --- Change feed ---

// Subscribe returns a channel of changes for the given slices, or for every
// slice when none are given, and a subscription ID. The channel is closed
// when ctx is cancelled, on Unsubscribe, or when the store is closed.
func (s *Store) Subscribe(ctx context.Context, slices ...Slice) (<-chan Change, string) {
	return s.feed.subscribe(ctx, slices...)
}

// Unsubscribe ends a subscription.
func (s *Store) Unsubscribe(subID string) {
	s.feed.unsubscribe(subID)
}

// --- Persistence ---

// PersistToStorage writes the always-on tier to storage. Failures are logged.
func (s *Store) PersistToStorage(ctx context.Context) {
	if s.snapshots == nil {
		return
	}

	s.mu.RLock()
	if !s.ready {
		s.mu.RUnlock()
		s.logger.Debug("skipping persist until initialized")
		return
	}
	snap := s.snapshotLocked()
	s.mu.RUnlock()

	blob, err := json.Marshal(snap)
	if err != nil {
		s.logger.Warn("failed to encode snapshot", "error", err)
		return
	}
	if err := s.snapshots.SaveSnapshot(ctx, store.SnapshotKeyAlwaysOn, blob); err != nil {
		s.logger.Warn("failed to persist snapshot", "error", err)
		return
	}
	s.logger.Debug("snapshot persisted", "size", len(blob))
}

// LoadFromStorage replaces the always-on tier with the persisted snapshot.
// When nothing usable is stored the always-on tier is left empty. Failures
// are logged.
func (s *Store) LoadFromStorage(ctx context.Context) {
	snap, err := s.loadSnapshot(ctx)

	s.mu.Lock()
	s.resetAlwaysOnLocked()
	if err == nil {
		s.currentUser = snap.CurrentUserProfile
		s.currentEvent = snap.CurrentEvent
		s.matches = snap.MatchesSummary
		s.discovery1 = snap.DiscoveryPage1
		for slice, at := range snap.Updated {
			if slice.Persistent() {
				s.updated[slice] = at
			}
		}
	}
	now := s.now()
	s.mu.Unlock()

	if err != nil {
		return
	}
	s.logger.Debug("snapshot loaded", "saved_at", snap.SavedAt)
	for _, slice := range AlwaysOnSlices {
		s.feed.publish(Change{Slice: slice, At: now})
	}
}

var errInvalidSnapshot = errors.New("invalid snapshot")

func (s *Store) loadSnapshot(ctx context.Context) (*Snapshot, error) {
	if s.snapshots == nil {
		return nil, store.ErrNotFound
	}

	blob, err := s.snapshots.LoadSnapshot(ctx, store.SnapshotKeyAlwaysOn)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Debug("no persisted snapshot")
		return nil, err
	}
	if err != nil {
		s.logger.Warn("failed to load snapshot", "error", err)
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		s.logger.Warn("discarding undecodable snapshot", "error", err)
		s.invalidate(ctx)
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	scope := s.Identity()
	switch {
	case snap.Version != snapshotVersion:
		s.logger.Info("discarding snapshot with unknown version", "version", snap.Version)
	case snap.UserID != scope.UserID:
		s.logger.Info("discarding snapshot for another user", "snapshot_user_id", snap.UserID)
	case snap.EventID != scope.EventID:
		s.logger.Info("discarding snapshot for another event", "snapshot_event_id", snap.EventID)
	default:
		return &snap, nil
	}
	s.invalidate(ctx)
	return nil, errInvalidSnapshot
}

func (s *Store) invalidate(ctx context.Context) {
	if err := s.snapshots.DeleteSnapshot(ctx, store.SnapshotKeyAlwaysOn); err != nil {
		s.logger.Warn("failed to delete invalid snapshot", "error", err)
	}
}

// Flush blocks until every persist scheduled before the call has been written,
// or ctx is done.
func (s *Store) Flush(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case s.flushReq <- reply:
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes any pending snapshot, stops the persistence worker and ends
// all change subscriptions. Safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
		s.feed.close()
	})
}

func (s *Store) persistLoop() {
	defer close(s.stopped)
	for {
		select {
		case <-s.dirty:
			s.persistBackground()
		case reply := <-s.flushReq:
			s.drainDirty()
			close(reply)
		case <-s.done:
			s.drainDirty()
			return
		}
	}
}

func (s *Store) drainDirty() {
	select {
	case <-s.dirty:
		s.persistBackground()
	default:
	}
}

func (s *Store) persistBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	s.PersistToStorage(ctx)
}

// schedulePersist signals the worker. A signal already pending covers this one.
func (s *Store) schedulePersist() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// changed publishes a change for an always-on slice and schedules a persist.
func (s *Store) changed(slice Slice, at time.Time) {
	s.feed.publish(Change{Slice: slice, At: at})
	s.schedulePersist()
}

func (s *Store) stampLocked(slice Slice) time.Time {
	at := s.now()
	s.updated[slice] = at
	return at
}

func (s *Store) resetAlwaysOnLocked() {
	s.currentUser = nil
	s.currentEvent = nil
	s.matches = nil
	s.discovery1 = nil
	for _, slice := range AlwaysOnSlices {
		delete(s.updated, slice)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	updated := make(map[Slice]time.Time, len(AlwaysOnSlices))
	for _, slice := range AlwaysOnSlices {
		if at, ok := s.updated[slice]; ok {
			updated[slice] = at
		}
	}
	return Snapshot{
		Version:            snapshotVersion,
		UserID:             s.scope.UserID,
		EventID:            s.scope.EventID,
		SessionID:          s.scope.SessionID,
		SavedAt:            s.now(),
		CurrentUserProfile: cloneProfilePtr(s.currentUser),
		CurrentEvent:       cloneEventPtr(s.currentEvent),
		MatchesSummary:     cloneSlice(s.matches),
		DiscoveryPage1:     cloneProfiles(s.discovery1),
		Updated:            updated,
	}
}
