// ABOUTME: Cached domain entities for the two-tier state store
// ABOUTME: Profiles, event metadata, match summaries, chat transcripts, and the persisted snapshot

package state

import "time"

// Slice names one independently updated part of the cache.
type Slice string

// Always-on tier slices. These are persisted.
const (
	SliceCurrentUser    Slice = "current_user"
	SliceCurrentEvent   Slice = "current_event"
	SliceMatches        Slice = "matches"
	SliceDiscoveryPage1 Slice = "discovery_page1"
)

// Bounded tier slices. These live only in memory.
const (
	SliceActiveChats    Slice = "active_chats"
	SliceRecentProfiles Slice = "recent_profiles"
	SliceDiscoveryPages Slice = "discovery_pages"
)

// AlwaysOnSlices lists the slices that make up the persisted tier.
var AlwaysOnSlices = []Slice{SliceCurrentUser, SliceCurrentEvent, SliceMatches, SliceDiscoveryPage1}

// Persistent returns true if the slice belongs to the always-on tier.
func (s Slice) Persistent() bool {
	switch s {
	case SliceCurrentUser, SliceCurrentEvent, SliceMatches, SliceDiscoveryPage1:
		return true
	default:
		return false
	}
}

// Profile is a snapshot of a participant's public profile.
type Profile struct {
	ID          string   `json:"id"`
	SessionID   string   `json:"sessionId,omitempty"`
	DisplayName string   `json:"displayName"`
	Bio         string   `json:"bio,omitempty"`
	PhotoURL    string   `json:"photoUrl,omitempty"`
	Interests   []string `json:"interests,omitempty"`
}

func (p Profile) clone() Profile {
	if p.Interests != nil {
		p.Interests = append([]string(nil), p.Interests...)
	}
	return p
}

// EventInfo is the metadata of the event the user is attending.
type EventInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Venue    string    `json:"venue,omitempty"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
}

// MatchSummary is one row of the user's match list.
type MatchSummary struct {
	MatchID       string `json:"matchId"`
	PeerProfileID string `json:"peerProfileId"`
	PeerName      string `json:"peerName,omitempty"`
	CreatedAt     int64  `json:"createdAt"`
	LastMessage   string `json:"lastMessage,omitempty"`
	Unread        int    `json:"unread"`
}

// ChatMessage is one entry of a chat transcript.
type ChatMessage struct {
	ID              string `json:"id"`
	SenderProfileID string `json:"senderProfileId"`
	Body            string `json:"body"`
	SentAt          int64  `json:"sentAt"`
}

// ActiveChat is a cached chat transcript in the bounded tier.
type ActiveChat struct {
	ChatID         string
	Messages       []ChatMessage
	LastAccessedAt time.Time
}

func (c ActiveChat) clone() ActiveChat {
	c.Messages = cloneSlice(c.Messages)
	return c
}

// Scope identifies whose data the cache currently holds.
type Scope struct {
	UserID    string
	EventID   string
	SessionID string
}

// snapshotVersion is bumped whenever the persisted layout changes.
// Snapshots with any other version are discarded on load.
const snapshotVersion = 1

// Snapshot is the persisted form of the always-on tier.
type Snapshot struct {
	Version            int                 `json:"version"`
	UserID             string              `json:"userId"`
	EventID            string              `json:"eventId"`
	SessionID          string              `json:"sessionId"`
	SavedAt            time.Time           `json:"savedAt"`
	CurrentUserProfile *Profile            `json:"currentUserProfile,omitempty"`
	CurrentEvent       *EventInfo          `json:"currentEvent,omitempty"`
	MatchesSummary     []MatchSummary      `json:"matchesSummary,omitempty"`
	DiscoveryPage1     []Profile           `json:"discoveryPage1,omitempty"`
	Updated            map[Slice]time.Time `json:"updated,omitempty"`
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}

func cloneProfiles(in []Profile) []Profile {
	if in == nil {
		return nil
	}
	out := make([]Profile, len(in))
	for i, p := range in {
		out[i] = p.clone()
	}
	return out
}

func cloneProfilePtr(p *Profile) *Profile {
	if p == nil {
		return nil
	}
	c := p.clone()
	return &c
}

func cloneEventPtr(e *EventInfo) *EventInfo {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// sameProfileIDs reports whether a and b have the same length and the same
// profile ID at every index.
func sameProfileIDs(a, b []Profile) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
