// ABOUTME: Domain event types delivered by the real-time subscriptions
// ABOUTME: Match and message events form a sealed sum type keyed by (kind, id)

package events

import "time"

// Kind identifies the variant of a domain event.
type Kind string

// Known event kinds.
const (
	KindMatch   Kind = "match"
	KindMessage Kind = "message"
)

// Event is a domain event. The set of implementations is closed:
// only MatchEvent and MessageEvent satisfy it.
type Event interface {
	Kind() Kind
	EventID() string
	// Time returns CreatedAt as a time.Time. Display ordering only.
	Time() time.Time

	isEvent()
}

// MatchEvent signals that a match involving the local user was created.
type MatchEvent struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"` // epoch milliseconds

	// IsCreator is true when the local user was the second party to
	// express interest, i.e. their own action created the match.
	IsCreator    bool   `json:"isCreator"`
	OtherPartyID string `json:"otherPartyId"`
	OtherName    string `json:"otherName,omitempty"`
}

func (MatchEvent) Kind() Kind        { return KindMatch }
func (e MatchEvent) EventID() string { return e.ID }
func (e MatchEvent) Time() time.Time { return time.UnixMilli(e.CreatedAt) }
func (MatchEvent) isEvent()          {}

// MessageEvent signals a new chat message addressed to the local user.
type MessageEvent struct {
	ID              string `json:"id"`
	CreatedAt       int64  `json:"createdAt"` // epoch milliseconds
	SenderProfileID string `json:"senderProfileId"`
	SenderSessionID string `json:"senderSessionId,omitempty"`
	SenderName      string `json:"senderName,omitempty"`
	ConversationID  string `json:"conversationId,omitempty"`
	PreviewText     string `json:"previewText,omitempty"`
}

func (MessageEvent) Kind() Kind        { return KindMessage }
func (e MessageEvent) EventID() string { return e.ID }
func (e MessageEvent) Time() time.Time { return time.UnixMilli(e.CreatedAt) }
func (MessageEvent) isEvent()          {}

// Key returns the dedup key for an event: "<kind>:<id>".
func Key(ev Event) string {
	return string(ev.Kind()) + ":" + ev.EventID()
}

// Handler handles each event kind. Adding a kind adds a method here, so
// every Handler implementation has to decide what to do with it.
type Handler[T any] interface {
	Match(MatchEvent) T
	Message(MessageEvent) T
}

// Normalize returns ev in value form, or nil when ev is nil or a nil pointer.
func Normalize(ev Event) Event {
	switch e := ev.(type) {
	case *MatchEvent:
		if e == nil {
			return nil
		}
		return *e
	case *MessageEvent:
		if e == nil {
			return nil
		}
		return *e
	}
	return ev
}

// Dispatch calls the Handler method matching ev's kind.
// A nil event yields the zero value of T.
func Dispatch[T any](ev Event, h Handler[T]) T {
	switch e := Normalize(ev).(type) {
	case MatchEvent:
		return h.Match(e)
	case MessageEvent:
		return h.Message(e)
	}
	var zero T
	return zero
}
