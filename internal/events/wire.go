// ABOUTME: Decoding of the JSON envelope pushed by real-time subscriptions
// ABOUTME: Maps the envelope type onto a typed MatchEvent or MessageEvent

package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Decode errors
var (
	ErrUnknownKind = errors.New("unknown event kind")
	ErrMissingID   = errors.New("event id is required")
)

// Envelope is the wire form of an event on a subscription stream.
type Envelope struct {
	Type      Kind            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"ts,omitempty"`
}

// Decode parses a single envelope into a typed Event.
// Unknown kinds return ErrUnknownKind so callers can skip them.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	var ev Event
	switch env.Type {
	case KindMatch:
		var m MatchEvent
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("decoding match payload: %w", err)
		}
		if m.CreatedAt == 0 {
			m.CreatedAt = env.Timestamp
		}
		ev = m
	case KindMessage:
		var m MessageEvent
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("decoding message payload: %w", err)
		}
		if m.CreatedAt == 0 {
			m.CreatedAt = env.Timestamp
		}
		ev = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}

	if ev.EventID() == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingID, env.Type)
	}
	return ev, nil
}

// Encode wraps ev in an Envelope and marshals it.
func Encode(ev Event) ([]byte, error) {
	ev = Normalize(ev)
	if ev == nil {
		return nil, errors.New("encoding nil event")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return json.Marshal(Envelope{
		Type:      ev.Kind(),
		Payload:   payload,
		Timestamp: ev.Time().UnixMilli(),
	})
}
