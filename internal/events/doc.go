// Package events defines the domain events consumed by the client.
//
// # Overview
//
// Two independent real-time subscriptions (matches and messages) push
// events to the client. Each event is one variant of a closed sum type:
//
//   - MatchEvent: a match involving the local user was created
//   - MessageEvent: a chat message was sent to the local user
//
// The pair (Kind, ID) is unique and serves as the dedup key (see Key).
// CreatedAt is an epoch-millisecond timestamp used for display ordering.
//
// # Dispatch
//
// Consumers implement Handler[T] and call Dispatch. Handler has one method
// per kind, so a new kind cannot be silently ignored by existing handlers:
//
//	decision := events.Dispatch(ev, myHandler)
//
// # Wire Format
//
// Subscriptions deliver JSON envelopes:
//
//	{"type": "message", "ts": 1718000000000, "payload": {"id": "m1", ...}}
//
// Decode returns ErrUnknownKind for types this client does not know,
// which callers treat as a no-op.
package events
