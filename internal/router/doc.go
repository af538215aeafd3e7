// Package router decides how incoming real-time events reach the user.
//
// # Overview
//
// The Router consumes MatchEvent and MessageEvent values from independent
// subscriptions and turns each into at most one Notice for the UI:
//
//	r := router.New(presenter, muteChecker, logger)
//	r.Init(app.IsForeground, app.ShowMatches)
//	r.HandleIncoming(ctx, ev)
//
// # Routing Rules
//
//  1. Before Init registers a foreground query, events are dropped.
//  2. An event seen again within its kind's cooldown (match 5s, message 3s)
//     is dropped. The window runs from the last accepted sighting.
//  3. Match, creator: always a dialog, regardless of foreground state.
//  4. Match, notified party: toast when foreground, nothing when backgrounded
//     (server-side push covers that case).
//  5. Message: muted senders are dropped; otherwise toast when foreground,
//     nothing when backgrounded.
//
// # Failure Handling
//
// HandleIncoming never returns an error. Mute lookups are bounded by a
// timeout and fail open. Presenter panics are recovered and logged. A missed
// notification is acceptable because the match or message is already stored
// server-side and shows up on the next refresh.
//
// # Concurrency
//
// HandleIncoming is safe to call from multiple goroutines. The dedup mark is
// taken before the mute lookup, so concurrent duplicates cannot both pass.
package router
