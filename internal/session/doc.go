// Package session resolves the client's identity (user, event, session)
// from its JWT. The identity scopes the persisted cache snapshot.
package session
