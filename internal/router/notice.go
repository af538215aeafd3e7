// ABOUTME: Notice values handed from the router to the UI layer
// ABOUTME: Presenter is the single seam through which decided actions are rendered

package router

import "github.com/2389/mingle-client/internal/events"

// Style selects how a notice is rendered.
type Style string

const (
	// StyleDialog is a blocking confirmation ("view matches" or "continue").
	StyleDialog Style = "dialog"
	// StyleToast is a transient, dismissible notification.
	StyleToast Style = "toast"
)

// Notice is a decided, user-visible action.
type Notice struct {
	Style   Style
	Kind    events.Kind
	EventID string
	PeerID  string // other party / sender session, if known
	ChatID  string // conversation to open, for messages
	Title   string
	Body    string

	// Navigate opens the matches view. Nil when the notice has no such action.
	Navigate func()
}

// Presenter renders notices. Implementations must not block for long;
// a dialog should be shown asynchronously and resolved by the UI.
type Presenter interface {
	Present(Notice)
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(Notice)

// Present calls f.
func (f PresenterFunc) Present(n Notice) { f(n) }
