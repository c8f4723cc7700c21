package kinvex

import (
	"context"
	"errors"
	"sync"
)

// NotificationKind identifies what a Notification is about.
type NotificationKind string

const (
	// NoteLoginSucceeded welcomes the user after login.
	NoteLoginSucceeded NotificationKind = "login_succeeded"
	// NoteLoginFailed reports a rejected login.
	NoteLoginFailed NotificationKind = "login_failed"
	// NoteLoggedOut confirms a logout.
	NoteLoggedOut NotificationKind = "logged_out"
	// NoteSessionExpired reports that the session ended and sign-in is needed.
	NoteSessionExpired NotificationKind = "session_expired"
	// NoteForbidden reports a permission denial.
	NoteForbidden NotificationKind = "forbidden"
	// NoteNotFound reports a missing resource.
	NoteNotFound NotificationKind = "not_found"
	// NoteServerError reports a 5xx answer.
	NoteServerError NotificationKind = "server_error"
	// NoteTimeout reports a request that ran out of time.
	NoteTimeout NotificationKind = "timeout"
	// NoteNetworkError reports an unreachable API.
	NoteNetworkError NotificationKind = "network_error"
	// NoteSessionExpiring warns that the access token expires soon.
	NoteSessionExpiring NotificationKind = "session_expiring"
	// NoteSessionExpiringCleared withdraws an expiring warning after a refresh.
	NoteSessionExpiringCleared NotificationKind = "session_expiring_cleared"
)

// Level is the severity a UI would render a notification with.
type Level string

const (
	// LevelSuccess marks a completed action.
	LevelSuccess Level = "success"
	// LevelInfo marks neutral information.
	LevelInfo Level = "info"
	// LevelWarning marks something the user should act on soon.
	LevelWarning Level = "warning"
	// LevelError marks a failure.
	LevelError Level = "error"
)

// Notification is a user-facing message. Each logical failure produces exactly one.
type Notification struct {
	Kind    NotificationKind
	Level   Level
	Message string
	// MinutesLeft is set on NoteSessionExpiring.
	MinutesLeft int
	// Err is the failure behind error notifications.
	Err error
}

// Notifier presents notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// NoOpNotifier drops every notification.
type NoOpNotifier struct{}

// Notify does nothing.
func (NoOpNotifier) Notify(context.Context, Notification) {}

// RecordingNotifier keeps every notification in memory.
type RecordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

// Notify appends n.
func (r *RecordingNotifier) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

// All returns a copy of the recorded notifications.
func (r *RecordingNotifier) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

// Count returns how many notifications of kind were recorded.
func (r *RecordingNotifier) Count(kind NotificationKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, note := range r.notes {
		if note.Kind == kind {
			n++
		}
	}
	return n
}

// Navigator performs the redirect side effects of the session lifecycle.
type Navigator interface {
	RedirectToLogin(ctx context.Context, path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, path string)

// RedirectToLogin calls f.
func (f NavigatorFunc) RedirectToLogin(ctx context.Context, path string) { f(ctx, path) }

// NoOpNavigator ignores redirects.
type NoOpNavigator struct{}

// RedirectToLogin does nothing.
func (NoOpNavigator) RedirectToLogin(context.Context, string) {}

func errorNotification(err error) (Notification, bool) {
	n := Notification{Level: LevelError, Message: Reason(err), Err: err}
	switch {
	case errors.Is(err, ErrSessionExpired):
		n.Kind = NoteSessionExpired
	case errors.Is(err, ErrForbidden):
		n.Kind = NoteForbidden
	case errors.Is(err, ErrNotFound):
		n.Kind = NoteNotFound
	case errors.Is(err, ErrServer):
		n.Kind = NoteServerError
	case errors.Is(err, ErrTimeout):
		n.Kind = NoteTimeout
	case errors.Is(err, ErrNetwork):
		n.Kind = NoteNetworkError
	default:
		return Notification{}, false
	}
	return n, true
}
