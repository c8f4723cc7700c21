package kinvex

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Audit event types emitted by the client.
const (
	// AuditLoginSuccess records a successful login.
	AuditLoginSuccess = "login_success"
	// AuditLoginFailure records a rejected or invalid login attempt.
	AuditLoginFailure = "login_failure"
	// AuditLogout records an explicit logout.
	AuditLogout = "logout"
	// AuditRefreshSuccess records a committed credential refresh.
	AuditRefreshSuccess = "refresh_success"
	// AuditRefreshFailure records a refresh that failed or was superseded.
	AuditRefreshFailure = "refresh_failure"
	// AuditSessionInvalidated records a session ended by a 401 or a rejected refresh.
	AuditSessionInvalidated = "session_invalidated"
	// AuditSessionRestored records a session resumed from the token store at start-up.
	AuditSessionRestored = "session_restored"
	// AuditWatchdogWarning records an expiring-session warning.
	AuditWatchdogWarning = "watchdog_warning"
	// AuditWatchdogExpired records a watchdog logout of an expired session.
	AuditWatchdogExpired = "watchdog_expired"
	// AuditWatchdogDecodeFailure records a watchdog cycle skipped on an unreadable token.
	AuditWatchdogDecodeFailure = "watchdog_decode_failure"
)

// AuditEvent is one auth lifecycle event as delivered to an AuditSink.
type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Username  string            `json:"username,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives audit events. Emit must not block for long.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

// Emit does nothing.
func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink delivers events on a buffered channel, mostly for tests.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink returns a sink buffering up to buffer events.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

// Emit queues event, dropping it when the buffer is full or ctx is done.
func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events returns the channel events are delivered on.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink returns a sink writing one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit writes event as a JSON line.
func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}

func (c *Client) audit(ctx context.Context, eventType string, user *User, err error, metadata map[string]string) {
	if c.auditor == nil {
		return
	}
	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: c.now(),
		EventType: eventType,
		Success:   err == nil,
		Metadata:  metadata,
	}
	if user != nil {
		event.UserID = strconv.FormatInt(user.ID, 10)
		event.Username = user.Username
	}
	if id, ok := ctx.Value(requestIDContextKey{}).(string); ok {
		event.RequestID = id
	}
	if err != nil {
		event.Error = err.Error()
	}
	c.auditor.Emit(ctx, event)
}
