package kinvex

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned by Login when the server rejects the username or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned by Login when the account exists but is
	// deactivated, and wrapped by a refresh that returns a deactivated user.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrSessionExpired reports a 401 on an authenticated call or a rejected refresh.
	ErrSessionExpired = errors.New("session expired")
	// ErrForbidden reports a 403: the session is valid but lacks permission.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound reports a 404.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation reports a request the server (or the client, before sending) refused as invalid.
	ErrValidation = errors.New("validation failed")
	// ErrServer reports a 5xx response.
	ErrServer = errors.New("server error")
	// ErrNetwork reports that no response was received.
	ErrNetwork = errors.New("network unreachable")
	// ErrTimeout reports that the request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrMalformedResponse reports a 2xx body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrNoRefreshToken is returned by refresh when the store holds no refresh token.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRefreshSuperseded is returned when the credentials changed while a refresh was in flight.
	ErrRefreshSuperseded = errors.New("refresh superseded by a concurrent session change")
	// ErrClientClosed is returned by operations on a closed Client.
	ErrClientClosed = errors.New("client closed")
)

// APIError is the structured failure returned for every non-2xx response and for
// transport failures. It unwraps to exactly one taxonomy sentinel (ErrForbidden,
// ErrServer, ...) and, for transport failures, to the underlying cause.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Details   map[string]any
	RequestID string
	Method    string
	Path      string

	kind  error
	cause error
}

// Error formats the failed call and the server message.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.kind.Error()
	}
	switch {
	case e.Status > 0:
		return fmt.Sprintf("kinvex: %s %s: %d %s: %s", e.Method, e.Path, e.Status, http.StatusText(e.Status), msg)
	case e.cause != nil:
		return fmt.Sprintf("kinvex: %s %s: %s: %v", e.Method, e.Path, e.kind, e.cause)
	default:
		return fmt.Sprintf("kinvex: %s %s: %s", e.Method, e.Path, msg)
	}
}

// Unwrap exposes the error kind and the transport cause to errors.Is.
func (e *APIError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// Kind returns the taxonomy sentinel of e.
func (e *APIError) Kind() error {
	return e.kind
}

// IsTransient reports whether err is a retryable infrastructure failure:
// network, timeout or 5xx. Transient failures never clear stored credentials.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrServer)
}

// IsSessionInvalid reports whether err ended the session.
func IsSessionInvalid(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

func kindForStatus(status int, login bool) error {
	switch {
	case status == http.StatusUnauthorized && login:
		return ErrInvalidCredentials
	case status == http.StatusForbidden && login:
		return ErrAccountDisabled
	case status == http.StatusUnauthorized:
		return ErrSessionExpired
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status >= 500:
		return ErrServer
	default:
		return ErrValidation
	}
}

// Reason returns the user-facing text for err, the same text carried by the
// notification emitted for it.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid credentials. Check your username and password."
	case errors.Is(err, ErrAccountDisabled):
		return "Your account is disabled. Contact the administrator."
	case errors.Is(err, ErrSessionExpired):
		return "Session expired. Please sign in again."
	case errors.Is(err, ErrForbidden):
		return "You do not have permission to perform this action."
	case errors.Is(err, ErrNotFound):
		return "Resource not found."
	case errors.Is(err, ErrServer):
		return "Internal server error. Try again later."
	case errors.Is(err, ErrTimeout):
		return "The request took too long. Check your connection."
	case errors.Is(err, ErrNetwork):
		return "Connection error. Check that the server is reachable."
	case errors.Is(err, ErrValidation):
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return "The request was rejected as invalid."
	default:
		return "Something went wrong. Try again."
	}
}
