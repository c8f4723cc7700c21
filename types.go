package kinvex

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/kinvex/permission"
)

// User is the authenticated principal returned by the auth endpoints. A User is
// replaced wholesale on login and refresh and never patched in place.
type User struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	Role      permission.Role `json:"role"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"createdAt,omitzero"`
	UpdatedAt time.Time       `json:"updatedAt,omitzero"`
}

// UnmarshalJSON rejects users without a username or with a role outside the
// hierarchy, so a decoded User is always safe to rank.
func (u *User) UnmarshalJSON(data []byte) error {
	type plainUser User
	var raw plainUser
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw.Username) == "" {
		return fmt.Errorf("user: missing username")
	}
	role, err := permission.ParseRole(string(raw.Role))
	if err != nil {
		return fmt.Errorf("user %q: %w", raw.Username, err)
	}
	raw.Role = role
	*u = User(raw)
	return nil
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is the body of a successful login or refresh.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (r *AuthResponse) validate() error {
	if r.AccessToken == "" || r.RefreshToken == "" {
		return fmt.Errorf("%w: auth response without token pair", ErrMalformedResponse)
	}
	if r.User == nil {
		return fmt.Errorf("%w: auth response without user", ErrMalformedResponse)
	}
	return nil
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest is the body of POST /auth/logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ErrorResponse is the error body the Kinvex API sends with non-2xx responses.
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// State is the lifecycle state of a Client session.
type State int

const (
	// StateUninitialized is the state before Initialize resolves.
	StateUninitialized State = iota
	// StateChecking means an auth operation is in flight.
	StateChecking
	// StateAuthenticated means a user is signed in.
	StateAuthenticated
	// StateAnonymous means nobody is signed in.
	StateAnonymous
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}
