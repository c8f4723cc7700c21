package permission

// View is the part of session state a route guard consults.
type View struct {
	Loading       bool
	Authenticated bool
	Role          Role
}

// Decision is the outcome of guarding a route.
type Decision int

const (
	// Wait means the session is still being resolved; render a placeholder.
	Wait Decision = iota
	// RedirectLogin means there is no session.
	RedirectLogin
	// RedirectUnauthorized means the session lacks the required role.
	RedirectUnauthorized
	// Allow means the route may render.
	Allow
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case RedirectLogin:
		return "redirect_login"
	case RedirectUnauthorized:
		return "redirect_unauthorized"
	case Allow:
		return "allow"
	default:
		return "unknown"
	}
}

// Decide applies the protected-route rule. Role checks are only trusted once
// loading is over. An empty required role admits any authenticated user. An
// authenticated view carrying an undefined role is refused rather than ranked.
func Decide(v View, required Role) Decision {
	if v.Loading {
		return Wait
	}
	if !v.Authenticated {
		return RedirectLogin
	}
	if required == "" {
		return Allow
	}
	if !v.Role.Valid() {
		return RedirectUnauthorized
	}
	if !Allows(v.Role, required) {
		return RedirectUnauthorized
	}
	return Allow
}
