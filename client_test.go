package kinvex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/MrEthical07/kinvex/jwt"
	"github.com/MrEthical07/kinvex/permission"
)

func TestLoginValidCredentials(t *testing.T) {
	h := newHarness(t)

	user, err := h.client.Login(context.Background(), "admin", "admin123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user == nil || user.Role != permission.Admin || user.Username != "admin" {
		t.Fatalf("unexpected user %+v", user)
	}
	if h.client.State() != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", h.client.State())
	}
	if h.client.Loading() {
		t.Fatal("expected loading to be false after login")
	}

	pair, ok := h.pair()
	if !ok || !pair.Complete() {
		t.Fatalf("expected both tokens stored, got %+v", pair)
	}
	claims, err := jwt.Peek(pair.AccessToken)
	if err != nil || claims.Username != "admin" {
		t.Fatalf("stored access token not for admin: %+v, %v", claims, err)
	}
	raw, ok, _ := h.store.LoadUser(context.Background())
	if !ok {
		t.Fatal("expected cached user")
	}
	var cached User
	if err := json.Unmarshal(raw, &cached); err != nil || cached.Username != "admin" {
		t.Fatalf("unexpected cached user %s: %v", raw, err)
	}

	notes := h.notes.All()
	if len(notes) != 1 || notes[0].Kind != NoteLoginSucceeded || notes[0].Message != "Welcome, admin!" {
		t.Fatalf("unexpected notifications %+v", notes)
	}
	if got := h.client.Metrics().Value(MetricLoginSuccess); got != 1 {
		t.Fatalf("expected 1 login success, got %d", got)
	}
	h.requireConsistent()
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t)

	user, err := h.client.Login(context.Background(), "admin", "wrong")
	if user != nil {
		t.Fatalf("expected no user, got %+v", user)
	}
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if !strings.Contains(strings.ToLower(Reason(err)), "invalid credentials") {
		t.Fatalf("unexpected reason %q", Reason(err))
	}
	if h.client.State() != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", h.client.State())
	}
	h.requireCleared()

	notes := h.notes.All()
	if len(notes) != 1 || notes[0].Kind != NoteLoginFailed || notes[0].Message != Reason(err) {
		t.Fatalf("expected exactly one login failure notification, got %+v", notes)
	}
	if h.redirects.Count() != 0 {
		t.Fatal("a failed login must not redirect")
	}
	if h.client.Metrics().Value(MetricSessionInvalidated) != 0 {
		t.Fatal("a failed login must not count as a session invalidation")
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	h := newHarness(t)
	_, err := h.client.Login(context.Background(), "disabled", "disabled123")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
	if h.client.Authenticated() {
		t.Fatal("expected no session")
	}
	h.requireCleared()
}

func TestLoginRequiresUsernameAndPassword(t *testing.T) {
	h := newHarness(t)
	for _, tc := range []struct{ user, pass string }{
		{"", "admin123"},
		{"   ", "admin123"},
		{"admin", ""},
	} {
		if _, err := h.client.Login(context.Background(), tc.user, tc.pass); !errors.Is(err, ErrValidation) {
			t.Fatalf("Login(%q,%q): expected ErrValidation, got %v", tc.user, tc.pass, err)
		}
	}
	if h.api.LoginCalls() != 0 {
		t.Fatalf("expected no network calls, got %d", h.api.LoginCalls())
	}
	if got := h.notes.Count(NoteLoginFailed); got != 3 {
		t.Fatalf("expected one notification per failure, got %d", got)
	}
}

func TestLoginServerUnreachable(t *testing.T) {
	h := newHarness(t)
	h.srv.Close()

	_, err := h.client.Login(context.Background(), "admin", "admin123")
	if !errors.Is(err, ErrNetwork) || !IsTransient(err) {
		t.Fatalf("expected transient network error, got %v", err)
	}
	if got := len(h.notes.All()); got != 1 {
		t.Fatalf("expected exactly one notification, got %d", got)
	}
	if h.client.Loading() {
		t.Fatal("loading must clear after a failed login")
	}
}

func TestLoginReplacesPreviousSession(t *testing.T) {
	h := newHarness(t)
	h.login("viewer", "viewer123")
	first, _ := h.pair()

	h.login("manager", "manager123")
	second, _ := h.pair()
	if first.AccessToken == second.AccessToken || first.RefreshToken == second.RefreshToken {
		t.Fatal("expected a new credential pair")
	}
	if h.client.User().Role != permission.Manager {
		t.Fatalf("expected manager, got %s", h.client.User().Role)
	}
	h.requireConsistent()
}

func TestLogoutClearsEverything(t *testing.T) {
	h := newHarness(t)
	h.login("operator", "operator123")

	if err := h.client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if h.client.State() != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", h.client.State())
	}
	h.requireCleared()
	if h.api.LogoutCalls() != 1 || h.api.ActiveRefreshTokens() != 0 {
		t.Fatalf("server not informed: calls=%d active=%d", h.api.LogoutCalls(), h.api.ActiveRefreshTokens())
	}
	if got := h.notes.Count(NoteLoggedOut); got != 1 {
		t.Fatalf("expected one logout notification, got %d", got)
	}
	if h.redirects.Count() != 0 {
		t.Fatal("a user logout does not redirect through the navigator")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.login("viewer", "viewer123")
	if err := h.client.Logout(context.Background()); err != nil {
		t.Fatalf("first Logout: %v", err)
	}
	before := len(h.notes.All())

	for i := 0; i < 3; i++ {
		if err := h.client.Logout(context.Background()); err != nil {
			t.Fatalf("repeated Logout: %v", err)
		}
	}
	h.requireCleared()
	if got := len(h.notes.All()); got != before {
		t.Fatalf("repeated logout emitted notifications: %d -> %d", before, got)
	}
	if h.api.LogoutCalls() != 1 {
		t.Fatalf("repeated logout without a refresh token must not call the server, got %d calls", h.api.LogoutCalls())
	}
	if got := h.client.Metrics().Value(MetricLogout); got != 1 {
		t.Fatalf("expected 1 logout counted, got %d", got)
	}
}

func TestLogoutWhenServerUnreachable(t *testing.T) {
	h := newHarness(t)
	h.login("viewer", "viewer123")
	h.srv.Close()

	if err := h.client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	h.requireCleared()
	if h.client.Authenticated() {
		t.Fatal("expected local logout despite unreachable server")
	}
}

func TestHasRoleFollowsHierarchy(t *testing.T) {
	accounts := map[string]struct {
		password string
		role     permission.Role
	}{
		"viewer":   {"viewer123", permission.Viewer},
		"operator": {"operator123", permission.Operator},
		"manager":  {"manager123", permission.Manager},
		"admin":    {"admin123", permission.Admin},
	}
	for name, acct := range accounts {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.login(name, acct.password)
			for _, required := range permission.Roles() {
				want := acct.role.Rank() >= required.Rank()
				if got := h.client.HasRole(required); got != want {
					t.Errorf("HasRole(%s) = %v, want %v", required, got, want)
				}
			}
			if !h.client.HasRole(acct.role) {
				t.Errorf("HasRole(own role %s) must be true", acct.role)
			}
			if !h.client.HasRole(permission.Viewer) {
				t.Error("HasRole(VIEWER) must hold for any authenticated user")
			}
			if h.client.HasRole(permission.Admin) != (acct.role == permission.Admin) {
				t.Error("HasRole(ADMIN) must hold only for admins")
			}
		})
	}
}

func TestRoleChecksWithoutSession(t *testing.T) {
	h := newHarness(t)
	if h.client.HasRole(permission.Viewer) || h.client.HasAnyRole(permission.Viewer, permission.Admin) {
		t.Fatal("role checks must be false without a session")
	}
	if h.client.Can(permission.ManageProducts) {
		t.Fatal("capabilities must be false without a session")
	}
	if routes := h.client.Navigation(); len(routes) != 0 {
		t.Fatalf("expected no navigation, got %v", routes)
	}
}

func TestHasRolePanicsOnUndefinedRole(t *testing.T) {
	h := newHarness(t)
	h.login("admin", "admin123")
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for undefined role")
		}
	}()
	h.client.HasRole(permission.Role("SUPERUSER"))
}

func TestHasAnyRole(t *testing.T) {
	h := newHarness(t)
	h.login("operator", "operator123")
	if !h.client.HasAnyRole(permission.Admin, permission.Operator) {
		t.Fatal("operator satisfies OPERATOR")
	}
	if h.client.HasAnyRole(permission.Admin, permission.Manager) {
		t.Fatal("operator satisfies neither ADMIN nor MANAGER")
	}
	if h.client.HasAnyRole() {
		t.Fatal("no roles means no match")
	}
}

func TestCapabilitiesAndNavigation(t *testing.T) {
	h := newHarness(t)
	h.login("operator", "operator123")
	if !h.client.Can(permission.ManageProducts) || !h.client.Can(permission.ManageOrders) {
		t.Fatal("operator manages products and orders")
	}
	if h.client.Can(permission.ViewReports) || h.client.Can(permission.ManageUsers) {
		t.Fatal("operator cannot view reports or manage users")
	}
	if got := len(h.client.Navigation()); got != 3 {
		t.Fatalf("expected 3 visible routes for operator, got %d", got)
	}

	h.login("manager", "manager123")
	if got := len(h.client.Navigation()); got != 4 {
		t.Fatalf("expected 4 visible routes for manager, got %d", got)
	}
}

func TestViewDrivesRouteDecision(t *testing.T) {
	h := newHarness(t)
	if d := permission.Decide(h.client.View(), permission.Viewer); d != permission.Wait {
		t.Fatalf("before initialize: expected wait, got %s", d)
	}
	if err := h.client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if d := permission.Decide(h.client.View(), permission.Viewer); d != permission.RedirectLogin {
		t.Fatalf("anonymous: expected login redirect, got %s", d)
	}
	h.login("viewer", "viewer123")
	if d := permission.Decide(h.client.View(), permission.Manager); d != permission.RedirectUnauthorized {
		t.Fatalf("viewer on manager route: expected unauthorized, got %s", d)
	}
	if d := permission.Decide(h.client.View(), permission.Viewer); d != permission.Allow {
		t.Fatalf("viewer on viewer route: expected allow, got %s", d)
	}
}

func TestSessionInvariantAcrossLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	steps := []func(){
		func() { _ = h.client.Initialize(ctx) },
		func() { h.login("viewer", "viewer123") },
		func() { h.client.RefreshSession(ctx) },
		func() { _, _ = h.client.Login(ctx, "viewer", "nope") },
		func() { h.api.Fail("/inventory/products", http.StatusUnauthorized); _ = h.client.Gateway().Get(ctx, "/inventory/products", nil) },
		func() { h.login("admin", "admin123") },
		func() { _ = h.client.Logout(ctx) },
		func() { h.client.RefreshSession(ctx) },
	}
	for i, step := range steps {
		step()
		h.requireConsistent()
		if h.client.Loading() {
			t.Fatalf("step %d left loading=true", i)
		}
	}
}

func TestClosedClientRejectsOperations(t *testing.T) {
	h := newHarness(t)
	h.login("viewer", "viewer123")
	h.client.Close()
	h.client.Close()

	if _, err := h.client.Login(context.Background(), "admin", "admin123"); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("expected ErrClientClosed, got %v", err)
	}
	if _, err := h.client.Refresh(context.Background()); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("expected ErrClientClosed, got %v", err)
	}
	if pair, ok := h.pair(); !ok || !pair.Complete() {
		t.Fatal("Close must keep stored credentials")
	}
}

func TestAuditEventsForLoginAndLogout(t *testing.T) {
	h := newHarness(t)
	h.login("viewer", "viewer123")
	_ = h.client.Logout(context.Background())
	h.client.Close()

	var types []string
	for {
		select {
		case ev := <-h.audit.Events():
			types = append(types, ev.EventType)
			if ev.ID == "" || ev.Timestamp.IsZero() {
				t.Fatalf("incomplete audit event %+v", ev)
			}
			continue
		default:
		}
		break
	}
	want := []string{AuditLoginSuccess, AuditLogout}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("expected audit %v, got %v", want, types)
	}
}
