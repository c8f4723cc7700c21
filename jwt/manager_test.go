package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newHSManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{AccessTTL: 15 * time.Minute, SigningMethod: MethodHS256, PrivateKey: testSecret, Issuer: "kinvex"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestCreateAndParseAccess(t *testing.T) {
	m := newHSManager(t)
	token, exp, err := m.CreateAccess(7, "admin", "ADMIN")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if time.Until(exp) <= 14*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UID != 7 || claims.Username != "admin" || claims.Role != "ADMIN" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseAccessRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := AccessClaims{Username: "u", RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseAccessEd25519IssuerAndAudience(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "kinvex",
		Audience:      "web",
		KeyID:         "k1",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, _, err := m.CreateAccess(1, "manager", "MANAGER")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := m.ParseAccess(token); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	other, _ := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub, Issuer: "kinvex", Audience: "mobile", KeyID: "k1"})
	if _, err := other.ParseAccess(token); err == nil {
		t.Fatal("expected wrong audience to fail")
	}
	rotated, _ := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub, Issuer: "kinvex", Audience: "web", KeyID: "k2"})
	if _, err := rotated.ParseAccess(token); err == nil {
		t.Fatal("expected unknown kid to fail")
	}
}

func TestCreateAccessUniqueAtSameInstant(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newHSManager(t).WithClock(func() time.Time { return base })

	first, _, err := m.CreateAccess(3, "viewer", "VIEWER")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	second, _, err := m.CreateAccess(3, "viewer", "VIEWER")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct tokens for the same principal and instant")
	}
	claims, err := m.ParseAccess(first)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("expected jti claim")
	}
}

func TestParseAccessHonoursClockAndLeeway(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: testSecret, Leeway: 30 * time.Second})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	issuer := m.WithClock(func() time.Time { return base })
	token, _, _ := issuer.CreateAccess(1, "u", "VIEWER")

	within := m.WithClock(func() time.Time { return base.Add(80 * time.Second) })
	if _, err := within.ParseAccess(token); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}
	after := m.WithClock(func() time.Time { return base.Add(2 * time.Minute) })
	if _, err := after.ParseAccess(token); !errors.Is(err, gjwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestNewManagerRejectsWeakConfig(t *testing.T) {
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("short")}); err == nil {
		t.Fatal("expected short hs256 key to be rejected")
	}
	if _, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret}); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: "rs256", PrivateKey: testSecret}); err == nil {
		t.Fatal("expected unsupported method to be rejected")
	}
}
