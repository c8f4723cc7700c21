package password

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	h, err := New(FastConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	encoded, err := h.Hash("admin123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", encoded)
	}

	ok, err := h.Verify("admin123", encoded)
	if err != nil || !ok {
		t.Fatalf("Verify(correct) = %v, %v", ok, err)
	}
	ok, err = h.Verify("wrong", encoded)
	if err != nil || ok {
		t.Fatalf("Verify(wrong) = %v, %v", ok, err)
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h, _ := New(FastConfig())
	a, _ := h.Hash("viewer123")
	b, _ := h.Hash("viewer123")
	if a == b {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	h, _ := New(FastConfig())
	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestNeedsRehash(t *testing.T) {
	weak, _ := New(FastConfig())
	encoded, err := weak.Hash("manager123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	strong, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New(default): %v", err)
	}
	if need, err := strong.NeedsRehash(encoded); err != nil || !need {
		t.Fatalf("NeedsRehash(weak hash) = %v, %v", need, err)
	}
	if need, err := weak.NeedsRehash(encoded); err != nil || need {
		t.Fatalf("NeedsRehash(same params) = %v, %v", need, err)
	}
}

func TestNewRejectsWeakConfig(t *testing.T) {
	cases := map[string]Config{
		"memory":      {Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16},
		"time":        {Memory: 8192, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 16},
		"parallelism": {Memory: 8192, Time: 1, Parallelism: 0, SaltLength: 16, KeyLength: 16},
		"salt":        {Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16},
		"key":         {Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := New(cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	h, _ := New(FastConfig())
	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
	} {
		if _, err := h.Verify("x", encoded); !errors.Is(err, ErrInvalidHash) {
			t.Errorf("Verify(%q): expected ErrInvalidHash, got %v", encoded, err)
		}
	}
}
