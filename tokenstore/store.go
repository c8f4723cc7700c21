package tokenstore

import (
	"context"
	"errors"
)

var (
	// ErrStoreClosed is returned by backends used after Close.
	ErrStoreClosed = errors.New("token store closed")
	// ErrSealed is returned when a sealed file cannot be opened with the configured passphrase.
	ErrSealed = errors.New("token store sealed: wrong passphrase or tampered data")
)

// Keys names the three persisted slots.
type Keys struct {
	Access  string
	Refresh string
	User    string
}

// DefaultKeys returns the slot names used by the Kinvex web client.
func DefaultKeys() Keys {
	return Keys{
		Access:  "authToken",
		Refresh: "refreshToken",
		User:    "currentUser",
	}
}

func (k Keys) withDefaults() Keys {
	d := DefaultKeys()
	if k.Access == "" {
		k.Access = d.Access
	}
	if k.Refresh == "" {
		k.Refresh = d.Refresh
	}
	if k.User == "" {
		k.User = d.User
	}
	return k
}

// Validate reports whether the slot names are usable and distinct.
func (k Keys) Validate() error {
	if k.Access == "" || k.Refresh == "" || k.User == "" {
		return errors.New("token store keys must not be empty")
	}
	if k.Access == k.Refresh || k.Access == k.User || k.Refresh == k.User {
		return errors.New("token store keys must be distinct")
	}
	return nil
}

// Pair is the persisted credential pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether neither token is set.
func (p Pair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Complete reports whether both tokens are set.
func (p Pair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// Store is the contract every backend implements.
//
// Load reports ok=false when no token is stored. A pair that is present but not
// Complete is returned as-is with ok=true so callers can treat it as malformed.
type Store interface {
	Save(ctx context.Context, pair Pair) error
	Load(ctx context.Context) (Pair, bool, error)
	Clear(ctx context.Context) error
	SaveUser(ctx context.Context, user []byte) error
	LoadUser(ctx context.Context) ([]byte, bool, error)
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
