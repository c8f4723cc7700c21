package tokenstore

import (
	"context"
	"sync"
)

// MemoryStore keeps the slots in process memory. The zero value is not usable; call
// [NewMemoryStore].
type MemoryStore struct {
	mu    sync.RWMutex
	keys  Keys
	slots map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(keys Keys) *MemoryStore {
	return &MemoryStore{
		keys:  keys.withDefaults(),
		slots: make(map[string][]byte, 3),
	}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, pair Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(s.keys.Access, pair.AccessToken)
	s.put(s.keys.Refresh, pair.RefreshToken)
	return nil
}

func (s *MemoryStore) put(key, value string) {
	if value == "" {
		delete(s.slots, key)
		return
	}
	s.slots[key] = []byte(value)
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (Pair, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pair := Pair{
		AccessToken:  string(s.slots[s.keys.Access]),
		RefreshToken: string(s.slots[s.keys.Refresh]),
	}
	return pair, !pair.Empty(), nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, s.keys.Access)
	delete(s.slots, s.keys.Refresh)
	delete(s.slots, s.keys.User)
	return nil
}

// SaveUser implements Store.
func (s *MemoryStore) SaveUser(_ context.Context, user []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(user) == 0 {
		delete(s.slots, s.keys.User)
		return nil
	}
	s.slots[s.keys.User] = cloneBytes(user)
	return nil
}

// LoadUser implements Store.
func (s *MemoryStore) LoadUser(_ context.Context) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.slots[s.keys.User]
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(raw), true, nil
}

// Set writes a single raw slot. It exists so tests and migrations can simulate a
// partially populated or externally modified medium.
func (s *MemoryStore) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == nil {
		delete(s.slots, key)
		return
	}
	s.slots[key] = cloneBytes(value)
}

// Len returns how many slots are populated.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}
