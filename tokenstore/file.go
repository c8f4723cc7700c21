package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileOptions configures a [FileStore].
type FileOptions struct {
	Path string
	Keys Keys
	// Perm is the file mode for the session file. Defaults to 0600.
	Perm fs.FileMode
	// Seal, when non-nil, encrypts the document at rest.
	Seal *SealConfig
}

// FileStore keeps all three slots in one JSON document. Writes go to a temporary file
// in the same directory that is then renamed over the target, so a concurrent reader
// sees either the old document or the new one.
type FileStore struct {
	mu     sync.Mutex
	path   string
	keys   Keys
	perm   fs.FileMode
	sealer *sealer
}

// NewFileStore validates opts and returns a store rooted at opts.Path. The file is
// created lazily on first write.
func NewFileStore(opts FileOptions) (*FileStore, error) {
	if opts.Path == "" {
		return nil, errors.New("file store path required")
	}
	keys := opts.Keys.withDefaults()
	if err := keys.Validate(); err != nil {
		return nil, err
	}
	perm := opts.Perm
	if perm == 0 {
		perm = 0o600
	}

	s := &FileStore{
		path: opts.Path,
		keys: keys,
		perm: perm,
	}
	if opts.Seal != nil {
		sl, err := newSealer(*opts.Seal)
		if err != nil {
			return nil, err
		}
		s.sealer = sl
	}
	return s, nil
}

// Sealed reports whether the document is encrypted at rest.
func (s *FileStore) Sealed() bool {
	return s.sealer != nil
}

// Path returns the session file location.
func (s *FileStore) Path() string {
	return s.path
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, pair Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	setSlot(doc, s.keys.Access, pair.AccessToken)
	setSlot(doc, s.keys.Refresh, pair.RefreshToken)
	return s.write(doc)
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) (Pair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return Pair{}, false, err
	}
	pair := Pair{
		AccessToken:  doc[s.keys.Access],
		RefreshToken: doc[s.keys.Refresh],
	}
	return pair, !pair.Empty(), nil
}

// Clear implements Store.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session file: %w", err)
	}
	return nil
}

// SaveUser implements Store.
func (s *FileStore) SaveUser(_ context.Context, user []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	setSlot(doc, s.keys.User, string(user))
	return s.write(doc)
}

// LoadUser implements Store.
func (s *FileStore) LoadUser(_ context.Context) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, false, err
	}
	raw, ok := doc[s.keys.User]
	if !ok || raw == "" {
		return nil, false, nil
	}
	return []byte(raw), true, nil
}

func setSlot(doc map[string]string, key, value string) {
	if value == "" {
		delete(doc, key)
		return
	}
	doc[key] = value
}

func (s *FileStore) read() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	if s.sealer != nil {
		var env sealedEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, ErrSealed
		}
		raw, err = s.sealer.open(env)
		if err != nil {
			return nil, err
		}
	}

	doc := map[string]string{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	return doc, nil
}

func (s *FileStore) write(doc map[string]string) error {
	if len(doc) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove session file: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if s.sealer != nil {
		env, err := s.sealer.seal(data)
		if err != nil {
			return fmt.Errorf("seal session file: %w", err)
		}
		if data, err = json.Marshal(env); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".kinvex-session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tmp.Chmod(s.perm); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
