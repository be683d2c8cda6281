// Package store implements the persistent, group-keyed StoreInterface of
// spec.md section 4.1: group -> key -> typed value, backed by a JSON file on
// disk, in the idiom of the teacher's pkg/persistence.DeviceStateStore
// (single JSON file, mutex-guarded, MkdirAll + atomic-ish rewrite on Save).
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/shillgo/shillgo/pkg/cryptstring"
	"github.com/shillgo/shillgo/pkg/kvstore"
)

// Store is a file-backed, group-keyed persistent property store.
type Store struct {
	mu     sync.Mutex
	path   string
	groups map[string]*kvstore.Store
	sealer *cryptstring.Sealer
}

// Open opens (or prepares to create) the store file at path. The file is not
// read until Load is called, matching StoreInterface's explicit load/flush
// boundary.
func Open(path string) *Store {
	return &Store{
		path:   path,
		groups: make(map[string]*kvstore.Store),
	}
}

// SetSealer installs the crypted-string sealer used by
// GetCryptedString/SetCryptedString. Without a sealer, SetCryptedString
// fails and GetCryptedString reports the value as absent.
func (s *Store) SetSealer(sealer *cryptstring.Sealer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealer = sealer
}

// Load reads the store from disk. A missing file is treated as an empty
// store, matching "reopening preserves entries" without requiring the file
// to pre-exist.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.groups = make(map[string]*kvstore.Store)
			return nil
		}
		return err
	}

	var raw map[string]*kvstore.Store
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		raw = make(map[string]*kvstore.Store)
	}
	s.groups = raw
	return nil
}

// Flush is the durability boundary: it writes the store to disk. Callers
// SHOULD call Flush after a coherent group of writes (spec.md section 4.1).
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(s.groups, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// ContainsGroup reports whether group exists (even if empty).
func (s *Store) ContainsGroup(group string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.groups[group]
	return ok
}

// GetGroups returns all group names.
func (s *Store) GetGroups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.groups))
	for name := range s.groups {
		names = append(names, name)
	}
	return names
}

// DeleteGroup removes an entire group.
func (s *Store) DeleteGroup(group string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups, group)
}

// DeleteKey removes a single key from a group. Deleting an absent key or
// group is a no-op.
func (s *Store) DeleteKey(group, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[group]; ok {
		g.Remove(key)
	}
}

func (s *Store) group(name string) *kvstore.Store {
	g, ok := s.groups[name]
	if !ok {
		g = kvstore.New()
		s.groups[name] = g
	}
	return g
}

// --- typed accessors ---

func (s *Store) GetBool(group, key string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[group]
	if !ok || !g.ContainsBool(key) {
		return false, false
	}
	return g.GetBool(key), true
}

func (s *Store) SetBool(group, key string, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.group(group).SetBool(key, value)
}

func (s *Store) GetInt(group, key string) (int32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[group]
	if !ok || !g.ContainsInt(key) {
		return 0, false
	}
	return g.GetInt(key), true
}

func (s *Store) SetInt(group, key string, value int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.group(group).SetInt(key, value)
}

func (s *Store) GetString(group, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[group]
	if !ok || !g.ContainsString(key) {
		return "", false
	}
	return g.GetString(key), true
}

func (s *Store) SetString(group, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.group(group).SetString(key, value)
}

func (s *Store) GetStringList(group, key string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[group]
	if !ok || !g.ContainsStringList(key) {
		return nil, false
	}
	return g.GetStringList(key), true
}

func (s *Store) SetStringList(group, key string, value []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.group(group).SetStringList(key, value)
}

// GetCryptedString returns the decrypted value of a crypted-string field.
// Requires a sealer to have been installed via SetSealer.
func (s *Store) GetCryptedString(group, key string) (string, bool) {
	s.mu.Lock()
	sealed, ok := func() (string, bool) {
		g, ok := s.groups[group]
		if !ok || !g.ContainsString(key) {
			return "", false
		}
		return g.GetString(key), true
	}()
	sealer := s.sealer
	s.mu.Unlock()

	if !ok {
		return "", false
	}
	if sealer == nil {
		return "", false
	}
	plain, err := sealer.Open(sealed)
	if err != nil {
		return "", false
	}
	return plain, true
}

// SetCryptedString encrypts value and stores it under key. Requires a sealer
// to have been installed via SetSealer.
func (s *Store) SetCryptedString(group, key, value string) error {
	s.mu.Lock()
	sealer := s.sealer
	s.mu.Unlock()

	if sealer == nil {
		return errNoSealer
	}
	sealed, err := sealer.Seal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.group(group).SetString(key, sealed)
	return nil
}
