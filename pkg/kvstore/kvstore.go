// Package kvstore implements the in-memory typed property bag described in
// spec.md section 4.1 (KeyValueStore): a bag of bool/int32/uint32/string/
// string-map/string-list values keyed by name, where a key holds at most one
// typed slot at a time.
//
// The shape follows the teacher's pkg/persistence.DeviceState: a plain Go
// struct of typed maps that round-trips deterministically, rather than a
// single map[string]any that would blur the type boundary the spec requires.
package kvstore

import "encoding/json"

// Store is an in-memory typed property bag. The zero value is ready to use.
type Store struct {
	bools       map[string]bool
	ints        map[string]int32
	uints       map[string]uint32
	strings     map[string]string
	stringMaps  map[string]map[string]string
	stringLists map[string][]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// --- bool ---

func (s *Store) ContainsBool(key string) bool {
	_, ok := s.bools[key]
	return ok
}

func (s *Store) GetBool(key string) bool {
	return s.bools[key]
}

func (s *Store) LookupBool(key string, def bool) bool {
	if v, ok := s.bools[key]; ok {
		return v
	}
	return def
}

func (s *Store) SetBool(key string, value bool) {
	if s.bools == nil {
		s.bools = make(map[string]bool)
	}
	s.removeOtherTypes(key, boolKind)
	s.bools[key] = value
}

// --- int32 ---

func (s *Store) ContainsInt(key string) bool {
	_, ok := s.ints[key]
	return ok
}

func (s *Store) GetInt(key string) int32 {
	return s.ints[key]
}

func (s *Store) LookupInt(key string, def int32) int32 {
	if v, ok := s.ints[key]; ok {
		return v
	}
	return def
}

func (s *Store) SetInt(key string, value int32) {
	if s.ints == nil {
		s.ints = make(map[string]int32)
	}
	s.removeOtherTypes(key, intKind)
	s.ints[key] = value
}

// --- uint32 ---

func (s *Store) ContainsUint(key string) bool {
	_, ok := s.uints[key]
	return ok
}

func (s *Store) GetUint(key string) uint32 {
	return s.uints[key]
}

func (s *Store) LookupUint(key string, def uint32) uint32 {
	if v, ok := s.uints[key]; ok {
		return v
	}
	return def
}

func (s *Store) SetUint(key string, value uint32) {
	if s.uints == nil {
		s.uints = make(map[string]uint32)
	}
	s.removeOtherTypes(key, uintKind)
	s.uints[key] = value
}

// --- string ---

func (s *Store) ContainsString(key string) bool {
	_, ok := s.strings[key]
	return ok
}

func (s *Store) GetString(key string) string {
	return s.strings[key]
}

func (s *Store) LookupString(key string, def string) string {
	if v, ok := s.strings[key]; ok {
		return v
	}
	return def
}

func (s *Store) SetString(key string, value string) {
	if s.strings == nil {
		s.strings = make(map[string]string)
	}
	s.removeOtherTypes(key, stringKind)
	s.strings[key] = value
}

// --- string map ---

func (s *Store) ContainsStringMap(key string) bool {
	_, ok := s.stringMaps[key]
	return ok
}

func (s *Store) GetStringMap(key string) map[string]string {
	return s.stringMaps[key]
}

func (s *Store) LookupStringMap(key string, def map[string]string) map[string]string {
	if v, ok := s.stringMaps[key]; ok {
		return v
	}
	return def
}

func (s *Store) SetStringMap(key string, value map[string]string) {
	if s.stringMaps == nil {
		s.stringMaps = make(map[string]map[string]string)
	}
	s.removeOtherTypes(key, stringMapKind)
	cp := make(map[string]string, len(value))
	for k, v := range value {
		cp[k] = v
	}
	s.stringMaps[key] = cp
}

// --- string list ---

func (s *Store) ContainsStringList(key string) bool {
	_, ok := s.stringLists[key]
	return ok
}

func (s *Store) GetStringList(key string) []string {
	return s.stringLists[key]
}

func (s *Store) LookupStringList(key string, def []string) []string {
	if v, ok := s.stringLists[key]; ok {
		return v
	}
	return def
}

func (s *Store) SetStringList(key string, value []string) {
	if s.stringLists == nil {
		s.stringLists = make(map[string][]string)
	}
	s.removeOtherTypes(key, stringListKind)
	cp := make([]string, len(value))
	copy(cp, value)
	s.stringLists[key] = cp
}

// --- generic ---

type kind int

const (
	boolKind kind = iota
	intKind
	uintKind
	stringKind
	stringMapKind
	stringListKind
)

// removeOtherTypes enforces "different-typed entries under the same key
// count as different": setting a key under one type clears any prior value
// stored for that key under a different type, so a key resolves to exactly
// one type at a time.
func (s *Store) removeOtherTypes(key string, keep kind) {
	if keep != boolKind {
		delete(s.bools, key)
	}
	if keep != intKind {
		delete(s.ints, key)
	}
	if keep != uintKind {
		delete(s.uints, key)
	}
	if keep != stringKind {
		delete(s.strings, key)
	}
	if keep != stringMapKind {
		delete(s.stringMaps, key)
	}
	if keep != stringListKind {
		delete(s.stringLists, key)
	}
}

// Contains reports whether key is present under any type.
func (s *Store) Contains(key string) bool {
	return s.ContainsBool(key) || s.ContainsInt(key) || s.ContainsUint(key) ||
		s.ContainsString(key) || s.ContainsStringMap(key) || s.ContainsStringList(key)
}

// Remove deletes key from whichever type map holds it. Removing an absent
// key is a no-op.
func (s *Store) Remove(key string) {
	delete(s.bools, key)
	delete(s.ints, key)
	delete(s.uints, key)
	delete(s.strings, key)
	delete(s.stringMaps, key)
	delete(s.stringLists, key)
}

// Clear empties the store.
func (s *Store) Clear() {
	s.bools = nil
	s.ints = nil
	s.uints = nil
	s.strings = nil
	s.stringMaps = nil
	s.stringLists = nil
}

// IsEmpty reports whether the store holds no keys of any type.
func (s *Store) IsEmpty() bool {
	return len(s.bools) == 0 && len(s.ints) == 0 && len(s.uints) == 0 &&
		len(s.strings) == 0 && len(s.stringMaps) == 0 && len(s.stringLists) == 0
}

// Equals reports deep, type-aware equality: both stores must hold exactly
// the same keys with the same typed values in the same slots.
func (s *Store) Equals(other *Store) bool {
	if other == nil {
		return s.IsEmpty()
	}
	if len(s.bools) != len(other.bools) || len(s.ints) != len(other.ints) ||
		len(s.uints) != len(other.uints) || len(s.strings) != len(other.strings) ||
		len(s.stringMaps) != len(other.stringMaps) || len(s.stringLists) != len(other.stringLists) {
		return false
	}
	for k, v := range s.bools {
		if ov, ok := other.bools[k]; !ok || ov != v {
			return false
		}
	}
	for k, v := range s.ints {
		if ov, ok := other.ints[k]; !ok || ov != v {
			return false
		}
	}
	for k, v := range s.uints {
		if ov, ok := other.uints[k]; !ok || ov != v {
			return false
		}
	}
	for k, v := range s.strings {
		if ov, ok := other.strings[k]; !ok || ov != v {
			return false
		}
	}
	for k, v := range s.stringMaps {
		ov, ok := other.stringMaps[k]
		if !ok || len(ov) != len(v) {
			return false
		}
		for mk, mv := range v {
			if omv, ok := ov[mk]; !ok || omv != mv {
				return false
			}
		}
	}
	for k, v := range s.stringLists {
		ov, ok := other.stringLists[k]
		if !ok || len(ov) != len(v) {
			return false
		}
		for i := range v {
			if ov[i] != v[i] {
				return false
			}
		}
	}
	return true
}

// CopyFrom replaces the receiver's contents with a deep copy of other.
func (s *Store) CopyFrom(other *Store) {
	s.Clear()
	if other == nil {
		return
	}
	for k, v := range other.bools {
		s.SetBool(k, v)
	}
	for k, v := range other.ints {
		s.SetInt(k, v)
	}
	for k, v := range other.uints {
		s.SetUint(k, v)
	}
	for k, v := range other.strings {
		s.SetString(k, v)
	}
	for k, v := range other.stringMaps {
		s.SetStringMap(k, v)
	}
	for k, v := range other.stringLists {
		s.SetStringList(k, v)
	}
}

// dto is the on-disk shape of a Store, used by the persistent group store in
// pkg/store to serialize one group's contents to JSON.
type dto struct {
	Bools       map[string]bool              `json:"bools,omitempty"`
	Ints        map[string]int32             `json:"ints,omitempty"`
	Uints       map[string]uint32            `json:"uints,omitempty"`
	Strings     map[string]string            `json:"strings,omitempty"`
	StringMaps  map[string]map[string]string `json:"string_maps,omitempty"`
	StringLists map[string][]string          `json:"string_lists,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(dto{
		Bools:       s.bools,
		Ints:        s.ints,
		Uints:       s.uints,
		Strings:     s.strings,
		StringMaps:  s.stringMaps,
		StringLists: s.stringLists,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Store) UnmarshalJSON(data []byte) error {
	var d dto
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	s.bools = d.Bools
	s.ints = d.Ints
	s.uints = d.Uints
	s.strings = d.Strings
	s.stringMaps = d.StringMaps
	s.stringLists = d.StringLists
	return nil
}
