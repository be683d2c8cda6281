// Package iccidstore implements the ActivatingIccidStore of spec.md section
// 4.7: a persistent tri-state per SIM ICCID, surviving reboots, so a
// cellular activation that crossed a reboot can still be observed. It is
// built directly on pkg/store's group-keyed persistent store, the way the
// teacher's pkg/cert/store_file.go layers certificate bookkeeping on a
// single on-disk group.
package iccidstore

import "github.com/shillgo/shillgo/pkg/store"

// activationGroup is the fixed group id all ICCID entries live under.
const activationGroup = "activating_iccid"

// State is the tri-state activation state of a SIM.
type State int

const (
	// Unknown is the implicit absence value: no entry, or an entry holding
	// an integer outside {1,2}.
	Unknown State = 0
	// Pending indicates activation has been requested but not confirmed.
	Pending State = 1
	// Activated indicates the SIM has been confirmed activated.
	Activated State = 2
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Activated:
		return "Activated"
	default:
		return "Unknown"
	}
}

// Store is a persistent map of ICCID -> State.
type Store struct {
	backing *store.Store
}

// InitStorage opens or creates the backing file at path. Reopening an
// existing path preserves prior entries.
func InitStorage(path string) (*Store, error) {
	backing := store.Open(path)
	if err := backing.Load(); err != nil {
		return nil, err
	}
	return &Store{backing: backing}, nil
}

// GetActivationState returns the state for iccid, or Unknown if absent or
// if the stored value is outside the valid range.
func (s *Store) GetActivationState(iccid string) State {
	v, ok := s.backing.GetInt(activationGroup, iccid)
	if !ok {
		return Unknown
	}
	switch State(v) {
	case Pending, Activated:
		return State(v)
	default:
		return Unknown
	}
}

// SetActivationState writes and flushes state for iccid.
func (s *Store) SetActivationState(iccid string, state State) error {
	s.backing.SetInt(activationGroup, iccid, int32(state))
	return s.backing.Flush()
}

// RemoveEntry deletes iccid's entry and flushes.
func (s *Store) RemoveEntry(iccid string) error {
	s.backing.DeleteKey(activationGroup, iccid)
	return s.backing.Flush()
}
