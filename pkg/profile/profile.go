// Package profile implements the Profile entity of spec.md section 4.5: a
// named persistence layer that owns a subset of Services. Profiles stack
// (Manager holds bottom=default, top=most specific); a Service is owned by
// at most one Profile at a time, tracked via Service.SetOwningProfile. It is
// grounded on the teacher's pkg/persistence.State for the load/flush-to-
// backing-store shape, generalized from a single flat state blob to
// per-Service storage groups.
package profile

import (
	"fmt"

	"github.com/shillgo/shillgo/pkg/netservice"
	"github.com/shillgo/shillgo/pkg/shillerr"
	"github.com/shillgo/shillgo/pkg/store"
)

// Owner is the narrow surface Profile needs from a Service to track
// ownership without importing the Manager's registry.
type Owner interface {
	SetOwningProfile(name string)
	ClearOwningProfile(name string)
	OwningProfile() string
}

// Profile is a named persistence layer. Entries it owns are stored under
// each Service's bare storage identifier; Name does not prefix them.
type Profile struct {
	name    string
	backing *store.Store
}

// New wraps an already-opened backing store under name.
func New(name string, backing *store.Store) *Profile {
	return &Profile{name: name, backing: backing}
}

// Name returns the profile's identifier.
func (p *Profile) Name() string { return p.name }

// AdoptService atomically (a) writes svc's current record under its
// storage identifier and (b) claims ownership, per spec.md section 4.5.
// Fails if svc is already owned by a different profile.
func (p *Profile) AdoptService(svc interface {
	netservice.ServiceLike
	Owner
}) error {
	if current := svc.OwningProfile(); current != "" && current != p.name {
		return shillerr.New(shillerr.InternalError, fmt.Sprintf("service %q is owned by profile %q", svc.StorageIdentifier(), current))
	}
	if err := svc.Save(p.backing); err != nil {
		return err
	}
	svc.SetOwningProfile(p.name)
	return nil
}

// AbandonService deletes svc's record and clears the ownership binding.
// A no-op (not an error) if this profile does not currently own svc.
func (p *Profile) AbandonService(svc interface {
	netservice.ServiceLike
	Owner
}) error {
	if svc.OwningProfile() != p.name {
		return nil
	}
	p.backing.DeleteGroup(svc.StorageIdentifier())
	if err := p.backing.Flush(); err != nil {
		return shillerr.New(shillerr.InternalError, err.Error())
	}
	svc.ClearOwningProfile(p.name)
	return nil
}

// LoadService reads svc's record from storage without claiming ownership,
// used when an upper profile temporarily displays a lower profile's entry
// (spec.md section 4.5).
func (p *Profile) LoadService(svc netservice.ServiceLike) error {
	return svc.Load(p.backing)
}

// ConfigureService applies profile-supplied defaults to a never-before-seen
// Service. def is invoked only if the service has no existing record.
func (p *Profile) ConfigureService(svc netservice.ServiceLike, def func(netservice.ServiceLike)) {
	if p.backing.ContainsGroup(svc.StorageIdentifier()) {
		return
	}
	def(svc)
}

// DeleteEntry removes a record by storage id. Fails with NotFound if no
// such entry exists.
func (p *Profile) DeleteEntry(storageID string) error {
	if !p.backing.ContainsGroup(storageID) {
		return shillerr.New(shillerr.NotFound, fmt.Sprintf("no entry %q in profile %q", storageID, p.name))
	}
	p.backing.DeleteGroup(storageID)
	if err := p.backing.Flush(); err != nil {
		return shillerr.New(shillerr.InternalError, err.Error())
	}
	return nil
}

// ContainsEntry reports whether storageID has a record in this profile.
func (p *Profile) ContainsEntry(storageID string) bool {
	return p.backing.ContainsGroup(storageID)
}

// Save flushes the backing store.
func (p *Profile) Save() error {
	if err := p.backing.Flush(); err != nil {
		return shillerr.New(shillerr.InternalError, err.Error())
	}
	return nil
}
