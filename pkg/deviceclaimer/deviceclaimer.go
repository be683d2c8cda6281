// Package deviceclaimer implements the DeviceClaimer of spec.md section
// 4.9: the peer-claimed interface black list backing Manager's
// ClaimInterface/ReleaseInterface bus methods, plus vanish-triggers-
// mass-release when the claiming peer disconnects. It is grounded on the
// original implementation's device_claimer.cc, with the vanish watcher
// expressed as a callback registration rather than a control-interface
// RPC service watcher (spec.md section 4.9, "the function of
// DeviceClaimer::StartServiceWatcher and its vanish callback").
package deviceclaimer

import (
	"fmt"
	"sync"

	"github.com/shillgo/shillgo/pkg/shillerr"
)

// BlackList is the narrow surface DeviceClaimer needs to enforce a device
// black list without importing the Manager's device registry.
type BlackList interface {
	AddDeviceToBlackList(name string)
	RemoveDeviceFromBlackList(name string)
}

// Claimer tracks which interfaces a single peer has claimed for its own
// exclusive use, keeping them off the Manager's normally-managed device
// set via BlackList.
type Claimer struct {
	mu sync.Mutex

	serviceName string
	blackList   BlackList

	claimed  map[string]bool
	released map[string]bool

	watching bool
	onVanish func()
}

// New creates a Claimer for the peer identified by serviceName, enforcing
// its claims against blackList.
func New(serviceName string, blackList BlackList) *Claimer {
	return &Claimer{
		serviceName: serviceName,
		blackList:   blackList,
		claimed:     make(map[string]bool),
		released:    make(map[string]bool),
	}
}

// ServiceName returns the bus name of the claiming peer.
func (c *Claimer) ServiceName() string { return c.serviceName }

// StartServiceWatcher registers onVanish to run exactly once, the first
// time the claiming peer's bus connection vanishes. Fails if a watcher is
// already registered.
func (c *Claimer) StartServiceWatcher(onVanish func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watching {
		return shillerr.New(shillerr.AlreadyExists, "service watcher already started")
	}
	c.watching = true
	c.onVanish = onVanish
	return nil
}

// Claim adds device_name to the black list on behalf of the claiming peer.
// Fails with InvalidArguments if already claimed by this Claimer.
func (c *Claimer) Claim(deviceName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimed[deviceName] {
		return shillerr.New(shillerr.InvalidArguments, fmt.Sprintf("device %q had already been claimed", deviceName))
	}
	c.blackList.AddDeviceToBlackList(deviceName)
	c.claimed[deviceName] = true
	delete(c.released, deviceName)
	return nil
}

// Release removes device_name from the black list. Fails with
// InvalidArguments if it was not claimed by this Claimer.
func (c *Claimer) Release(deviceName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.claimed[deviceName] {
		return shillerr.New(shillerr.InvalidArguments, fmt.Sprintf("device %q has not been claimed", deviceName))
	}
	c.blackList.RemoveDeviceFromBlackList(deviceName)
	delete(c.claimed, deviceName)
	c.released[deviceName] = true
	return nil
}

// DevicesClaimed reports whether this Claimer currently holds any claims.
func (c *Claimer) DevicesClaimed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.claimed) > 0
}

// IsDeviceReleased reports whether deviceName was claimed and later
// released by this Claimer (as opposed to never having been claimed).
func (c *Claimer) IsDeviceReleased(deviceName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released[deviceName]
}

// OnPeerVanished releases every claim this Claimer holds and invokes the
// registered vanish callback, if any. Called by the bus layer when it
// observes the claiming peer's connection disappear.
func (c *Claimer) OnPeerVanished() {
	c.mu.Lock()
	names := make([]string, 0, len(c.claimed))
	for name := range c.claimed {
		names = append(names, name)
	}
	cb := c.onVanish
	c.onVanish = nil
	c.mu.Unlock()

	for _, name := range names {
		_ = c.Release(name)
	}
	if cb != nil {
		cb()
	}
}
