// Package modemmanager implements the ModemManager Watcher of spec.md
// section 4.10: an Absent -> Present(owner) -> Absent state machine per
// watched modem-daemon bus name, instantiating a cellular device.Device
// for each modem the daemon enumerates and tearing them all down on
// vanish. It is grounded on the teacher's pkg/discovery/browser.go (the
// add/remove channel shape of watching a named service appear and
// disappear), generalized from mDNS service discovery to bus-name
// ownership watching, and on the original implementation's
// modem_info.cc/modem_manager.cc for the Absent/Present/enumerate/teardown
// semantics themselves.
package modemmanager

import (
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/shillgo/shillgo/pkg/device"
	"github.com/shillgo/shillgo/pkg/proxyfactory"
)

// State is the watcher's position in the per-service-name state machine.
type State int

const (
	StateAbsent State = iota
	StatePresent
)

func (s State) String() string {
	if s == StatePresent {
		return "Present"
	}
	return "Absent"
}

// Registry is the narrow surface the watcher needs from the Manager: add a
// newly enumerated cellular Device, and remove one whose modem vanished.
type Registry interface {
	RegisterDevice(d *device.Device)
	DeregisterDevice(name string)
}

// ModemFactory builds a cellular device.Capability (and derives its kernel
// interface name) for a single enumerated modem object path. Kept as a
// seam so tests can avoid touching a real ModemManager proxy.
type ModemFactory func(objectPath string, proxy proxyfactory.ModemProxy) (ifaceName string, cap device.Capability, err error)

// Watcher tracks a single watched modem-daemon bus name through
// Absent -> Present(owner) -> Absent.
type Watcher struct {
	mu sync.Mutex

	serviceName string
	factory     proxyfactory.Factory
	registry    Registry
	buildModem  ModemFactory
	notifier    device.Notifier

	state State
	owner string

	// modems maps enumerated object path -> the interface name registered
	// with Registry, so OnVanish can tear down exactly what OnAppear built.
	modems map[string]string
}

// New creates a Watcher for serviceName, enumerating modems via factory and
// registering/deregistering cellular Devices through registry.
func New(serviceName string, factory proxyfactory.Factory, registry Registry, buildModem ModemFactory, notifier device.Notifier) *Watcher {
	return &Watcher{
		serviceName: serviceName,
		factory:     factory,
		registry:    registry,
		buildModem:  buildModem,
		notifier:    notifier,
		modems:      make(map[string]string),
	}
}

// ServiceName returns the bus name this Watcher tracks.
func (w *Watcher) ServiceName() string { return w.serviceName }

// State returns the watcher's current state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Owner returns the unique bus name currently owning serviceName, valid
// only while State is Present.
func (w *Watcher) Owner() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.owner
}

// OnAppear transitions Absent->Present: connects via the ModemManager
// proxy, enumerates modems, and registers a cellular Device per modem.
func (w *Watcher) OnAppear(owner string) error {
	w.mu.Lock()
	if w.state == StatePresent {
		w.mu.Unlock()
		return nil
	}
	w.state = StatePresent
	w.owner = owner
	w.mu.Unlock()

	mmProxy, err := w.factory.CreateModemManagerProxy(w.serviceName, dbus.ObjectPath("/org/freedesktop/ModemManager1"))
	if err != nil {
		return err
	}
	defer mmProxy.Close()

	paths, err := mmProxy.EnumerateDevices()
	if err != nil {
		return err
	}

	for _, path := range paths {
		if err := w.addModem(path); err != nil {
			return err
		}
	}
	return nil
}

// addModem is also the entry point for InterfacesAdded deltas the v1
// ModemManager API surfaces after the initial enumeration (spec.md section
// 4.10).
func (w *Watcher) addModem(objectPath string) error {
	w.mu.Lock()
	if _, exists := w.modems[objectPath]; exists {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	modemProxy, err := w.factory.CreateModemProxy(w.serviceName, dbus.ObjectPath(objectPath))
	if err != nil {
		return err
	}

	ifaceName, cap, err := w.buildModem(objectPath, modemProxy)
	if err != nil {
		return err
	}

	d := device.New(ifaceName, "cellular", cap, w.notifier)
	w.registry.RegisterDevice(d)

	w.mu.Lock()
	w.modems[objectPath] = ifaceName
	w.mu.Unlock()
	return nil
}

// RemoveModem is the entry point for InterfacesRemoved deltas: tears down
// the Device for a single modem without affecting the others.
func (w *Watcher) RemoveModem(objectPath string) {
	w.mu.Lock()
	ifaceName, ok := w.modems[objectPath]
	if ok {
		delete(w.modems, objectPath)
	}
	w.mu.Unlock()
	if ok {
		w.registry.DeregisterDevice(ifaceName)
	}
}

// OnVanish transitions Present->Absent: deregisters every modem Device this
// Watcher registered. It does not remove those modems' Services; they stay
// registered wherever the caller registered them.
func (w *Watcher) OnVanish() {
	w.mu.Lock()
	if w.state == StateAbsent {
		w.mu.Unlock()
		return
	}
	w.state = StateAbsent
	w.owner = ""
	ifaceNames := make([]string, 0, len(w.modems))
	for _, name := range w.modems {
		ifaceNames = append(ifaceNames, name)
	}
	w.modems = make(map[string]string)
	w.mu.Unlock()

	for _, name := range ifaceNames {
		w.registry.DeregisterDevice(name)
	}
}

// OnDeviceInfoAvailable notifies the watcher that the kernel has exposed
// linkName for a previously-seen modem. Today this is a pass-through hook:
// the concrete Capability built by ModemFactory owns reacting to link
// availability (spec.md section 4.10 describes it only as a notification).
func (w *Watcher) OnDeviceInfoAvailable(linkName string) {
	_ = linkName
}

