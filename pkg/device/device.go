// Package device implements the Device entity of spec.md section 4.4: the
// per-technology network interface that turns driver events (link up/down,
// modem registered, supplicant associated) into Service state transitions,
// and turns Manager-issued Connect/Disconnect calls into bus traffic toward
// the driver daemon. It is grounded on the teacher's pkg/model.Device for
// the private-fields-plus-locked-accessors shape, generalized from the
// Device>Endpoint>Feature tree to a single flat network interface.
package device

import (
	"fmt"
	"sync"

	"github.com/shillgo/shillgo/pkg/netservice"
	"github.com/shillgo/shillgo/pkg/shillerr"
)

// LinkChange is the reason a LinkEvent was raised.
type LinkChange int

const (
	LinkChangeUnknown LinkChange = iota
	LinkChangeUp
	LinkChangeDown
	LinkChangeNewAddr
	LinkChangeDelAddr
)

// Capability is the per-technology seam a Device drives its bring-up and
// tear-down through. wifi/cellular/ethernet/vpn each supply their own
// implementation; Device itself holds no transport-specific logic.
type Capability interface {
	// Start begins monitoring the interface; called once from Device.Start.
	Start() error
	// Stop releases any resources acquired by Start.
	Stop() error
	// Connect asks the driver daemon to bring the given Service up.
	Connect(svc *netservice.Service) error
	// Disconnect asks the driver daemon to tear the given Service down.
	Disconnect(svc *netservice.Service) error
}

// CellularActivator is an optional extension a cellular Capability may
// implement to back the spec.md section 6 ActivateCellularModem bus
// method. Capabilities for other technologies simply don't implement it.
type CellularActivator interface {
	ActivateCellularModem() error
}

// Notifier is the narrow surface Device needs from the Manager: a single
// callback raised whenever link state or enablement changes, driving the
// Manager's best-Service-per-technology re-election (spec.md section 4.9).
type Notifier interface {
	OnDeviceChanged(d *Device)
}

// Device is a single network interface of a given technology.
type Device struct {
	mu sync.RWMutex

	name       string
	technology string
	cap        Capability

	running bool
	linkUp  bool
	enabled bool

	selected *netservice.Service

	notifier Notifier
}

// New creates a Device for interface name of the given technology, driven
// by cap. notifier may be nil (tests exercising Device in isolation).
func New(name, technology string, cap Capability, notifier Notifier) *Device {
	return &Device{
		name:       name,
		technology: technology,
		cap:        cap,
		enabled:    true,
		notifier:   notifier,
	}
}

// Name returns the kernel interface name (e.g. "wlan0").
func (d *Device) Name() string { return d.name }

// Technology returns the device's technology tag (e.g. "wifi", "cellular").
func (d *Device) Technology() string { return d.technology }

// TechnologyIs reports whether this Device is of the given technology.
func (d *Device) TechnologyIs(tag string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.technology == tag
}

// Running reports whether Start has been called without a matching Stop.
func (d *Device) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// LinkUp reports the most recently observed link-carrier state.
func (d *Device) LinkUp() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.linkUp
}

// Enabled reports whether the Device is administratively enabled.
func (d *Device) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// SetEnabled toggles administrative enablement and notifies the Manager on
// an actual change.
func (d *Device) SetEnabled(enabled bool) {
	d.mu.Lock()
	changed := d.enabled != enabled
	d.enabled = enabled
	d.mu.Unlock()
	if changed {
		d.notify()
	}
}

// SelectedService returns the Service this Device is currently driving, or
// nil if none is selected.
func (d *Device) SelectedService() *netservice.Service {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selected
}

// Start brings the Device's monitoring up; idempotent.
func (d *Device) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.mu.Unlock()

	if d.cap != nil {
		if err := d.cap.Start(); err != nil {
			d.mu.Lock()
			d.running = false
			d.mu.Unlock()
			return err
		}
	}
	d.notify()
	return nil
}

// Stop tears the Device's monitoring down; idempotent.
func (d *Device) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.linkUp = false
	d.mu.Unlock()

	var err error
	if d.cap != nil {
		err = d.cap.Stop()
	}
	d.notify()
	return err
}

// LinkEvent updates link_up from a kernel link-state notification and
// notifies the Manager on an actual change (spec.md section 4.4).
func (d *Device) LinkEvent(up bool, change LinkChange) {
	_ = change
	d.mu.Lock()
	changed := d.linkUp != up
	d.linkUp = up
	d.mu.Unlock()
	if changed {
		d.notify()
	}
}

// Connect selects svc and asks the capability to bring it up.
func (d *Device) Connect(svc *netservice.Service) error {
	if d.cap == nil {
		return shillerr.New(shillerr.InternalError, fmt.Sprintf("device %q has no capability", d.name))
	}
	d.mu.Lock()
	d.selected = svc
	d.mu.Unlock()
	return d.cap.Connect(svc)
}

// Disconnect asks the capability to tear svc down and clears the selection
// if svc was the one selected.
func (d *Device) Disconnect(svc *netservice.Service) error {
	if d.cap == nil {
		return shillerr.New(shillerr.InternalError, fmt.Sprintf("device %q has no capability", d.name))
	}
	err := d.cap.Disconnect(svc)
	d.mu.Lock()
	if d.selected == svc {
		d.selected = nil
	}
	d.mu.Unlock()
	return err
}

// ActivateCellularModem asks the Device's capability to activate its
// cellular modem (spec.md section 6). Fails with NotSupported if the
// capability is not a CellularActivator, e.g. for non-cellular Devices.
func (d *Device) ActivateCellularModem() error {
	activator, ok := d.cap.(CellularActivator)
	if !ok {
		return shillerr.New(shillerr.NotSupported, fmt.Sprintf("device %q does not support cellular activation", d.name))
	}
	return activator.ActivateCellularModem()
}

// OnModemRegistered drives the selected Service through the cellular
// registration transition (spec.md section 4.4: "on driver events ... the
// Device drives its selected Service through the corresponding Service-
// state transitions").
func (d *Device) OnModemRegistered() {
	svc := d.SelectedService()
	if svc == nil {
		return
	}
	svc.SetState(netservice.StateConfiguring)
}

// OnSupplicantAssociated drives the selected Service through the wifi
// association transition.
func (d *Device) OnSupplicantAssociated() {
	svc := d.SelectedService()
	if svc == nil {
		return
	}
	svc.SetState(netservice.StateConfiguring)
}

func (d *Device) notify() {
	if d.notifier != nil {
		d.notifier.OnDeviceChanged(d)
	}
}
