// Package manager implements the Manager of spec.md section 4.9: the
// top-level coordinator holding the Profile stack, the Device and Service
// registries, the default-technology-order policy, and the currently
// elected default Service. It is grounded on the teacher's
// pkg/zone/manager.go for the stack/ownership bookkeeping shape and on
// pkg/service/subscription_manager.go for the fan-out-policy-recompute-on-
// change idiom, generalized from Matter zones/subscriptions to shill's
// Service/Device registries.
//
// The Service<->Device<->Manager cyclic ownership (spec.md section 9) is
// handled through registries: Manager owns the Devices and Services slabs
// by name/storage-identifier. A Service reaches its Device only through
// the DeviceLink seam handed to each Connect/Disconnect call and holds no
// Device pointer. A Device, however, keeps a direct pointer to the Service
// it has selected (Device.SelectedService) rather than its identifier.
package manager

import (
	"fmt"
	"sync"

	"github.com/shillgo/shillgo/pkg/deviceclaimer"
	"github.com/shillgo/shillgo/pkg/dispatcher"
	"github.com/shillgo/shillgo/pkg/device"
	"github.com/shillgo/shillgo/pkg/netservice"
	"github.com/shillgo/shillgo/pkg/portal"
	"github.com/shillgo/shillgo/pkg/profile"
	"github.com/shillgo/shillgo/pkg/shillerr"
)

// DefaultTechnologyOrder is the compile-time fallback used whenever the
// configured order is empty or invalid (spec.md section 6, CLI surface).
var DefaultTechnologyOrder = []string{"vpn", "ethernet", "wifi", "wimax", "cellular"}

// serviceLink adapts a (Device, Service) pair to netservice.DeviceLink,
// letting Service drive Connect/Disconnect without holding a live Device
// pointer of its own.
type serviceLink struct {
	dev *device.Device
	svc *netservice.Service
}

func (l serviceLink) Connect() error    { return l.dev.Connect(l.svc) }
func (l serviceLink) Disconnect() error { return l.dev.Disconnect(l.svc) }

// Manager is the central connection-management coordinator.
type Manager struct {
	mu sync.Mutex

	disp *dispatcher.Dispatcher

	profiles []*profile.Profile // bottom = default, top = most specific

	devices      map[string]*device.Device  // keyed by interface name
	deviceOrder  []string
	services     map[string]*netservice.Service // keyed by storage identifier
	serviceOrder []string

	technologyOrder []string

	defaultService *netservice.Service
	portalDetector *portal.Detector
	portalURL      string

	blackList map[string]bool // device names claimed by a peer, excluded from policy
	claimers  map[string]*deviceclaimer.Claimer

	onDefaultServiceChanged func(old, next *netservice.Service)
}

// New creates an empty Manager driven by disp, probing portalURL through
// detector when a new default Service reaches StateConnected.
func New(disp *dispatcher.Dispatcher, detector *portal.Detector, portalURL string) *Manager {
	return &Manager{
		disp:            disp,
		devices:         make(map[string]*device.Device),
		services:        make(map[string]*netservice.Service),
		technologyOrder: append([]string(nil), DefaultTechnologyOrder...),
		blackList:       make(map[string]bool),
		claimers:        make(map[string]*deviceclaimer.Claimer),
		portalDetector:  detector,
		portalURL:       portalURL,
	}
}

// SetTechnologyOrder installs the priority order used to elect the default
// Service across technologies. An empty order falls back to
// DefaultTechnologyOrder (spec.md section 6).
func (m *Manager) SetTechnologyOrder(order []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(order) == 0 {
		m.technologyOrder = append([]string(nil), DefaultTechnologyOrder...)
		return
	}
	m.technologyOrder = append([]string(nil), order...)
}

// OnDefaultServiceChanged installs a callback invoked whenever the elected
// default Service changes (for bus-property emission by the caller).
func (m *Manager) OnDefaultServiceChanged(fn func(old, next *netservice.Service)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDefaultServiceChanged = fn
}

// PushProfile pushes p onto the profile stack as the new most-specific
// profile.
func (m *Manager) PushProfile(p *profile.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = append(m.profiles, p)
}

// Profiles returns the profile stack, bottom (default) first.
func (m *Manager) Profiles() []*profile.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*profile.Profile, len(m.profiles))
	copy(out, m.profiles)
	return out
}

// ActiveProfile returns the most specific (top) profile, or nil if no
// profile is loaded.
func (m *Manager) ActiveProfile() *profile.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.profiles) == 0 {
		return nil
	}
	return m.profiles[len(m.profiles)-1]
}

// RegisterDevice adds d to the registry, wiring the Manager as its
// change notifier target via the caller (Device.New already took a
// Notifier at construction; RegisterDevice only tracks it for policy runs
// and registry lookups).
func (m *Manager) RegisterDevice(d *device.Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.devices[d.Name()]; exists {
		return
	}
	m.devices[d.Name()] = d
	m.deviceOrder = append(m.deviceOrder, d.Name())
}

// DeregisterDevice removes d from the registry, e.g. on modem vanish.
func (m *Manager) DeregisterDevice(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.devices, name)
	for i, n := range m.deviceOrder {
		if n == name {
			m.deviceOrder = append(m.deviceOrder[:i], m.deviceOrder[i+1:]...)
			break
		}
	}
}

// Device looks up a registered Device by interface name.
func (m *Manager) Device(name string) (*device.Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[name]
	return d, ok
}

// Devices returns every registered Device, not excluding black-listed ones.
func (m *Manager) Devices() []*device.Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*device.Device, 0, len(m.deviceOrder))
	for _, n := range m.deviceOrder {
		out = append(out, m.devices[n])
	}
	return out
}

// RegisterService adds svc to the registry, union over profiles plus any
// ephemeral (not-yet-persisted) Service.
func (m *Manager) RegisterService(svc *netservice.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.services[svc.StorageIdentifier()]; exists {
		return
	}
	m.services[svc.StorageIdentifier()] = svc
	m.serviceOrder = append(m.serviceOrder, svc.StorageIdentifier())
}

// DeregisterService removes a Service from the registry, e.g. Service.Remove.
func (m *Manager) DeregisterService(storageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.services, storageID)
	for i, id := range m.serviceOrder {
		if id == storageID {
			m.serviceOrder = append(m.serviceOrder[:i], m.serviceOrder[i+1:]...)
			break
		}
	}
}

// Service looks up a registered Service by storage identifier.
func (m *Manager) Service(storageID string) (*netservice.Service, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[storageID]
	return svc, ok
}

// Services returns every registered Service.
func (m *Manager) Services() []*netservice.Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*netservice.Service, 0, len(m.serviceOrder))
	for _, id := range m.serviceOrder {
		out = append(out, m.services[id])
	}
	return out
}

// DefaultService returns the currently elected default Service, or nil.
func (m *Manager) DefaultService() *netservice.Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultService
}

// ConnectService drives svc to connect through dev, via the serviceLink
// adapter (this is the only place a live (Device, Service) pair is bound
// together, per spec.md section 9's arena+index design).
func (m *Manager) ConnectService(dev *device.Device, svc *netservice.Service, reason string) error {
	return svc.Connect(reason, serviceLink{dev: dev, svc: svc})
}

// DisconnectService drives svc to disconnect through dev.
func (m *Manager) DisconnectService(dev *device.Device, svc *netservice.Service) error {
	return svc.Disconnect(serviceLink{dev: dev, svc: svc})
}

// RemoveService implements spec.md section 6's Service.Remove: it deletes
// the Service's record from its owning Profile (a no-op on the store if it
// was never persisted) and drops it from the registry entirely, then
// re-runs policy since the removed Service may have been the elected
// default.
func (m *Manager) RemoveService(storageID string) error {
	m.mu.Lock()
	svc, ok := m.services[storageID]
	if !ok {
		m.mu.Unlock()
		return shillerr.New(shillerr.NotFound, fmt.Sprintf("no such service %q", storageID))
	}
	owningName := svc.OwningProfile()
	var owning *profile.Profile
	for _, p := range m.profiles {
		if p.Name() == owningName {
			owning = p
			break
		}
	}
	m.mu.Unlock()

	if owning != nil {
		if err := owning.AbandonService(svc); err != nil {
			return err
		}
	}

	m.DeregisterService(storageID)
	m.RunPolicy()
	return nil
}

// MoveServiceBefore implements spec.md section 6's Service.MoveBefore:
// id's priority is raised just above otherID's, and a policy recompute
// follows since this can change which Service is elected within a
// technology.
func (m *Manager) MoveServiceBefore(id, otherID string) error {
	return m.reorderPriority(id, otherID, 1)
}

// MoveServiceAfter implements spec.md section 6's Service.MoveAfter: id's
// priority is lowered just below otherID's.
func (m *Manager) MoveServiceAfter(id, otherID string) error {
	return m.reorderPriority(id, otherID, -1)
}

func (m *Manager) reorderPriority(id, otherID string, delta int) error {
	m.mu.Lock()
	svc, ok := m.services[id]
	other, okOther := m.services[otherID]
	m.mu.Unlock()
	if !ok {
		return shillerr.New(shillerr.NotFound, fmt.Sprintf("no such service %q", id))
	}
	if !okOther {
		return shillerr.New(shillerr.NotFound, fmt.Sprintf("no such service %q", otherID))
	}

	p := svc.Policy()
	p.Priority = other.Policy().Priority + delta
	p.HasPriority = true
	svc.SetPolicy(p)

	m.RunPolicy()
	return nil
}

// ActivateCellularModem implements spec.md section 6's
// Service.ActivateCellularModem, delegating to the named Device's
// Capability.
func (m *Manager) ActivateCellularModem(deviceName string) error {
	m.mu.Lock()
	dev, ok := m.devices[deviceName]
	m.mu.Unlock()
	if !ok {
		return shillerr.New(shillerr.NotFound, fmt.Sprintf("no such device %q", deviceName))
	}
	return dev.ActivateCellularModem()
}

// deviceForTechnology returns the first registered Device of the given
// technology in registration order, or nil. Callers must hold m.mu.
func (m *Manager) deviceForTechnology(tech string) *device.Device {
	for _, name := range m.deviceOrder {
		if d := m.devices[name]; d.TechnologyIs(tech) {
			return d
		}
	}
	return nil
}

// resolveDevice finds the Device to drive svc through, preferring the
// Device currently selecting it and falling back to any Device of svc's
// technology. Callers must hold m.mu.
func (m *Manager) resolveDevice(svc *netservice.Service) *device.Device {
	if dev := m.deviceSelecting(svc); dev != nil {
		return dev
	}
	return m.deviceForTechnology(svc.Technology())
}

// Connect implements spec.md section 6's bus-facing Service.Connect: it
// resolves a Device of the Service's technology (preferring one already
// selecting it) and drives the connection through it.
func (m *Manager) Connect(storageID, reason string) error {
	m.mu.Lock()
	svc, ok := m.services[storageID]
	if !ok {
		m.mu.Unlock()
		return shillerr.New(shillerr.NotFound, fmt.Sprintf("no such service %q", storageID))
	}
	dev := m.resolveDevice(svc)
	m.mu.Unlock()
	if dev == nil {
		return shillerr.New(shillerr.NotFound, fmt.Sprintf("no device available for technology %q", svc.Technology()))
	}
	return m.ConnectService(dev, svc, reason)
}

// Disconnect implements spec.md section 6's bus-facing Service.Disconnect.
func (m *Manager) Disconnect(storageID string) error {
	m.mu.Lock()
	svc, ok := m.services[storageID]
	if !ok {
		m.mu.Unlock()
		return shillerr.New(shillerr.NotFound, fmt.Sprintf("no such service %q", storageID))
	}
	dev := m.resolveDevice(svc)
	m.mu.Unlock()
	if dev == nil {
		return shillerr.New(shillerr.NotFound, fmt.Sprintf("no device available for technology %q", svc.Technology()))
	}
	return m.DisconnectService(dev, svc)
}

// ActivateCellularModemForService resolves the Device currently driving
// svc (or the first Device of svc's technology, if none is selecting it
// yet) and activates
// its modem, for the bus surface where the method's Object is a Service
// rather than a Device (spec.md section 6).
func (m *Manager) ActivateCellularModemForService(storageID string) error {
	m.mu.Lock()
	svc, ok := m.services[storageID]
	if !ok {
		m.mu.Unlock()
		return shillerr.New(shillerr.NotFound, fmt.Sprintf("no such service %q", storageID))
	}
	dev := m.resolveDevice(svc)
	m.mu.Unlock()
	if dev == nil {
		return shillerr.New(shillerr.NotFound, fmt.Sprintf("no device available for technology %q", svc.Technology()))
	}
	return dev.ActivateCellularModem()
}

// OnDeviceChanged implements device.Notifier: any Device link/enabled
// change triggers a policy recompute.
func (m *Manager) OnDeviceChanged(d *device.Device) {
	_ = d
	m.RunPolicy()
}

// OnServiceChanged should be invoked by the caller (via
// Service.OnPropertyChanged) whenever a Service's state, connectable, or
// priority fields change, triggering a policy recompute.
func (m *Manager) OnServiceChanged(name string, value any) {
	switch name {
	case "State", "Connectable", "Priority", "Favorite", "AutoConnect":
		m.RunPolicy()
	}
}

// stateRank orders netservice.State for the "best Service of a technology"
// comparison: Online > Connected > Configuring > Associating > Idle >
// everything else (spec.md section 4.9).
func stateRank(s netservice.State) int {
	switch s {
	case netservice.StateOnline:
		return 5
	case netservice.StateConnected:
		return 4
	case netservice.StateConfiguring:
		return 3
	case netservice.StateAssociating:
		return 2
	case netservice.StateIdle:
		return 1
	default:
		return 0
	}
}

// betterService reports whether a outranks b by spec.md section 4.9's sort
// keys: state rank, priority (an unset priority counts as 0), favorite,
// auto_connect, recency (registration order, earlier wins, as a stable
// proxy for "most recently used" in the absence of a tracked last-connect
// timestamp surfaced to this package).
func betterService(a, b *netservice.Service, aIdx, bIdx int) bool {
	if ra, rb := stateRank(a.State()), stateRank(b.State()); ra != rb {
		return ra > rb
	}
	pa, pb := a.Policy(), b.Policy()
	prA, prB := 0, 0
	if pa.HasPriority {
		prA = pa.Priority
	}
	if pb.HasPriority {
		prB = pb.Priority
	}
	if prA != prB {
		return prA > prB
	}
	if pa.Favorite != pb.Favorite {
		return pa.Favorite
	}
	if pa.AutoConnect != pb.AutoConnect {
		return pa.AutoConnect
	}
	return aIdx < bIdx
}

// deviceSelecting returns the Device currently selecting svc, or nil if no
// Device has selected it.
func (m *Manager) deviceSelecting(svc *netservice.Service) *device.Device {
	for _, d := range m.devices {
		if d.SelectedService() == svc {
			return d
		}
	}
	return nil
}

// technologyOf reports the technology tag carried by svc's selecting
// Device, or "" if svc is not currently selected by any Device. It does
// not consult svc.Technology(); RunPolicy likewise skips Services that no
// Device has selected.
func (m *Manager) technologyOf(svc *netservice.Service) string {
	if d := m.deviceSelecting(svc); d != nil {
		return d.Technology()
	}
	return ""
}

// RunPolicy re-elects the best Service per technology and the global
// default Service (spec.md section 4.9), swapping PortalDetector onto the
// new default if it differs from the old one. Services whose selecting
// Device is claimed by a peer (m.blackList) are excluded from election
// entirely, per spec.md section 2 item 12 / section 4.9: a claimed device
// is excluded from management, not merely deprioritized.
func (m *Manager) RunPolicy() {
	m.mu.Lock()

	bestByTech := make(map[string]*netservice.Service)
	bestIdx := make(map[string]int)
	for i, id := range m.serviceOrder {
		svc := m.services[id]
		dev := m.deviceSelecting(svc)
		if dev == nil {
			continue
		}
		if m.blackList[dev.Name()] {
			continue
		}
		tech := dev.Technology()
		if tech == "" {
			continue
		}
		cur, ok := bestByTech[tech]
		if !ok || betterService(svc, cur, i, bestIdx[tech]) {
			bestByTech[tech] = svc
			bestIdx[tech] = i
		}
	}

	var elected *netservice.Service
	for _, tech := range m.technologyOrder {
		if svc, ok := bestByTech[tech]; ok {
			elected = svc
			break
		}
	}

	old := m.defaultService
	changed := old != elected
	m.defaultService = elected
	cb := m.onDefaultServiceChanged
	detector := m.portalDetector
	url := m.portalURL
	m.mu.Unlock()

	if !changed {
		return
	}

	if detector != nil {
		detector.Stop()
		if elected != nil && elected.State() == netservice.StateConnected {
			_ = detector.Start(url, func(portal.Result) {})
		}
	}

	if cb != nil {
		cb(old, elected)
	}
}

// deviceBlackList adapts Manager to deviceclaimer.BlackList, excluding
// claimed interfaces from RunPolicy's Device iteration.
type deviceBlackList struct{ m *Manager }

func (b deviceBlackList) AddDeviceToBlackList(name string) {
	b.m.mu.Lock()
	defer b.m.mu.Unlock()
	b.m.blackList[name] = true
}

func (b deviceBlackList) RemoveDeviceFromBlackList(name string) {
	b.m.mu.Lock()
	defer b.m.mu.Unlock()
	delete(b.m.blackList, name)
}

// IsDeviceBlackListed reports whether name is currently claimed by a peer
// and so excluded from Manager's own policy decisions.
func (m *Manager) IsDeviceBlackListed(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blackList[name]
}

// ClaimInterface forwards to a per-peer DeviceClaimer (creating one on
// first use), adding deviceName to the black list (spec.md section 4.9).
func (m *Manager) ClaimInterface(peerServiceName, deviceName string) error {
	m.mu.Lock()
	claimer, ok := m.claimers[peerServiceName]
	if !ok {
		claimer = deviceclaimer.New(peerServiceName, deviceBlackList{m: m})
		m.claimers[peerServiceName] = claimer
	}
	m.mu.Unlock()
	return claimer.Claim(deviceName)
}

// ReleaseInterface forwards to the peer's DeviceClaimer, removing
// deviceName from the black list. Fails with NotFound if peerServiceName
// has never claimed anything.
func (m *Manager) ReleaseInterface(peerServiceName, deviceName string) error {
	m.mu.Lock()
	claimer, ok := m.claimers[peerServiceName]
	m.mu.Unlock()
	if !ok {
		return shillerr.New(shillerr.NotFound, "peer has no claimed interfaces")
	}
	return claimer.Release(deviceName)
}

// OnPeerVanished releases every interface peerServiceName had claimed, per
// DeviceClaimer's StartServiceWatcher vanish contract.
func (m *Manager) OnPeerVanished(peerServiceName string) {
	m.mu.Lock()
	claimer, ok := m.claimers[peerServiceName]
	m.mu.Unlock()
	if !ok {
		return
	}
	claimer.OnPeerVanished()
}
