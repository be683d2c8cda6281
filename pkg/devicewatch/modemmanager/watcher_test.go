package modemmanager

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shillgo/shillgo/pkg/device"
	"github.com/shillgo/shillgo/pkg/netservice"
	"github.com/shillgo/shillgo/pkg/proxyfactory"
)

type fakeRegistry struct {
	registered   []string
	deregistered []string
}

func (r *fakeRegistry) RegisterDevice(d *device.Device) { r.registered = append(r.registered, d.Name()) }
func (r *fakeRegistry) DeregisterDevice(name string)    { r.deregistered = append(r.deregistered, name) }

type noopCapability struct{}

func (noopCapability) Start() error                                       { return nil }
func (noopCapability) Stop() error                                        { return nil }
func (noopCapability) Connect(svc *netservice.Service) error              { return nil }
func (noopCapability) Disconnect(svc *netservice.Service) error           { return nil }

func stubModemFactory(objectPath string, proxy proxyfactory.ModemProxy) (string, device.Capability, error) {
	return "wwan" + objectPath, noopCapability{}, nil
}

func newWatcher(mock *proxyfactory.Mock, registry *fakeRegistry) *Watcher {
	return New("org.freedesktop.ModemManager1", mock, registry, stubModemFactory, nil)
}

func TestOnAppearEnumeratesAndRegistersModems(t *testing.T) {
	mock := proxyfactory.NewMock()
	mock.ModemManagerProxies["org.freedesktop.ModemManager1"] = &fakeModemManagerProxy{devices: []string{"/Modem/0", "/Modem/1"}}
	registry := &fakeRegistry{}
	w := newWatcher(mock, registry)

	require.NoError(t, w.OnAppear(":1.42"))
	require.Equal(t, StatePresent, w.State())
	require.Equal(t, ":1.42", w.Owner())
	require.ElementsMatch(t, []string{"wwan/Modem/0", "wwan/Modem/1"}, registry.registered)
}

func TestOnAppearIsIdempotent(t *testing.T) {
	mock := proxyfactory.NewMock()
	mock.ModemManagerProxies["org.freedesktop.ModemManager1"] = &fakeModemManagerProxy{devices: []string{"/Modem/0"}}
	registry := &fakeRegistry{}
	w := newWatcher(mock, registry)

	require.NoError(t, w.OnAppear(":1.42"))
	require.NoError(t, w.OnAppear(":1.43"))
	require.Equal(t, ":1.42", w.Owner(), "second OnAppear while already Present is a no-op")
	require.Len(t, registry.registered, 1)
}

func TestOnVanishDeregistersAllModems(t *testing.T) {
	mock := proxyfactory.NewMock()
	mock.ModemManagerProxies["org.freedesktop.ModemManager1"] = &fakeModemManagerProxy{devices: []string{"/Modem/0", "/Modem/1"}}
	registry := &fakeRegistry{}
	w := newWatcher(mock, registry)

	require.NoError(t, w.OnAppear(":1.42"))
	w.OnVanish()

	require.Equal(t, StateAbsent, w.State())
	require.ElementsMatch(t, []string{"wwan/Modem/0", "wwan/Modem/1"}, registry.deregistered)
}

func TestRemoveModemDeregistersOnlyThatOne(t *testing.T) {
	mock := proxyfactory.NewMock()
	mock.ModemManagerProxies["org.freedesktop.ModemManager1"] = &fakeModemManagerProxy{devices: []string{"/Modem/0", "/Modem/1"}}
	registry := &fakeRegistry{}
	w := newWatcher(mock, registry)

	require.NoError(t, w.OnAppear(":1.42"))
	w.RemoveModem("/Modem/0")

	require.Equal(t, []string{"wwan/Modem/0"}, registry.deregistered)
}

func TestOnVanishWithoutAppearIsSafe(t *testing.T) {
	w := newWatcher(proxyfactory.NewMock(), &fakeRegistry{})
	require.NotPanics(t, func() { w.OnVanish() })
}

type fakeModemManagerProxy struct {
	devices []string
}

func (f *fakeModemManagerProxy) EnumerateDevices() ([]string, error) { return f.devices, nil }
func (f *fakeModemManagerProxy) Close() error                        { return nil }
