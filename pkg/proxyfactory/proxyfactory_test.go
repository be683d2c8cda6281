package proxyfactory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeModemManagerProxy struct {
	devices []string
}

func (f *fakeModemManagerProxy) EnumerateDevices() ([]string, error) { return f.devices, nil }
func (f *fakeModemManagerProxy) Close() error                        { return nil }

func TestMockReturnsRegisteredFixture(t *testing.T) {
	m := NewMock()
	fixture := &fakeModemManagerProxy{devices: []string{"/Modem/0"}}
	m.ModemManagerProxies["org.freedesktop.ModemManager1"] = fixture

	var f Factory = m
	proxy, err := f.CreateModemManagerProxy("org.freedesktop.ModemManager1", "/")
	require.NoError(t, err)
	require.Same(t, fixture, proxy)

	devices, err := proxy.EnumerateDevices()
	require.NoError(t, err)
	require.Equal(t, []string{"/Modem/0"}, devices)
}

func TestMockReturnsNilForUnregisteredService(t *testing.T) {
	m := NewMock()
	proxy, err := m.CreateModemManagerProxy("unknown", "/")
	require.NoError(t, err)
	require.Nil(t, proxy)
}

func TestNewBindsFactoryToConnection(t *testing.T) {
	// A *busFactory never dials the bus itself; wiring a nil *dbus.Conn
	// is representative of construction order (conn is supplied once
	// at startup, proxies are created lazily afterward).
	f := New(nil)
	_, ok := f.(*busFactory)
	require.True(t, ok)
}

func TestMockDHCPProxyKeyedByInterfaceName(t *testing.T) {
	m := NewMock()
	fixtureWlan0 := &fakeDHCPProxy{}
	m.DHCPProxies["wlan0"] = fixtureWlan0

	proxy, err := m.CreateDHCPProxy("wlan0")
	require.NoError(t, err)
	require.Same(t, fixtureWlan0, proxy)
}

type fakeDHCPProxy struct{}

func (f *fakeDHCPProxy) Rebind() error  { return nil }
func (f *fakeDHCPProxy) Release() error { return nil }
func (f *fakeDHCPProxy) Close() error   { return nil }
