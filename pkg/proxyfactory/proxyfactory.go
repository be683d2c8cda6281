// Package proxyfactory implements the ProxyFactory of spec.md section 4.8: a
// virtual factory with one Create<X>Proxy method per remote-object kind.
// The production Factory is the only component that touches the system
// D-Bus connection handle; every other component receives only the
// abstract proxy interface, which tests substitute with a mock
// implementation of Factory. Proxy surfaces and naming are grounded on the
// original implementation's proxy_factory.h/.cc; the D-Bus call idiom
// (BusObject.Call/Store) is grounded on the dbus-backed notification
// backend exercised by the example pack's canonical-snapd repository.
package proxyfactory

import "github.com/godbus/dbus/v5"

// ModemManagerProxy talks to a single ModemManager instance on the bus.
type ModemManagerProxy interface {
	EnumerateDevices() ([]string, error)
	Close() error
}

// ModemProxy talks to a single modem object exposed by ModemManager.
type ModemProxy interface {
	Path() string
	GetModemInfo() (map[string]dbus.Variant, error)
	Close() error
}

// SupplicantProcessProxy talks to the wpa_supplicant root object.
type SupplicantProcessProxy interface {
	CreateInterface(ifname string) (string, error)
	RemoveInterface(path dbus.ObjectPath) error
	Close() error
}

// SupplicantInterfaceProxy talks to a single wpa_supplicant interface object.
type SupplicantInterfaceProxy interface {
	Scan() error
	SelectNetwork(networkPath dbus.ObjectPath) error
	Disconnect() error
	Close() error
}

// DHCPProxy talks to the DHCP client servicing a single interface.
type DHCPProxy interface {
	Rebind() error
	Release() error
	Close() error
}

// Factory creates every proxy kind Device/Manager components need. The
// production implementation is the only component holding the underlying
// *dbus.Conn; it is constructed once by the daemon entrypoint and threaded
// through by reference. Tests inject their own Factory implementation
// rather than mocking the bus connection.
type Factory interface {
	CreateModemManagerProxy(serviceName string, objectPath dbus.ObjectPath) (ModemManagerProxy, error)
	CreateModemProxy(serviceName string, objectPath dbus.ObjectPath) (ModemProxy, error)
	CreateSupplicantProcessProxy() (SupplicantProcessProxy, error)
	CreateSupplicantInterfaceProxy(objectPath dbus.ObjectPath) (SupplicantInterfaceProxy, error)
	CreateDHCPProxy(interfaceName string) (DHCPProxy, error)
}

const (
	supplicantService = "fi.w1.wpa_supplicant1"
	supplicantPath    = dbus.ObjectPath("/fi/w1/wpa_supplicant1")
	dhcpcdService     = "org.chromium.dhcpcd"
)

// busFactory is the production Factory; it owns the system bus connection.
type busFactory struct {
	conn *dbus.Conn
}

// New creates a Factory bound to conn. conn is the only handle any proxy
// created by this Factory will ever touch.
func New(conn *dbus.Conn) Factory {
	return &busFactory{conn: conn}
}

func (f *busFactory) CreateModemManagerProxy(serviceName string, objectPath dbus.ObjectPath) (ModemManagerProxy, error) {
	return &modemManagerProxy{obj: f.conn.Object(serviceName, objectPath)}, nil
}

func (f *busFactory) CreateModemProxy(serviceName string, objectPath dbus.ObjectPath) (ModemProxy, error) {
	return &modemProxy{obj: f.conn.Object(serviceName, objectPath), path: objectPath}, nil
}

func (f *busFactory) CreateSupplicantProcessProxy() (SupplicantProcessProxy, error) {
	return &supplicantProcessProxy{obj: f.conn.Object(supplicantService, supplicantPath)}, nil
}

func (f *busFactory) CreateSupplicantInterfaceProxy(objectPath dbus.ObjectPath) (SupplicantInterfaceProxy, error) {
	return &supplicantInterfaceProxy{obj: f.conn.Object(supplicantService, objectPath)}, nil
}

func (f *busFactory) CreateDHCPProxy(interfaceName string) (DHCPProxy, error) {
	path := dbus.ObjectPath("/org/chromium/dhcpcd/" + interfaceName)
	return &dhcpProxy{obj: f.conn.Object(dhcpcdService, path)}, nil
}
