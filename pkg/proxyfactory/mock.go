package proxyfactory

import "github.com/godbus/dbus/v5"

// Mock is an in-memory Factory for tests, per spec.md section 4.8's "tests
// inject a mock factory". Each Create call returns the fixture registered
// under its lookup argument (service name, object path or interface name;
// CreateSupplicantProcessProxy returns the SupplicantProcess field), or nil
// if none was registered.
type Mock struct {
	ModemManagerProxies map[string]ModemManagerProxy
	ModemProxies         map[dbus.ObjectPath]ModemProxy
	SupplicantProcess    SupplicantProcessProxy
	SupplicantInterfaces map[dbus.ObjectPath]SupplicantInterfaceProxy
	DHCPProxies          map[string]DHCPProxy
}

// NewMock creates an empty Mock factory.
func NewMock() *Mock {
	return &Mock{
		ModemManagerProxies:  make(map[string]ModemManagerProxy),
		ModemProxies:         make(map[dbus.ObjectPath]ModemProxy),
		SupplicantInterfaces: make(map[dbus.ObjectPath]SupplicantInterfaceProxy),
		DHCPProxies:          make(map[string]DHCPProxy),
	}
}

func (m *Mock) CreateModemManagerProxy(serviceName string, objectPath dbus.ObjectPath) (ModemManagerProxy, error) {
	return m.ModemManagerProxies[serviceName], nil
}

func (m *Mock) CreateModemProxy(serviceName string, objectPath dbus.ObjectPath) (ModemProxy, error) {
	return m.ModemProxies[objectPath], nil
}

func (m *Mock) CreateSupplicantProcessProxy() (SupplicantProcessProxy, error) {
	return m.SupplicantProcess, nil
}

func (m *Mock) CreateSupplicantInterfaceProxy(objectPath dbus.ObjectPath) (SupplicantInterfaceProxy, error) {
	return m.SupplicantInterfaces[objectPath], nil
}

func (m *Mock) CreateDHCPProxy(interfaceName string) (DHCPProxy, error) {
	return m.DHCPProxies[interfaceName], nil
}
