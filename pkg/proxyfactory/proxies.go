package proxyfactory

import "github.com/godbus/dbus/v5"

const (
	mmInterface          = "org.freedesktop.ModemManager1"
	mmInterfaceClassic   = "org.freedesktop.ModemManager"
	supplicantInterface  = "fi.w1.wpa_supplicant1"
	supplicantIfaceIface = "fi.w1.wpa_supplicant1.Interface"
	dhcpcdInterface      = "org.chromium.dhcpcd"
)

type modemManagerProxy struct {
	obj dbus.BusObject
}

func (p *modemManagerProxy) EnumerateDevices() ([]string, error) {
	var paths []dbus.ObjectPath
	if err := p.obj.Call(mmInterfaceClassic+".EnumerateDevices", 0).Store(&paths); err != nil {
		return nil, err
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = string(p)
	}
	return out, nil
}

func (p *modemManagerProxy) Close() error { return nil }

type modemProxy struct {
	obj  dbus.BusObject
	path dbus.ObjectPath
}

func (p *modemProxy) Path() string { return string(p.path) }

func (p *modemProxy) GetModemInfo() (map[string]dbus.Variant, error) {
	var info map[string]dbus.Variant
	call := p.obj.Call("org.freedesktop.DBus.Properties.GetAll", 0, mmInterface+".Modem")
	if err := call.Store(&info); err != nil {
		return nil, err
	}
	return info, nil
}

func (p *modemProxy) Close() error { return nil }

type supplicantProcessProxy struct {
	obj dbus.BusObject
}

func (p *supplicantProcessProxy) CreateInterface(ifname string) (string, error) {
	args := map[string]dbus.Variant{"Ifname": dbus.MakeVariant(ifname)}
	var path dbus.ObjectPath
	if err := p.obj.Call(supplicantInterface+".CreateInterface", 0, args).Store(&path); err != nil {
		return "", err
	}
	return string(path), nil
}

func (p *supplicantProcessProxy) RemoveInterface(path dbus.ObjectPath) error {
	return p.obj.Call(supplicantInterface+".RemoveInterface", 0, path).Err
}

func (p *supplicantProcessProxy) Close() error { return nil }

type supplicantInterfaceProxy struct {
	obj dbus.BusObject
}

func (p *supplicantInterfaceProxy) Scan() error {
	args := map[string]dbus.Variant{"Type": dbus.MakeVariant("active")}
	return p.obj.Call(supplicantIfaceIface+".Scan", 0, args).Err
}

func (p *supplicantInterfaceProxy) SelectNetwork(networkPath dbus.ObjectPath) error {
	return p.obj.Call(supplicantIfaceIface+".SelectNetwork", 0, networkPath).Err
}

func (p *supplicantInterfaceProxy) Disconnect() error {
	return p.obj.Call(supplicantIfaceIface+".Disconnect", 0).Err
}

func (p *supplicantInterfaceProxy) Close() error { return nil }

type dhcpProxy struct {
	obj dbus.BusObject
}

func (p *dhcpProxy) Rebind() error {
	return p.obj.Call(dhcpcdInterface+".Rebind", 0).Err
}

func (p *dhcpProxy) Release() error {
	return p.obj.Call(dhcpcdInterface+".Release", 0).Err
}

func (p *dhcpProxy) Close() error { return nil }
