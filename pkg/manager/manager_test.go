package manager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shillgo/shillgo/pkg/device"
	"github.com/shillgo/shillgo/pkg/dispatcher"
	"github.com/shillgo/shillgo/pkg/netservice"
	"github.com/shillgo/shillgo/pkg/portal"
	"github.com/shillgo/shillgo/pkg/profile"
	"github.com/shillgo/shillgo/pkg/store"
)

type fakeCapability struct {
	connectCalls, disconnectCalls int
}

func (f *fakeCapability) Start() error { return nil }
func (f *fakeCapability) Stop() error  { return nil }
func (f *fakeCapability) Connect(svc *netservice.Service) error {
	f.connectCalls++
	return nil
}
func (f *fakeCapability) Disconnect(svc *netservice.Service) error {
	f.disconnectCalls++
	return nil
}

func newManager() *Manager {
	disp := dispatcher.New()
	det := portal.New(disp, nil)
	return New(disp, det, "http://example.invalid/generate_204")
}

func TestRegisterAndLookupDevice(t *testing.T) {
	m := newManager()
	d := device.New("wlan0", "wifi", &fakeCapability{}, m)
	m.RegisterDevice(d)

	got, ok := m.Device("wlan0")
	require.True(t, ok)
	require.Same(t, d, got)
	require.Len(t, m.Devices(), 1)
}

func TestRegisterDeviceIsIdempotent(t *testing.T) {
	m := newManager()
	d := device.New("wlan0", "wifi", &fakeCapability{}, m)
	m.RegisterDevice(d)
	m.RegisterDevice(d)
	require.Len(t, m.Devices(), 1)
}

func TestDeregisterDeviceRemovesIt(t *testing.T) {
	m := newManager()
	d := device.New("wlan0", "wifi", &fakeCapability{}, m)
	m.RegisterDevice(d)
	m.DeregisterDevice("wlan0")
	_, ok := m.Device("wlan0")
	require.False(t, ok)
}

func TestElectsBestServiceAcrossTechnologiesByOrder(t *testing.T) {
	m := newManager()

	wifiCap := &fakeCapability{}
	wifiDev := device.New("wlan0", "wifi", wifiCap, m)
	m.RegisterDevice(wifiDev)

	ethCap := &fakeCapability{}
	ethDev := device.New("eth0", "ethernet", ethCap, m)
	m.RegisterDevice(ethDev)

	wifiSvc := netservice.New("wifi_net", "wifi")
	wifiSvc.SetDeviceRunning(true)
	wifiSvc.SetCredentialsSatisfied(true)
	m.RegisterService(wifiSvc)
	require.NoError(t, m.ConnectService(wifiDev, wifiSvc, "test"))
	wifiSvc.SetState(netservice.StateOnline)

	ethSvc := netservice.New("eth_net", "ethernet")
	ethSvc.SetDeviceRunning(true)
	ethSvc.SetCredentialsSatisfied(true)
	m.RegisterService(ethSvc)
	require.NoError(t, m.ConnectService(ethDev, ethSvc, "test"))
	ethSvc.SetState(netservice.StateOnline)

	m.RunPolicy()

	// default_technology_order is vpn,ethernet,wifi,wimax,cellular: ethernet
	// outranks wifi even though both are equally Online.
	require.Same(t, ethSvc, m.DefaultService())
}

func TestElectionPrefersHigherStateRankWithinTechnology(t *testing.T) {
	m := newManager()

	cap1 := &fakeCapability{}
	dev1 := device.New("wlan0", "wifi", cap1, m)
	m.RegisterDevice(dev1)
	cap2 := &fakeCapability{}
	dev2 := device.New("wlan1", "wifi", cap2, m)
	m.RegisterDevice(dev2)

	svcIdle := netservice.New("idle_net", "wifi")
	svcIdle.SetDeviceRunning(true)
	svcIdle.SetCredentialsSatisfied(true)
	m.RegisterService(svcIdle)
	require.NoError(t, m.ConnectService(dev1, svcIdle, "test"))

	svcOnline := netservice.New("online_net", "wifi")
	svcOnline.SetDeviceRunning(true)
	svcOnline.SetCredentialsSatisfied(true)
	m.RegisterService(svcOnline)
	require.NoError(t, m.ConnectService(dev2, svcOnline, "test"))
	svcOnline.SetState(netservice.StateOnline)

	m.RunPolicy()
	require.Same(t, svcOnline, m.DefaultService())
}

func TestDefaultServiceChangeCallbackFiresOnlyOnChange(t *testing.T) {
	m := newManager()
	var calls int
	m.OnDefaultServiceChanged(func(old, next *netservice.Service) { calls++ })

	cap1 := &fakeCapability{}
	dev1 := device.New("wlan0", "wifi", cap1, m)
	m.RegisterDevice(dev1)

	svc := netservice.New("net1", "wifi")
	svc.SetDeviceRunning(true)
	svc.SetCredentialsSatisfied(true)
	m.RegisterService(svc)
	require.NoError(t, m.ConnectService(dev1, svc, "test"))
	svc.SetState(netservice.StateOnline)

	m.RunPolicy()
	require.Equal(t, 1, calls)

	m.RunPolicy()
	require.Equal(t, 1, calls)
}

func TestClaimInterfaceAddsToBlackList(t *testing.T) {
	m := newManager()
	require.NoError(t, m.ClaimInterface("org.example.Peer", "wlan0"))
	require.True(t, m.IsDeviceBlackListed("wlan0"))
}

func TestReleaseInterfaceRemovesFromBlackList(t *testing.T) {
	m := newManager()
	require.NoError(t, m.ClaimInterface("org.example.Peer", "wlan0"))
	require.NoError(t, m.ReleaseInterface("org.example.Peer", "wlan0"))
	require.False(t, m.IsDeviceBlackListed("wlan0"))
}

func TestReleaseInterfaceFailsForUnknownPeer(t *testing.T) {
	m := newManager()
	err := m.ReleaseInterface("org.example.Unknown", "wlan0")
	require.Error(t, err)
}

func TestOnPeerVanishedReleasesAllClaims(t *testing.T) {
	m := newManager()
	require.NoError(t, m.ClaimInterface("org.example.Peer", "wlan0"))
	require.NoError(t, m.ClaimInterface("org.example.Peer", "wwan0"))

	m.OnPeerVanished("org.example.Peer")

	require.False(t, m.IsDeviceBlackListed("wlan0"))
	require.False(t, m.IsDeviceBlackListed("wwan0"))
}

func TestPushProfileAndActiveProfile(t *testing.T) {
	m := newManager()
	require.Nil(t, m.ActiveProfile())

	p := profile.New("default", store.Open(filepath.Join(t.TempDir(), "store.json")))
	m.PushProfile(p)
	require.Same(t, p, m.ActiveProfile())
}

func TestRunPolicyExcludesBlackListedDeviceFromElection(t *testing.T) {
	m := newManager()

	claimedCap := &fakeCapability{}
	claimedDev := device.New("wwan0", "cellular", claimedCap, m)
	m.RegisterDevice(claimedDev)

	freeCap := &fakeCapability{}
	freeDev := device.New("eth0", "ethernet", freeCap, m)
	m.RegisterDevice(freeDev)

	claimedSvc := netservice.New("cellular_net", "cellular")
	claimedSvc.SetDeviceRunning(true)
	claimedSvc.SetCredentialsSatisfied(true)
	m.RegisterService(claimedSvc)
	require.NoError(t, m.ConnectService(claimedDev, claimedSvc, "test"))
	claimedSvc.SetState(netservice.StateOnline)

	freeSvc := netservice.New("eth_net", "ethernet")
	freeSvc.SetDeviceRunning(true)
	freeSvc.SetCredentialsSatisfied(true)
	m.RegisterService(freeSvc)
	require.NoError(t, m.ConnectService(freeDev, freeSvc, "test"))
	freeSvc.SetState(netservice.StateIdle)

	require.NoError(t, m.ClaimInterface("org.example.Peer", "wwan0"))

	m.RunPolicy()

	// cellular_net outranks eth_net by state (Online > Idle) and ethernet
	// outranks cellular in default_technology_order, but wwan0 is claimed
	// by a peer, so its Service must be excluded from election entirely,
	// leaving eth_net (Idle) as the only elected default.
	require.Same(t, freeSvc, m.DefaultService())
}

func TestRemoveServiceDeletesRecordAndDeregisters(t *testing.T) {
	m := newManager()

	path := filepath.Join(t.TempDir(), "store.json")
	backing := store.Open(path)
	require.NoError(t, backing.Load())
	p := profile.New("default", backing)
	m.PushProfile(p)

	svc := netservice.New("wifi_aa", "wifi")
	require.NoError(t, p.AdoptService(svc))
	m.RegisterService(svc)

	require.NoError(t, m.RemoveService("wifi_aa"))

	_, ok := m.Service("wifi_aa")
	require.False(t, ok)
	require.False(t, p.ContainsEntry("wifi_aa"))
}

func TestRemoveServiceFailsForUnknownService(t *testing.T) {
	m := newManager()
	err := m.RemoveService("no_such_service")
	require.Error(t, err)
}

func TestMoveServiceBeforeRaisesPriorityAboveOther(t *testing.T) {
	m := newManager()

	cap1 := &fakeCapability{}
	dev1 := device.New("wlan0", "wifi", cap1, m)
	m.RegisterDevice(dev1)
	cap2 := &fakeCapability{}
	dev2 := device.New("wlan1", "wifi", cap2, m)
	m.RegisterDevice(dev2)

	low := netservice.New("low_net", "wifi")
	low.SetDeviceRunning(true)
	low.SetCredentialsSatisfied(true)
	m.RegisterService(low)
	require.NoError(t, m.ConnectService(dev1, low, "test"))
	low.SetState(netservice.StateOnline)

	high := netservice.New("high_net", "wifi")
	high.SetDeviceRunning(true)
	high.SetCredentialsSatisfied(true)
	m.RegisterService(high)
	require.NoError(t, m.ConnectService(dev2, high, "test"))
	high.SetState(netservice.StateOnline)

	// Both are equally Online, so registration order (low first) currently
	// elects low_net as default.
	m.RunPolicy()
	require.Same(t, low, m.DefaultService())

	require.NoError(t, m.MoveServiceBefore(high.StorageIdentifier(), low.StorageIdentifier()))
	require.Same(t, high, m.DefaultService())
}

func TestMoveServiceBeforeFailsForUnknownService(t *testing.T) {
	m := newManager()
	svc := netservice.New("wifi_aa", "wifi")
	m.RegisterService(svc)
	require.Error(t, m.MoveServiceBefore("no_such_service", svc.StorageIdentifier()))
	require.Error(t, m.MoveServiceBefore(svc.StorageIdentifier(), "no_such_service"))
}

type fakeCellularCapability struct {
	fakeCapability
	activateCalls int
}

func (f *fakeCellularCapability) ActivateCellularModem() error {
	f.activateCalls++
	return nil
}

func TestActivateCellularModemDelegatesToDevice(t *testing.T) {
	m := newManager()
	cap := &fakeCellularCapability{}
	dev := device.New("wwan0", "cellular", cap, m)
	m.RegisterDevice(dev)

	require.NoError(t, m.ActivateCellularModem("wwan0"))
	require.Equal(t, 1, cap.activateCalls)
}

func TestActivateCellularModemFailsForUnknownDevice(t *testing.T) {
	m := newManager()
	require.Error(t, m.ActivateCellularModem("wwan0"))
}

func TestConnectResolvesDeviceByTechnologyAndConnects(t *testing.T) {
	m := newManager()
	cap := &fakeCapability{}
	dev := device.New("wlan0", "wifi", cap, m)
	m.RegisterDevice(dev)

	svc := netservice.New("wifi_aa", "wifi")
	svc.SetDeviceRunning(true)
	svc.SetCredentialsSatisfied(true)
	m.RegisterService(svc)

	require.NoError(t, m.Connect(svc.StorageIdentifier(), "user-requested"))
	require.Equal(t, 1, cap.connectCalls)
}

func TestConnectFailsWhenNoDeviceOfTechnology(t *testing.T) {
	m := newManager()
	svc := netservice.New("wifi_aa", "wifi")
	m.RegisterService(svc)
	require.Error(t, m.Connect(svc.StorageIdentifier(), "user-requested"))
}

func TestDisconnectResolvesDeviceAndDisconnects(t *testing.T) {
	m := newManager()
	cap := &fakeCapability{}
	dev := device.New("wlan0", "wifi", cap, m)
	m.RegisterDevice(dev)

	svc := netservice.New("wifi_aa", "wifi")
	svc.SetDeviceRunning(true)
	svc.SetCredentialsSatisfied(true)
	m.RegisterService(svc)
	require.NoError(t, m.Connect(svc.StorageIdentifier(), "test"))

	require.NoError(t, m.Disconnect(svc.StorageIdentifier()))
	require.Equal(t, 1, cap.disconnectCalls)
}

func TestActivateCellularModemForServiceResolvesDevice(t *testing.T) {
	m := newManager()
	cap := &fakeCellularCapability{}
	dev := device.New("wwan0", "cellular", cap, m)
	m.RegisterDevice(dev)

	svc := netservice.New("cellular_aa", "cellular")
	m.RegisterService(svc)

	require.NoError(t, m.ActivateCellularModemForService(svc.StorageIdentifier()))
	require.Equal(t, 1, cap.activateCalls)
}
