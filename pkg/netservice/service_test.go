package netservice

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shillgo/shillgo/pkg/cryptstring"
	"github.com/shillgo/shillgo/pkg/dispatcher"
	"github.com/shillgo/shillgo/pkg/store"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	connectCalls    int
	disconnectCalls int
}

func (f *fakeDevice) Connect() error    { f.connectCalls++; return nil }
func (f *fakeDevice) Disconnect() error { f.disconnectCalls++; return nil }

func connectableService(technology string) *Service {
	s := New("wifi_aa", technology)
	s.SetDeviceRunning(true)
	s.SetCredentialsSatisfied(true)
	return s
}

func TestTechnologyReturnsConstructorValue(t *testing.T) {
	s := New("wifi_aa", "wifi")
	require.Equal(t, "wifi", s.Technology())
}

func TestConnectableRequiresDeviceAndCredentials(t *testing.T) {
	s := New("wifi_aa", "wifi")
	require.False(t, s.Connectable())
	s.SetDeviceRunning(true)
	require.False(t, s.Connectable())
	s.SetCredentialsSatisfied(true)
	require.True(t, s.Connectable())
}

func TestConnectableEmitsOnlyOnActualChange(t *testing.T) {
	s := New("wifi_aa", "wifi")
	var events []any
	s.OnPropertyChanged(func(name string, v any) {
		if name == "Connectable" {
			events = append(events, v)
		}
	})
	s.SetDeviceRunning(true)
	s.SetCredentialsSatisfied(true)
	require.Len(t, events, 1)
	require.Equal(t, true, events[0])

	// Re-asserting the same value must not emit again.
	s.SetCredentialsSatisfied(true)
	require.Len(t, events, 1)
}

func TestConnectFailsWhenNotConnectable(t *testing.T) {
	s := New("wifi_aa", "wifi")
	dev := &fakeDevice{}
	err := s.Connect("user", dev)
	require.Error(t, err)
	require.Equal(t, 0, dev.connectCalls)
}

func TestSetStateClearsFailureOnNonFailureTransition(t *testing.T) {
	s := connectableService("wifi")
	s.SetFailure(FailureBadPassphrase)
	require.Equal(t, StateFailure, s.State())
	require.Equal(t, FailureBadPassphrase, s.Failure())

	s.SetState(StateIdle)
	require.Equal(t, FailureUnknown, s.Failure())
}

func TestSetStateNoopOnSameStateEmitsNothing(t *testing.T) {
	s := connectableService("wifi")
	var emits int
	s.OnPropertyChanged(func(string, any) { emits++ })
	s.SetState(StateIdle) // already Idle
	require.Equal(t, 0, emits)
}

func TestUserInitiatedDisconnectSuppressesAutoConnectUntilResume(t *testing.T) {
	s := connectableService("wifi")
	dev := &fakeDevice{}

	require.NoError(t, s.UserInitiatedDisconnect(dev))
	ok, reason := s.IsAutoConnectable()
	require.False(t, ok)
	require.Equal(t, AutoConnExplicitDisconnect, reason)

	s.OnAfterResume()
	ok, _ = s.IsAutoConnectable()
	require.True(t, ok)
}

func TestUserInitiatedDisconnectClearedByLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	st := store.Open(path)
	require.NoError(t, st.Load())
	st.SetBool("wifi_aa", "AutoConnect", true)
	require.NoError(t, st.Flush())

	s := connectableService("wifi")
	dev := &fakeDevice{}
	require.NoError(t, s.UserInitiatedDisconnect(dev))

	require.NoError(t, s.Load(st))
	ok, _ := s.IsAutoConnectable()
	require.True(t, ok)
}

func TestIsAutoConnectableReasonsConnectedAndConnecting(t *testing.T) {
	s := connectableService("wifi")
	s.SetState(StateConnected)
	ok, reason := s.IsAutoConnectable()
	require.False(t, ok)
	require.Equal(t, AutoConnConnected, reason)

	s.SetState(StateIdle)
	s.SetState(StateAssociating)
	ok, reason = s.IsAutoConnectable()
	require.False(t, ok)
	require.Equal(t, AutoConnConnecting, reason)
}

func TestOutOfCreditsDetected(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	s := connectableService("cellular")
	s.SetClock(func() time.Time { return fixed })
	s.SetEnforceOutOfCreditsDetection(true)

	d := dispatcher.New()
	s.SetDispatcher(d)
	dev := &fakeDevice{}

	require.NoError(t, s.Connect("in test", dev))
	s.SetState(StateFailure)
	require.True(t, s.Cellular().OutOfCreditsDetectionInProgress)
	d.DispatchPendingEvents()

	s.SetState(StateConfiguring)
	s.SetState(StateIdle)
	require.True(t, s.Cellular().OutOfCreditsDetectionInProgress)
	d.DispatchPendingEvents()

	s.SetState(StateConnected)
	s.SetState(StateIdle)

	require.True(t, s.Cellular().OutOfCredits)
	require.False(t, s.Cellular().OutOfCreditsDetectionInProgress)
	require.Equal(t, 3, dev.connectCalls)
	require.Equal(t, 3, s.ConnectAttempts())
}

func TestOutOfCreditsSkippedAfterResume(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	s := connectableService("cellular")
	s.SetClock(func() time.Time { return fixed })
	s.SetEnforceOutOfCreditsDetection(true)

	d := dispatcher.New()
	s.SetDispatcher(d)
	dev := &fakeDevice{}

	s.OnAfterResume()
	require.NoError(t, s.Connect("in test", dev))
	s.SetState(StateConnected)
	s.SetState(StateIdle)

	require.False(t, s.Cellular().OutOfCredits)
	require.False(t, s.Cellular().OutOfCreditsDetectionInProgress)
	require.Equal(t, 1, dev.connectCalls)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	st := store.Open(path)
	require.NoError(t, st.Load())
	sealer, err := cryptstring.NewSealer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	st.SetSealer(sealer)

	s := connectableService("wifi")
	s.SetPolicy(Policy{AutoConnect: true, Favorite: true, Priority: 3, HasPriority: true, SaveCredentials: true})
	s.eap.Identity = "alice"
	require.NoError(t, s.Save(st))

	reloaded := New("wifi_aa", "wifi")
	require.NoError(t, reloaded.Load(st))
	require.True(t, reloaded.Policy().AutoConnect)
	require.True(t, reloaded.Policy().Favorite)
	require.Equal(t, 3, reloaded.Policy().Priority)
}

func TestSaveLoadRoundTripAllEAPFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	st := store.Open(path)
	require.NoError(t, st.Load())
	sealer, err := cryptstring.NewSealer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	st.SetSealer(sealer)

	s := connectableService("wifi")
	s.SetPolicy(Policy{SaveCredentials: true})
	s.eap = EAPCredentials{
		Identity:           "alice",
		EAP:                "PEAP",
		InnerEAP:           "MSCHAPV2",
		AnonymousIdentity:  "anon",
		ClientCert:         "client.pem",
		CertID:             "cert-1",
		PrivateKey:         "client.key",
		PrivateKeyPassword: "keypass",
		KeyID:              "key-1",
		CACert:             "ca.pem",
		CACertID:           "ca-1",
		UseSystemCAs:       true,
		PIN:                "1234",
		Password:           "hunter2",
		KeyMgmt:            "WPA-EAP",
	}
	require.NoError(t, s.Save(st))

	reloaded := New("wifi_aa", "wifi")
	require.NoError(t, reloaded.Load(st))
	require.Equal(t, s.eap, reloaded.eap)
}

func TestSaveCredentialsFalseDeletesAllEAPFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	st := store.Open(path)
	require.NoError(t, st.Load())
	sealer, err := cryptstring.NewSealer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	st.SetSealer(sealer)

	s := connectableService("wifi")
	s.SetPolicy(Policy{SaveCredentials: true})
	s.eap = EAPCredentials{Identity: "alice", Password: "hunter2", UseSystemCAs: true}
	require.NoError(t, s.Save(st))

	s.SetPolicy(Policy{SaveCredentials: false})
	require.NoError(t, s.Save(st))

	reloaded := New("wifi_aa", "wifi")
	require.NoError(t, reloaded.Load(st))
	require.Equal(t, EAPCredentials{}, reloaded.eap)
}

func TestLoadFailsWhenGroupAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	st := store.Open(path)
	require.NoError(t, st.Load())

	s := New("wifi_unknown", "wifi")
	err := s.Load(st)
	require.Error(t, err)
}

func TestSanitizeStorageIdentifier(t *testing.T) {
	require.Equal(t, "wifi_My_SSID_1", SanitizeStorageIdentifier("wifi_My SSID!1"))
}
