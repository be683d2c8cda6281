package profile

import (
	"path/filepath"
	"testing"

	"github.com/shillgo/shillgo/pkg/netservice"
	"github.com/shillgo/shillgo/pkg/store"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	st := store.Open(path)
	require.NoError(t, st.Load())
	return st
}

func TestAdoptServiceWritesRecordAndClaimsOwnership(t *testing.T) {
	p := New("default", openStore(t))
	svc := netservice.New("wifi_aa", "wifi")

	require.NoError(t, p.AdoptService(svc))
	require.Equal(t, "default", svc.OwningProfile())
	require.True(t, p.ContainsEntry("wifi_aa"))
}

func TestAdoptServiceFailsWhenOwnedByAnotherProfile(t *testing.T) {
	st := openStore(t)
	p1 := New("default", st)
	p2 := New("home", st)
	svc := netservice.New("wifi_aa", "wifi")

	require.NoError(t, p1.AdoptService(svc))
	err := p2.AdoptService(svc)
	require.Error(t, err)
}

func TestAbandonServiceDeletesRecordAndClearsOwnership(t *testing.T) {
	p := New("default", openStore(t))
	svc := netservice.New("wifi_aa", "wifi")

	require.NoError(t, p.AdoptService(svc))
	require.NoError(t, p.AbandonService(svc))
	require.Equal(t, "", svc.OwningProfile())
	require.False(t, p.ContainsEntry("wifi_aa"))
}

func TestAbandonServiceNoopWhenNotOwner(t *testing.T) {
	p := New("default", openStore(t))
	svc := netservice.New("wifi_aa", "wifi")
	// never adopted
	require.NoError(t, p.AbandonService(svc))
}

func TestLoadServiceDoesNotClaimOwnership(t *testing.T) {
	st := openStore(t)
	owner := New("default", st)
	viewer := New("upper", st)
	svc := netservice.New("wifi_aa", "wifi")
	require.NoError(t, owner.AdoptService(svc))

	other := netservice.New("wifi_aa", "wifi")
	require.NoError(t, viewer.LoadService(other))
	require.Equal(t, "", other.OwningProfile())
}

func TestConfigureServiceAppliesDefaultsOnlyForUnseenEntries(t *testing.T) {
	p := New("default", openStore(t))
	svc := netservice.New("wifi_aa", "wifi")

	var applied int
	p.ConfigureService(svc, func(netservice.ServiceLike) { applied++ })
	require.Equal(t, 1, applied)

	require.NoError(t, p.AdoptService(svc))
	again := netservice.New("wifi_aa", "wifi")
	p.ConfigureService(again, func(netservice.ServiceLike) { applied++ })
	require.Equal(t, 1, applied, "an existing entry must not receive defaults again")
}

func TestDeleteEntryFailsWithNotFoundWhenAbsent(t *testing.T) {
	p := New("default", openStore(t))
	err := p.DeleteEntry("does_not_exist")
	require.Error(t, err)
}

func TestDeleteEntryRemovesExistingRecord(t *testing.T) {
	p := New("default", openStore(t))
	svc := netservice.New("wifi_aa", "wifi")
	require.NoError(t, p.AdoptService(svc))

	require.NoError(t, p.DeleteEntry("wifi_aa"))
	require.False(t, p.ContainsEntry("wifi_aa"))
}
