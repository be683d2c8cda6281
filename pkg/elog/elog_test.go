package elog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCBORRoundTrip(t *testing.T) {
	ev := Event{
		Time:     time.Now().Truncate(time.Second),
		Category: CategoryStateChange,
		State: &StateChange{
			Entity:   "service:wifi_aa",
			OldState: "Associating",
			NewState: "Configuring",
		},
	}

	data, err := EncodeEvent(ev)
	require.NoError(t, err)

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)
	require.Equal(t, ev.Category, decoded.Category)
	require.Equal(t, ev.State.Entity, decoded.State.Entity)
	require.True(t, ev.Time.Equal(decoded.Time))
}

func TestFileLoggerReaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.cbor")

	fl, err := NewFileLogger(path)
	require.NoError(t, err)

	fl.Log(Event{Category: CategoryDeviceEvent, Device: &DeviceEvent{Device: "wlan0", Kind: "link_up"}})
	fl.Log(Event{Category: CategoryPortalProbe, Portal: &PortalProbe{Attempt: 1, Phase: "Content", Status: "Success", Final: true}})
	require.NoError(t, fl.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	events, err := r.All()
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "wlan0", events[0].Device.Device)
	require.True(t, events[1].Portal.Final)
}

func TestFileLoggerIgnoresAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.cbor")
	fl, err := NewFileLogger(path)
	require.NoError(t, err)
	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close())
	require.NotPanics(t, func() { fl.Log(Event{Category: CategoryError}) })
}

func TestMultiLoggerFansOut(t *testing.T) {
	var a, b int
	countingA := loggerFunc(func(Event) { a++ })
	countingB := loggerFunc(func(Event) { b++ })
	m := NewMultiLogger(countingA, countingB)
	m.Log(Event{})
	require.Equal(t, 1, a)
	require.Equal(t, 1, b)
}

type loggerFunc func(Event)

func (f loggerFunc) Log(e Event) { f(e) }
