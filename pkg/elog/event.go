package elog

import "time"

// Category classifies an Event for filtering and for the slog adapter's
// attribute shape.
type Category uint8

const (
	// CategoryStateChange records a Service or Device state transition.
	CategoryStateChange Category = iota
	// CategoryBusCall records an inbound bus method invocation.
	CategoryBusCall
	// CategoryBusSignal records an outbound property-changed / signal emission.
	CategoryBusSignal
	// CategoryDeviceEvent records a link/driver-level Device event.
	CategoryDeviceEvent
	// CategoryPortalProbe records a PortalDetector attempt result.
	CategoryPortalProbe
	// CategoryError records a fault surfaced to the bus boundary.
	CategoryError
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryStateChange:
		return "state_change"
	case CategoryBusCall:
		return "bus_call"
	case CategoryBusSignal:
		return "bus_signal"
	case CategoryDeviceEvent:
		return "device_event"
	case CategoryPortalProbe:
		return "portal_probe"
	case CategoryError:
		return "error"
	default:
		return "unknown"
	}
}

// StateChange describes a Service or Device state transition.
type StateChange struct {
	Entity   string `cbor:"1,keyasint" json:"entity"` // e.g. "service:wifi_aa_managed_psk"
	OldState string `cbor:"2,keyasint" json:"old_state"`
	NewState string `cbor:"3,keyasint" json:"new_state"`
	Reason   string `cbor:"4,keyasint,omitempty" json:"reason,omitempty"`
}

// BusCall describes an inbound bus method invocation.
type BusCall struct {
	Object string `cbor:"1,keyasint" json:"object"`
	Method string `cbor:"2,keyasint" json:"method"`
}

// BusSignal describes an outbound property-changed emission.
type BusSignal struct {
	Object   string `cbor:"1,keyasint" json:"object"`
	Property string `cbor:"2,keyasint" json:"property"`
}

// DeviceEvent describes a link-level or driver-level Device event.
type DeviceEvent struct {
	Device string `cbor:"1,keyasint" json:"device"`
	Kind   string `cbor:"2,keyasint" json:"kind"`
}

// PortalProbe describes a single PortalDetector attempt result.
type PortalProbe struct {
	Attempt int    `cbor:"1,keyasint" json:"attempt"`
	Phase   string `cbor:"2,keyasint" json:"phase"`
	Status  string `cbor:"3,keyasint" json:"status"`
	Final   bool   `cbor:"4,keyasint" json:"final"`
}

// ErrorInfo describes a fault surfaced to the bus boundary.
type ErrorInfo struct {
	Status  string `cbor:"1,keyasint" json:"status"`
	Message string `cbor:"2,keyasint,omitempty" json:"message,omitempty"`
}

// Event is a single structured log entry. Exactly one of the typed payload
// fields is populated, selected by Category.
type Event struct {
	Time     time.Time    `cbor:"1,keyasint" json:"time"`
	Category Category     `cbor:"2,keyasint" json:"category"`
	State    *StateChange `cbor:"3,keyasint,omitempty" json:"state,omitempty"`
	Call     *BusCall     `cbor:"4,keyasint,omitempty" json:"call,omitempty"`
	Signal   *BusSignal   `cbor:"5,keyasint,omitempty" json:"signal,omitempty"`
	Device   *DeviceEvent `cbor:"6,keyasint,omitempty" json:"device,omitempty"`
	Portal   *PortalProbe `cbor:"7,keyasint,omitempty" json:"portal,omitempty"`
	Err      *ErrorInfo   `cbor:"8,keyasint,omitempty" json:"err,omitempty"`
}
