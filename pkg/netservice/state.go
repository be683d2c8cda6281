// Package netservice implements the Service entity of spec.md section 4.3: a
// candidate network attachment with its own connect/disconnect state
// machine, auto-connect policy, persisted credentials, and (for cellular)
// out-of-credits detection. It is grounded on the teacher's
// pkg/model.Attribute for the typed-field/dirty-tracking shape and on
// pkg/failsafe/timer.go for the detection window's callback-on-dispatcher
// idiom, generalized to the Service domain described by the original
// service.cc / cellular_service_unittest.cc reference sources.
package netservice

// State is a Service's position in its connect/disconnect state machine.
type State int

const (
	StateIdle State = iota
	StateAssociating
	StateConfiguring
	StateConnected
	StateOnline
	StatePortal
	StateFailure
	StateDisconnected
	StateUnknown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAssociating:
		return "Associating"
	case StateConfiguring:
		return "Configuring"
	case StateConnected:
		return "Connected"
	case StateOnline:
		return "Online"
	case StatePortal:
		return "Portal"
	case StateFailure:
		return "Failure"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// FailureReason is the reason a Service is in StateFailure.
type FailureReason int

const (
	FailureUnknown FailureReason = iota
	FailureOutOfRange
	FailurePinMissing
	FailureBadPassphrase
	FailureEAPAuthentication
	FailureDHCP
	FailureDNSLookup
	FailureConnect
	FailureOutOfCredits
	FailureSimLocked
	FailureNotRegistered
)

// String returns the failure reason name.
func (f FailureReason) String() string {
	switch f {
	case FailureOutOfRange:
		return "OutOfRange"
	case FailurePinMissing:
		return "PinMissing"
	case FailureBadPassphrase:
		return "BadPassphrase"
	case FailureEAPAuthentication:
		return "EAPAuthentication"
	case FailureDHCP:
		return "DHCPFailed"
	case FailureDNSLookup:
		return "DNSLookupFailed"
	case FailureConnect:
		return "ConnectFailed"
	case FailureOutOfCredits:
		return "OutOfCredits"
	case FailureSimLocked:
		return "SimLocked"
	case FailureNotRegistered:
		return "NotRegistered"
	default:
		return "Unknown"
	}
}

// Auto-connect reason codes, named after the original implementation's
// CellularService/Service kAutoConn* constants.
const (
	AutoConnDeviceDisabled                 = "device disabled"
	AutoConnConnected                      = "connected"
	AutoConnConnecting                     = "connecting"
	AutoConnExplicitDisconnect             = "explicitly disconnected"
	AutoConnNotConnectable                 = "not connectable"
	AutoConnOutOfCredits                   = "out of credits"
	AutoConnOutOfCreditsDetectionInProgress = "out-of-credits detection in progress"
	AutoConnActivating                      = "cellular activation in progress"
)
