// Package shillerr implements the closed fault taxonomy used at every bus
// boundary in shillgo, along with an Error type that pairs a Status with an
// optional human-readable message.
package shillerr

// Status is a closed-enum fault code, modeled after the teacher's
// wire.Status: a small uint8 enum with a String() and an IsSuccess/IsError
// pair rather than an open set of string codes.
type Status uint8

// The full taxonomy from the specification's error-handling design.
const (
	Success Status = iota
	OperationInitiated
	AlreadyConnected
	AlreadyExists
	InternalError
	InvalidArguments
	InvalidNetworkName
	InvalidPassphrase
	InvalidProperty
	NotConnected
	NotFound
	NotImplemented
	NotOnHomeNetwork
	NotRegistered
	NotSupported
	OperationAborted
	OperationTimeout
	PassphraseRequired
	PermissionDenied
)

var statusNames = [...]string{
	"Success",
	"OperationInitiated",
	"AlreadyConnected",
	"AlreadyExists",
	"InternalError",
	"InvalidArguments",
	"InvalidNetworkName",
	"InvalidPassphrase",
	"InvalidProperty",
	"NotConnected",
	"NotFound",
	"NotImplemented",
	"NotOnHomeNetwork",
	"NotRegistered",
	"NotSupported",
	"OperationAborted",
	"OperationTimeout",
	"PassphraseRequired",
	"PermissionDenied",
}

// String returns the status name.
func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "Unknown"
}

// IsSuccess returns true if the status indicates success. OperationInitiated
// counts as success: it is the contract that an asynchronous reply follows.
func (s Status) IsSuccess() bool {
	return s == Success || s == OperationInitiated
}

// IsError returns true if the status indicates a failed operation.
func (s Status) IsError() bool {
	return !s.IsSuccess()
}
