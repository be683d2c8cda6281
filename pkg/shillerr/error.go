package shillerr

// Error is the propagation type used at bus boundaries: at most one Status,
// with an optional message for the human-readable reason (spec.md section 7).
type Error struct {
	Status  Status
	Message string
}

// New creates an Error with the given status and message.
func New(status Status, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Error implements the standard error interface so an *Error composes with
// errors.Is / fmt.Errorf like any other Go error.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return e.Status.String()
	}
	return e.Status.String() + ": " + e.Message
}

// Is reports whether target is an *Error with the same Status, so callers
// can write errors.Is(err, shillerr.New(shillerr.NotFound, "")).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Status == other.Status
}
