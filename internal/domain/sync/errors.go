package sync

import "errors"

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

var (
	// ErrNotFound indicates a lookup miss. It is a valid resolver outcome,
	// not a failure.
	ErrNotFound = errors.New("sync: no matching remote record")
	// ErrUnsupported indicates the remote system does not implement the
	// requested lookup strategy. The resolver skips the step without a
	// network call.
	ErrUnsupported = errors.New("sync: lookup not supported by remote system")
	// ErrKindNotSupported indicates the remote system has no resource for
	// this entity kind at all.
	ErrKindNotSupported = errors.New("sync: entity kind not handled by remote system")
	// ErrInvalidIdentifier indicates a malformed national identifier.
	// No network call is made when this is returned.
	ErrInvalidIdentifier = errors.New("sync: malformed national identifier")
	// ErrAuthFailed indicates token acquisition or credential rejection.
	ErrAuthFailed = errors.New("sync: remote authentication failed")
	// ErrUnavailable indicates a timeout or network-level failure.
	ErrUnavailable = errors.New("sync: remote system unavailable")
	// ErrRemoteRejected indicates the remote system returned a non-success
	// status (duplicate key, malformed payload, ...).
	ErrRemoteRejected = errors.New("sync: remote system rejected the request")
)

// FailureClass classifies a sync failure for reporting in a SyncResult.
type FailureClass string

const (
	FailureValidation   FailureClass = "VALIDATION"
	FailureAuth         FailureClass = "AUTH"
	FailureConnectivity FailureClass = "CONNECTIVITY"
	FailureRejected     FailureClass = "REMOTE_REJECTED"
	FailureUnknown      FailureClass = "UNKNOWN"
)

// Classify maps an error produced by a resolver or adapter call to a
// FailureClass. ErrNotFound is deliberately not classified here: a miss is
// an outcome, not a failure.
func Classify(err error) FailureClass {
	switch {
	case errors.Is(err, ErrInvalidIdentifier):
		return FailureValidation
	case errors.Is(err, ErrAuthFailed):
		return FailureAuth
	case errors.Is(err, ErrUnavailable):
		return FailureConnectivity
	case errors.Is(err, ErrRemoteRejected):
		return FailureRejected
	default:
		return FailureUnknown
	}
}

// IsConnectivity returns true for timeout/network failures.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsMiss returns true when the error represents a lookup miss rather than a
// real failure. The resolver cascade falls through on misses.
func IsMiss(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnsupported)
}
