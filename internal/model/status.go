package model

import "strconv"

// Status classifies the outcome of a single key check.
//
// Design decision: We use iota-based constants rather than string
// constants for efficiency in comparisons and sorting. The String()
// method provides human-readable output when needed.
type Status int

const (
	// StatusActive indicates the endpoint accepted the key (HTTP 200).
	StatusActive Status = iota

	// StatusInvalid indicates the endpoint rejected the key.
	// This covers explicit auth failures (HTTP 401/403) as well as any
	// other non-200 response, which is reported verbatim in the note.
	StatusInvalid

	// StatusError indicates the request never produced an HTTP response
	// (DNS failure, connection refused, timeout). The transport error
	// text is recorded in the note.
	StatusError
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusInvalid:
		return "INVALID"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Classify maps an HTTP status code to a Status and a note string.
// The mapping is fixed:
//   - 200 is the only code treated as active
//   - 401 and 403 are authentication rejections
//   - everything else is reported verbatim as "HTTP <code>"
//
// Transport failures never reach this function; callers record them
// as StatusError with a code of zero.
func Classify(code int) (Status, string) {
	switch code {
	case 200:
		return StatusActive, "Active"
	case 401, 403:
		return StatusInvalid, "Invalid / Unauthorized"
	default:
		return StatusInvalid, "HTTP " + strconv.Itoa(code)
	}
}
