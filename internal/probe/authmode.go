package probe

import (
	"errors"
	"fmt"
)

// AuthMode selects where the API key is placed in the request.
type AuthMode int

const (
	// AuthQuery appends the key to the URL query string as "key=<key>".
	// This is how Google-style API endpoints expect the credential.
	AuthQuery AuthMode = iota

	// AuthBearer sends the key as "Authorization: Bearer <key>".
	AuthBearer

	// AuthHeader sends the key in a custom header whose name is
	// configured separately (default "x-goog-api-key").
	AuthHeader
)

// ErrUnknownAuthMode is returned when an auth mode string is not recognized.
var ErrUnknownAuthMode = errors.New("unknown auth mode: must be query, bearer, or header")

// String returns the canonical name of the auth mode.
func (m AuthMode) String() string {
	switch m {
	case AuthQuery:
		return "query"
	case AuthBearer:
		return "bearer"
	case AuthHeader:
		return "header"
	default:
		return "unknown"
	}
}

// ParseAuthMode converts an auth mode string to an AuthMode.
// The legacy aliases "query_key" and "api_key_header" are accepted for
// compatibility with older configurations.
func ParseAuthMode(s string) (AuthMode, error) {
	switch s {
	case "query", "query_key":
		return AuthQuery, nil
	case "bearer":
		return AuthBearer, nil
	case "header", "api_key_header":
		return AuthHeader, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAuthMode, s)
	}
}
