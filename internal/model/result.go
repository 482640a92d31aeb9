package model

import "time"

// KeyResult records the outcome of checking a single API key.
// Exactly one KeyResult exists per input key, and Index preserves the
// 1-based position of the key in the input file.
type KeyResult struct {
	// Index is the 1-based position of the key in the input file.
	Index int `json:"index"`

	// Key is the raw key. It is excluded from every serialized form;
	// the only place a raw key is ever written is the active-keys file.
	Key string `json:"-"`

	// Masked is the redacted display form of the key (see MaskKey).
	Masked string `json:"masked"`

	// Fingerprint is the hex SHA3-256 digest of the key. It lets runs
	// be correlated in the history database without storing key
	// material.
	Fingerprint string `json:"fingerprint,omitempty"`

	// StatusCode is the HTTP status code of the response, or zero when
	// the request failed before producing a response.
	StatusCode int `json:"status_code"`

	// Status is the classification of the outcome.
	Status Status `json:"status"`

	// Note is the human-readable outcome: "Active",
	// "Invalid / Unauthorized", "HTTP <code>", or "Error: <err>".
	Note string `json:"note"`

	// OK reports whether the key is active (HTTP 200).
	OK bool `json:"ok"`

	// Latency is the wall-clock duration of the request.
	Latency time.Duration `json:"latency_ms"`

	// BodyPreview holds up to the first 1000 bytes of the response
	// body, with "..." appended when truncated. Used by the debug log.
	BodyPreview string `json:"-"`
}

// maskShort is the visible prefix/suffix length for keys of 10
// characters or fewer; maskLong applies to everything longer.
const (
	maskShort = 2
	maskLong  = 4
)

// MaskKey redacts a key for display. Short keys (length <= 10) keep
// the first and last 2 characters; longer keys keep the first and
// last 4. The middle is replaced with "...". Keys too short to mask
// meaningfully are returned as "...".
func MaskKey(key string) string {
	n := maskLong
	if len(key) <= 10 {
		n = maskShort
	}
	if len(key) <= n*2 {
		return "..."
	}
	return key[:n] + "..." + key[len(key)-n:]
}
