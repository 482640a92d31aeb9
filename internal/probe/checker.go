package probe

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nao1215/keyvet/internal/model"
	"golang.org/x/crypto/sha3"
)

// previewLimit is how many bytes of the response body are kept for the
// debug log. Longer bodies are truncated with "..." appended.
const previewLimit = 1000

// Checker validates API keys against a single HTTP endpoint.
// It issues exactly one GET per key and classifies the response.
//
// Design decision: We use a struct with the http.Client rather than
// passing the client on each call because:
//  1. Client configuration (proxy, timeout) should be consistent
//  2. Connection pooling works better with a shared client
//  3. Easier to test with mock transport
type Checker struct {
	// client is the HTTP client, possibly routed through a SOCKS5 proxy.
	client *http.Client

	// endpoint is the URL every key is checked against.
	endpoint string

	// authMode selects where the key is placed in the request.
	authMode AuthMode

	// keyName is the header name used in AuthHeader mode.
	keyName string

	// headers are extra headers sent with every request.
	headers map[string]string

	// userAgent is the User-Agent header to use for requests.
	userAgent string

	// maxBodySize limits the response body size to prevent memory exhaustion.
	maxBodySize int64
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithAuthMode sets where the key is placed in the request.
func WithAuthMode(mode AuthMode) CheckerOption {
	return func(c *Checker) {
		c.authMode = mode
	}
}

// WithKeyName sets the header name used in AuthHeader mode.
func WithKeyName(name string) CheckerOption {
	return func(c *Checker) {
		c.keyName = name
	}
}

// WithHeaders sets extra headers sent with every request.
func WithHeaders(headers map[string]string) CheckerOption {
	return func(c *Checker) {
		c.headers = headers
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) CheckerOption {
	return func(c *Checker) {
		c.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size to read.
func WithMaxBodySize(size int64) CheckerOption {
	return func(c *Checker) {
		c.maxBodySize = size
	}
}

// NewChecker creates a new key checker for the given endpoint.
// The client should be pre-configured with timeout and, when needed, a
// SOCKS5 proxy (see NewHTTPClient).
//
// Design decision: We require an external http.Client rather than
// creating one internally because:
//  1. Proxy configuration is handled by NewHTTPClient
//  2. Allows httptest clients in tests
//  3. Connection pooling can be shared across runs
func NewChecker(client *http.Client, endpoint string, opts ...CheckerOption) *Checker {
	c := &Checker{
		client:      client,
		endpoint:    endpoint,
		authMode:    AuthQuery,
		keyName:     "x-goog-api-key",
		userAgent:   "keyvet/1.0",
		maxBodySize: 64 * 1024,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AuthMode returns the configured credential placement.
func (c *Checker) AuthMode() AuthMode {
	return c.authMode
}

// Check validates one key with a single GET request.
// It always returns a usable result: transport failures are classified
// as StatusError with a zero status code rather than returned as errors,
// because one dead key must never abort the run.
func (c *Checker) Check(ctx context.Context, index int, key string) model.KeyResult {
	result := model.KeyResult{
		Index:       index,
		Key:         key,
		Masked:      model.MaskKey(key),
		Fingerprint: Fingerprint(key),
	}

	req, err := c.newRequest(ctx, key)
	if err != nil {
		result.Status = model.StatusError
		result.Note = "Error: " + err.Error()
		return result
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		result.Status = model.StatusError
		result.Note = "Error: " + err.Error()
		return result
	}
	defer resp.Body.Close() //nolint:errcheck // Best-effort close on response body

	result.StatusCode = resp.StatusCode
	result.Status, result.Note = model.Classify(resp.StatusCode)
	result.OK = result.Status == model.StatusActive

	// Read a bounded amount of the body for the debug log. Read errors
	// here don't change the classification; the status line already
	// told us what we need.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err == nil {
		result.BodyPreview = preview(body)
	}

	return result
}

// newRequest builds the GET request with the key placed per the auth mode.
func (c *Checker) newRequest(ctx context.Context, key string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	switch c.authMode {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+key)
	case AuthHeader:
		req.Header.Set(c.keyName, key)
	case AuthQuery:
		q := req.URL.Query()
		q.Set("key", key)
		req.URL.RawQuery = q.Encode()
	}

	return req, nil
}

// preview trims a response body to the debug-log preview length.
func preview(body []byte) string {
	if len(body) > previewLimit {
		return string(body[:previewLimit]) + "..."
	}
	return string(body)
}

// Fingerprint returns the hex SHA3-256 digest of a key. It identifies
// a key across runs without storing the key itself.
func Fingerprint(key string) string {
	sum := sha3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
