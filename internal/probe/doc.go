// Package probe issues the HTTP requests that validate API keys.
//
// A Checker sends exactly one GET per key to the configured endpoint,
// placing the key according to the auth mode (query string, bearer
// token, or custom header), and classifies the response into the
// active/invalid/error statuses defined in the model package.
package probe
