// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (API keys, tokens, secrets)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, X-Api-Key, X-Goog-Api-Key)
//   - Secret values detected by pattern matching (Google and OpenAI style
//     API keys, AWS access keys, JWTs, long alphanumeric strings)
//   - Session identifiers and authentication tokens
//
// keyvet's whole job is to handle raw API keys, so every logger in the
// application goes through this handler. Even in verbose mode, key
// material is masked to prevent accidental exposure in logs that may be
// shared or stored.
//
// # Usage
//
//	// Create a secure logger
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("request sent",
//	    "api_key", "AIzaSyA...",  // Will be masked
//	    "url", "https://example.com",
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
