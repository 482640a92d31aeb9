package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These match the behavior of typical API key validation against the
// Gemini models endpoint, which is the tool's default target.
const (
	// DefaultKeyFile is the default input file containing one API key
	// per line. Blank lines and lines starting with '#' are skipped.
	DefaultKeyFile = "api.txt"

	// DefaultEndpoint is the URL each key is validated against.
	// The Gemini models listing endpoint is cheap, read-only, and
	// rejects bad keys with 400/403, which makes it a good probe target.
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1/models"

	// DefaultAuthMode places the key in the URL query string, which is
	// how the default endpoint expects it.
	DefaultAuthMode = "query"

	// DefaultKeyName is the header name used in "header" auth mode.
	DefaultKeyName = "x-goog-api-key"

	// DefaultTimeout is the per-request timeout. 10 seconds is generous
	// for a single metadata GET while still failing dead endpoints fast.
	DefaultTimeout = 10 * time.Second

	// DefaultDelay is the pause between consecutive key checks.
	// 350ms keeps the tool under typical per-IP rate limits without
	// making large key files painfully slow.
	DefaultDelay = 350 * time.Millisecond

	// DefaultDebugLogFile is where the per-key debug entries are written.
	DefaultDebugLogFile = "keyvet_debug.log"

	// DefaultActiveFileName is the file the active keys are written to,
	// created next to the input key file.
	DefaultActiveFileName = "active.txt"

	// DefaultUserAgent identifies keyvet in HTTP requests.
	// Using a descriptive User-Agent is good practice and allows operators
	// to identify validation traffic in their logs.
	DefaultUserAgent = "keyvet/1.0 (+https://github.com/nao1215/keyvet)"

	// DefaultMaxBodySize limits how much of each response body is read.
	// 64KB is far more than the debug log's 1000-byte preview needs while
	// preventing memory exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 64 * 1024

	// AppName is the application name used for XDG directory paths.
	AppName = "keyvet"
)

// Config holds all configuration options for keyvet.
// This struct is designed to be populated from CLI flags and the
// optional config file, then passed through the application via
// dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., ProbeConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// KeyFile is the path to the newline-delimited key file.
	KeyFile string

	// Endpoint is the URL each key is checked against.
	Endpoint string

	// AuthMode selects where the key is placed in the request:
	// "query", "bearer", or "header".
	AuthMode string

	// KeyName is the header name used in "header" auth mode.
	KeyName string

	// Headers are extra headers sent with every request, typically
	// supplied by a provider profile in the config file.
	Headers map[string]string

	// Timeout is the per-request timeout. It applies to each key check
	// individually, not the run as a whole.
	Timeout time.Duration

	// Delay is the fixed pause between consecutive key checks.
	// Checks run strictly sequentially.
	Delay time.Duration

	// DebugLogFile is the path the debug log is written to.
	// Write failures are reported but never abort the run.
	DebugLogFile string

	// ActiveFile is the path the active keys are written to.
	// When empty, DefaultActiveFileName next to KeyFile is used.
	ActiveFile string

	// Provider is the name of a provider profile from the config file.
	// Profile values fill in anything the CLI flags left unset.
	Provider string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .keyvet in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// Providers holds the provider profiles loaded from the config file.
	Providers *File

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of the console table.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the
	// console table. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	// When empty, requests go out directly.
	ProxyAddress string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default.
	MaxBodySize int64

	// DBDir is the directory path for storing the SQLite history
	// database. Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether to save run results to the database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, delay).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		KeyFile:      DefaultKeyFile,
		Endpoint:     DefaultEndpoint,
		AuthMode:     DefaultAuthMode,
		KeyName:      DefaultKeyName,
		Timeout:      DefaultTimeout,
		Delay:        DefaultDelay,
		DebugLogFile: DefaultDebugLogFile,
		UserAgent:    DefaultUserAgent,
		MaxBodySize:  DefaultMaxBodySize,
		SaveToDB:     true,
	}
}

// ActiveFilePath returns the resolved path for the active-keys file.
// When ActiveFile is unset, the file is placed next to the key file.
func (c *Config) ActiveFilePath() string {
	if c.ActiveFile != "" {
		return c.ActiveFile
	}
	return filepath.Join(filepath.Dir(c.KeyFile), DefaultActiveFileName)
}

// XDGDataDir returns the XDG data directory for keyvet.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/keyvet
// On macOS: ~/Library/Application Support/keyvet
// On Windows: %LOCALAPPDATA%\keyvet
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for keyvet.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any checking begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.KeyFile == "" {
		return ErrNoKeyFile
	}

	if c.Endpoint == "" {
		return ErrNoEndpoint
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// Delay must be non-negative
	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	// MaxBodySize must be non-negative if set
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
