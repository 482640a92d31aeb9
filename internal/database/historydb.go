package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/keyvet/internal/model"
)

// HistoryDB provides SQLite-based storage for validation run history.
// It manages connection pooling and provides methods for CRUD operations.
//
// Raw keys are never written to this database. Each stored result
// carries only the masked display form and a SHA3-256 fingerprint,
// which is enough to correlate the same key across runs.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "keyvet.db")

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	// SQLite doesn't benefit from multiple connections for writes,
	// but multiple readers can improve performance
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	// Enable WAL mode if requested
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Create tables
	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Runs store one row per validation run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		endpoint TEXT NOT NULL,
		auth_mode TEXT NOT NULL,
		key_file TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		duration_ms INTEGER,
		total_count INTEGER NOT NULL,
		active_count INTEGER NOT NULL,
		invalid_count INTEGER NOT NULL,
		error_count INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_endpoint ON runs(endpoint);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);

	-- Key results store per-key outcomes, identified by fingerprint only
	CREATE TABLE IF NOT EXISTS key_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		key_index INTEGER NOT NULL,
		masked TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		status_code INTEGER,
		status TEXT NOT NULL,
		note TEXT,
		latency_ms INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_results_run ON key_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_results_fingerprint ON key_results(fingerprint);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun persists a validation run and its per-key results.
// It returns the database ID of the new run.
func (hdb *HistoryDB) SaveRun(ctx context.Context, report *model.RunReport) (int64, error) {
	// RunReport tags the raw key `json:"-"`, so the stored JSON carries
	// masked forms and fingerprints only.
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (endpoint, auth_mode, key_file, duration_ms, total_count, active_count, invalid_count, error_count, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.Endpoint,
		report.AuthMode,
		report.KeyFile,
		report.Duration.Milliseconds(),
		report.TotalCount(),
		report.ActiveCount(),
		report.InvalidCount(),
		report.ErrorCount(),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, r := range report.Results {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO key_results (run_id, key_index, masked, fingerprint, status_code, status, note, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID,
			r.Index,
			r.Masked,
			r.Fingerprint,
			r.StatusCode,
			r.Status.String(),
			r.Note,
			r.Latency.Milliseconds(),
		); err != nil {
			return 0, fmt.Errorf("failed to save key result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// RunMetadata contains summary information about a stored run.
// This is used for displaying run history without loading the full report.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Endpoint is the URL the keys were checked against.
	Endpoint string

	// AuthMode is the credential placement used.
	AuthMode string

	// Timestamp is when the run was performed.
	Timestamp time.Time

	// TotalCount, ActiveCount, InvalidCount, and ErrorCount summarize
	// the run's outcomes.
	TotalCount   int
	ActiveCount  int
	InvalidCount int
	ErrorCount   int
}

// GetRunHistory retrieves run metadata, newest first.
// When endpoint is non-empty, only runs against that endpoint are returned.
func (hdb *HistoryDB) GetRunHistory(ctx context.Context, endpoint string) ([]RunMetadata, error) {
	query := `
	SELECT id, endpoint, auth_mode, timestamp, total_count, active_count, invalid_count, error_count
	FROM runs
	`
	args := make([]any, 0, 1)
	if endpoint != "" {
		query += " WHERE endpoint = ?"
		args = append(args, endpoint)
	}
	query += " ORDER BY timestamp DESC"

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp string

		if err := rows.Scan(
			&meta.ID,
			&meta.Endpoint,
			&meta.AuthMode,
			&timestamp,
			&meta.TotalCount,
			&meta.ActiveCount,
			&meta.InvalidCount,
			&meta.ErrorCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// ListEndpoints returns all endpoints that have stored runs.
func (hdb *HistoryDB) ListEndpoints(ctx context.Context) ([]string, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT DISTINCT endpoint FROM runs
	ORDER BY endpoint
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var endpoints []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("failed to scan endpoint: %w", err)
		}
		endpoints = append(endpoints, e)
	}

	return endpoints, rows.Err()
}

// GetRunByID retrieves a full run report by its database ID.
// It returns nil when no run with that ID exists.
func (hdb *HistoryDB) GetRunByID(ctx context.Context, id int64) (*model.RunReport, error) {
	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, `
	SELECT report_json FROM runs WHERE id = ?
	`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}

	return &report, nil
}

// GetLatestRun retrieves the most recent run for an endpoint.
// It returns nil when the endpoint has no stored runs.
func (hdb *HistoryDB) GetLatestRun(ctx context.Context, endpoint string) (*model.RunReport, error) {
	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, `
	SELECT report_json FROM runs
	WHERE endpoint = ?
	ORDER BY timestamp DESC
	LIMIT 1
	`, endpoint).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}

	return &report, nil
}

// KeyOutcome is the stored outcome of one key in one run.
type KeyOutcome struct {
	// RunID identifies the run this outcome belongs to.
	RunID int64

	// Masked is the redacted display form of the key.
	Masked string

	// Fingerprint is the SHA3-256 digest identifying the key.
	Fingerprint string

	// StatusCode is the HTTP status code (zero for transport failures).
	StatusCode int

	// Status is the classification label ("ACTIVE", "INVALID", "ERROR").
	Status string

	// Timestamp is when the run was performed.
	Timestamp time.Time
}

// GetKeyHistory retrieves every stored outcome for a key fingerprint,
// newest first. This is how a key's status can be tracked across runs.
func (hdb *HistoryDB) GetKeyHistory(ctx context.Context, fingerprint string) ([]KeyOutcome, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT k.run_id, k.masked, k.fingerprint, k.status_code, k.status, r.timestamp
	FROM key_results k
	JOIN runs r ON r.id = k.run_id
	WHERE k.fingerprint = ?
	ORDER BY r.timestamp DESC
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to get key history: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var outcomes []KeyOutcome
	for rows.Next() {
		var o KeyOutcome
		var timestamp string
		if err := rows.Scan(&o.RunID, &o.Masked, &o.Fingerprint, &o.StatusCode, &o.Status, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan key outcome: %w", err)
		}
		o.Timestamp = parseTimestamp(timestamp)
		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	// Return zero time if no format matches
	// This is a fallback to avoid breaking functionality for edge cases
	return time.Time{}
}
