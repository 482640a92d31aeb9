package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/keyvet/internal/config"
	"github.com/nao1215/keyvet/internal/database"
	"github.com/nao1215/keyvet/internal/log"
	"github.com/nao1215/keyvet/internal/probe"
)

// newKeyServer starts a test endpoint that accepts exactly one key.
// The key may arrive as a query parameter or a bearer token.
func newKeyServer(t *testing.T, liveKey string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.URL.Query().Get("key")
		if got == "" {
			got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if got == liveKey {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"invalid key"}`))
	}))
	t.Cleanup(server.Close)

	return server
}

// writeKeyFile writes a key file into dir and returns its path.
func writeKeyFile(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "api.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write key file: %v", err)
	}
	return path
}

// testRunConfig builds a config pointing every output at tmpDir.
func testRunConfig(tmpDir, keyFile, endpoint string) *config.Config {
	cfg := config.NewConfig()
	cfg.KeyFile = keyFile
	cfg.Endpoint = endpoint
	cfg.Delay = time.Millisecond
	cfg.Timeout = 5 * time.Second
	cfg.DebugLogFile = filepath.Join(tmpDir, "debug.log")
	cfg.ActiveFile = filepath.Join(tmpDir, "active.txt")
	cfg.ReportFile = filepath.Join(tmpDir, "report.txt")
	cfg.DBDir = filepath.Join(tmpDir, "db")
	return cfg
}

// TestIntegrationCheckRun runs a full validation: read keys, check each
// against a live endpoint, write every output file, and save history.
func TestIntegrationCheckRun(t *testing.T) {
	server := newKeyServer(t, "live-key-0123456789")

	tmpDir := t.TempDir()
	keyFile := writeKeyFile(t, tmpDir, "live-key-0123456789\n# comment line\n\ndead-key-9876543210\n")
	cfg := testRunConfig(tmpDir, keyFile, server.URL)

	logger := log.NewSecureLogger(os.Stderr, false)

	ctx := context.Background()
	if err := runCheck(ctx, cfg, logger); err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}

	t.Run("report file", func(t *testing.T) {
		content, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		output := string(content)

		if !strings.Contains(output, "KEY VALIDATION REPORT") {
			t.Error("expected report header")
		}
		if !strings.Contains(output, "ACTIVE") {
			t.Error("expected ACTIVE count in summary")
		}
		if !strings.Contains(output, "TOTAL") {
			t.Error("expected TOTAL count in summary")
		}
		// Raw keys must never appear in the report
		if strings.Contains(output, "live-key-0123456789") {
			t.Error("raw active key leaked into report")
		}
		if strings.Contains(output, "dead-key-9876543210") {
			t.Error("raw invalid key leaked into report")
		}
	})

	t.Run("active keys file", func(t *testing.T) {
		content, err := os.ReadFile(cfg.ActiveFile)
		if err != nil {
			t.Fatalf("failed to read active file: %v", err)
		}
		if string(content) != "live-key-0123456789,\n" {
			t.Errorf("active file content = %q", string(content))
		}
	})

	t.Run("debug log file", func(t *testing.T) {
		content, err := os.ReadFile(cfg.DebugLogFile)
		if err != nil {
			t.Fatalf("failed to read debug log: %v", err)
		}
		output := string(content)

		if !strings.HasPrefix(output, "DEBUG VALIDATION LOG\n") {
			t.Error("expected debug log header")
		}
		if !strings.Contains(output, "Endpoint: "+server.URL) {
			t.Error("expected endpoint line in debug log")
		}
		if strings.Contains(output, "live-key-0123456789") {
			t.Error("raw key leaked into debug log")
		}
	})

	t.Run("history database", func(t *testing.T) {
		db, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open database after run: %v", err)
		}
		defer db.Close()

		runs, err := db.GetRunHistory(ctx, server.URL)
		if err != nil {
			t.Fatalf("failed to get run history: %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("got %d runs, want 1", len(runs))
		}
		meta := runs[0]
		if meta.TotalCount != 2 || meta.ActiveCount != 1 || meta.InvalidCount != 1 {
			t.Errorf("unexpected counts: %+v", meta)
		}
	})
}

// TestIntegrationCheckRunJSON verifies the JSON report format end to end.
func TestIntegrationCheckRunJSON(t *testing.T) {
	server := newKeyServer(t, "live-key-0123456789")

	tmpDir := t.TempDir()
	keyFile := writeKeyFile(t, tmpDir, "live-key-0123456789\ndead-key-9876543210\n")
	cfg := testRunConfig(tmpDir, keyFile, server.URL)
	cfg.JSONReport = true
	cfg.ReportFile = filepath.Join(tmpDir, "report.json")
	cfg.SaveToDB = false

	logger := log.NewSecureLogger(os.Stderr, false)

	if err := runCheck(context.Background(), cfg, logger); err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}

	content, err := os.ReadFile(cfg.ReportFile)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}

	var envelope struct {
		Version string `json:"version"`
		Report  struct {
			Endpoint string `json:"endpoint"`
			Results  []struct {
				Masked string `json:"masked"`
				Status int    `json:"status"`
			} `json:"results"`
		} `json:"report"`
	}
	if err := json.Unmarshal(content, &envelope); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}

	if envelope.Version == "" {
		t.Error("expected version in JSON envelope")
	}
	if envelope.Report.Endpoint != server.URL {
		t.Errorf("endpoint = %q, want %q", envelope.Report.Endpoint, server.URL)
	}
	if len(envelope.Report.Results) != 2 {
		t.Errorf("got %d results, want 2", len(envelope.Report.Results))
	}
	if strings.Contains(string(content), "live-key-0123456789") {
		t.Error("raw key leaked into JSON report")
	}

	// --no-save must leave no database behind
	if _, err := os.Stat(filepath.Join(cfg.DBDir, "keyvet.db")); !os.IsNotExist(err) {
		t.Error("expected no database file with SaveToDB disabled")
	}
}

// TestIntegrationCheckRunBearer verifies bearer placement end to end.
func TestIntegrationCheckRunBearer(t *testing.T) {
	server := newKeyServer(t, "live-key-0123456789")

	tmpDir := t.TempDir()
	keyFile := writeKeyFile(t, tmpDir, "live-key-0123456789\n")
	cfg := testRunConfig(tmpDir, keyFile, server.URL)
	cfg.AuthMode = "bearer"
	cfg.SaveToDB = false

	logger := log.NewSecureLogger(os.Stderr, false)

	if err := runCheck(context.Background(), cfg, logger); err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}

	content, err := os.ReadFile(cfg.ActiveFile)
	if err != nil {
		t.Fatalf("failed to read active file: %v", err)
	}
	if string(content) != "live-key-0123456789,\n" {
		t.Errorf("active file content = %q", string(content))
	}
}

// TestIntegrationCheckRunEmptyKeyFile verifies that a key file with no
// usable keys ends the run before any output is written: a previous
// run's files and history must survive untouched.
func TestIntegrationCheckRunEmptyKeyFile(t *testing.T) {
	tmpDir := t.TempDir()
	keyFile := writeKeyFile(t, tmpDir, "# only comments\n\n# and blank lines\n")
	cfg := testRunConfig(tmpDir, keyFile, "https://api.example.com/v1/models")

	// Outputs left behind by an earlier run
	if err := os.WriteFile(cfg.ActiveFile, []byte("previously-active-key,\n"), 0600); err != nil {
		t.Fatalf("failed to seed active file: %v", err)
	}
	if err := os.WriteFile(cfg.DebugLogFile, []byte("DEBUG VALIDATION LOG\n"), 0600); err != nil {
		t.Fatalf("failed to seed debug log: %v", err)
	}

	logger := log.NewSecureLogger(os.Stderr, false)

	if err := runCheck(context.Background(), cfg, logger); err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}

	content, err := os.ReadFile(cfg.ActiveFile)
	if err != nil {
		t.Fatalf("failed to read active file: %v", err)
	}
	if string(content) != "previously-active-key,\n" {
		t.Errorf("active file was rewritten on empty input: %q", string(content))
	}

	debugLog, err := os.ReadFile(cfg.DebugLogFile)
	if err != nil {
		t.Fatalf("failed to read debug log: %v", err)
	}
	if string(debugLog) != "DEBUG VALIDATION LOG\n" {
		t.Errorf("debug log was rewritten on empty input: %q", string(debugLog))
	}

	if _, err := os.Stat(cfg.ReportFile); !os.IsNotExist(err) {
		t.Error("report was written on empty input")
	}
	if _, err := os.Stat(filepath.Join(cfg.DBDir, "keyvet.db")); !os.IsNotExist(err) {
		t.Error("history database was created on empty input")
	}
}

// TestIntegrationCheckRunMissingKeyFile verifies the one fatal input error.
func TestIntegrationCheckRunMissingKeyFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := testRunConfig(tmpDir, filepath.Join(tmpDir, "does-not-exist.txt"), "https://api.example.com")
	cfg.SaveToDB = false

	logger := log.NewSecureLogger(os.Stderr, false)

	if err := runCheck(context.Background(), cfg, logger); err == nil {
		t.Fatal("expected error for missing key file")
	}
}

// TestIntegrationCheckRunUnwritableOutputs verifies that unwritable
// output paths never cost the user their results.
func TestIntegrationCheckRunUnwritableOutputs(t *testing.T) {
	server := newKeyServer(t, "live-key-0123456789")

	tmpDir := t.TempDir()
	keyFile := writeKeyFile(t, tmpDir, "live-key-0123456789\n")
	cfg := testRunConfig(tmpDir, keyFile, server.URL)
	cfg.ActiveFile = filepath.Join(tmpDir, "missing-dir", "active.txt")
	cfg.DebugLogFile = filepath.Join(tmpDir, "missing-dir", "debug.log")
	cfg.SaveToDB = false

	logger := log.NewSecureLogger(os.Stderr, false)

	// The run must succeed even though both output steps fail.
	if err := runCheck(context.Background(), cfg, logger); err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}

	content, err := os.ReadFile(cfg.ReportFile)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if !strings.Contains(string(content), "KEY VALIDATION REPORT") {
		t.Error("expected report despite unwritable outputs")
	}
}

// TestIntegrationHistoryCommands exercises the history helpers against a
// populated database.
func TestIntegrationHistoryCommands(t *testing.T) {
	server := newKeyServer(t, "live-key-0123456789")

	tmpDir := t.TempDir()
	keyFile := writeKeyFile(t, tmpDir, "live-key-0123456789\ndead-key-9876543210\n")
	cfg := testRunConfig(tmpDir, keyFile, server.URL)

	logger := log.NewSecureLogger(os.Stderr, false)

	ctx := context.Background()
	if err := runCheck(ctx, cfg, logger); err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}
	if err := runCheck(ctx, cfg, logger); err != nil {
		t.Fatalf("second runCheck() error = %v", err)
	}

	db, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// captureStdout runs fn and returns everything it printed.
	captureStdout := func(t *testing.T, fn func() error) string {
		t.Helper()

		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		err := fn()

		_ = w.Close()
		os.Stdout = oldStdout

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		_ = r.Close()
		return buf.String()
	}

	t.Run("listRecordedEndpoints", func(t *testing.T) {
		output := captureStdout(t, func() error {
			return listRecordedEndpoints(ctx, db, false)
		})
		if !strings.Contains(output, server.URL) {
			t.Errorf("expected endpoint in output, got: %s", output)
		}
	})

	t.Run("listRuns", func(t *testing.T) {
		output := captureStdout(t, func() error {
			return listRuns(ctx, db, server.URL, false)
		})
		if !strings.Contains(output, "Runs for") {
			t.Errorf("expected run list header, got: %s", output)
		}
	})

	t.Run("listRuns JSON", func(t *testing.T) {
		output := captureStdout(t, func() error {
			return listRuns(ctx, db, "", true)
		})
		var runs []database.RunMetadata
		if err := json.Unmarshal([]byte(output), &runs); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("got %d runs, want 2", len(runs))
		}
	})

	t.Run("showRun", func(t *testing.T) {
		runs, err := db.GetRunHistory(ctx, server.URL)
		if err != nil {
			t.Fatalf("failed to get run history: %v", err)
		}
		if len(runs) == 0 {
			t.Fatal("expected recorded runs")
		}

		output := captureStdout(t, func() error {
			return showRun(ctx, db, runs[0].ID, false)
		})
		if !strings.Contains(output, "KEY VALIDATION REPORT") {
			t.Errorf("expected report header, got: %s", output)
		}
		if strings.Contains(output, "live-key-0123456789") {
			t.Error("raw key leaked into stored run output")
		}
	})

	t.Run("showRun unknown id", func(t *testing.T) {
		if err := showRun(ctx, db, 99999, false); err == nil {
			t.Error("expected error for unknown run id")
		}
	})

	t.Run("showKeyHistory", func(t *testing.T) {
		fingerprint := probe.Fingerprint("live-key-0123456789")
		output := captureStdout(t, func() error {
			return showKeyHistory(ctx, db, fingerprint, false)
		})
		if !strings.Contains(output, "Key history for") {
			t.Errorf("expected key history header, got: %s", output)
		}
		if !strings.Contains(output, "ACTIVE") {
			t.Errorf("expected ACTIVE outcomes, got: %s", output)
		}
	})
}
