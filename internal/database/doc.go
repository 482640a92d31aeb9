// Package database provides SQLite-based storage for keyvet.
//
// This package implements the HistoryDB, which stores:
//   - One row per validation run with summary counts
//   - Per-key outcomes identified by masked form and fingerprint
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// Raw API keys are never stored; only masked forms and SHA3-256
// fingerprints, so the history database is safe to keep and share.
package database
