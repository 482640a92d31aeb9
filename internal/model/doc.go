// Package model defines the core data structures used throughout keyvet.
//
// This package contains the following main types:
//   - KeyResult: The outcome of checking a single API key
//   - RunReport: The aggregate result of one validation run
//   - Status: The active/invalid/error classification
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (probe, pipeline, report, database) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage. The raw key itself is tagged `json:"-"` so it can never
// leak into a serialized report; only the masked form and fingerprint appear.
package model
