package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/nao1215/keyvet/internal/model"
)

// debugEntry is one per-key record in the debug log.
// The raw key never appears here; only the masked form does.
type debugEntry struct {
	Index       int    `json:"index"`
	Masked      string `json:"masked"`
	Status      int    `json:"status"`
	AuthMode    string `json:"auth_mode"`
	BodyPreview string `json:"body_preview"`
}

// RenderDebugLog produces the debug log contents: a short text header
// identifying the run, followed by a pretty-printed JSON array with one
// entry per key. Entries are in input-file order regardless of how the
// report was sorted, so the log reads in the order requests were made.
func RenderDebugLog(report *model.RunReport, authMode string) ([]byte, error) {
	entries := make([]debugEntry, 0, len(report.Results))
	for _, res := range report.Results {
		entries = append(entries, debugEntry{
			Index:       res.Index,
			Masked:      res.Masked,
			Status:      res.StatusCode,
			AuthMode:    authMode,
			BodyPreview: res.BodyPreview,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Index < entries[j].Index
	})

	body, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode debug entries: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("DEBUG VALIDATION LOG\n")
	buf.WriteString("Endpoint: " + report.Endpoint + "\n")
	buf.WriteString("Requested at: " + report.StartedAt.Format(time.RFC3339) + "\n\n")
	buf.Write(body)
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// WriteDebugLog renders the debug log and writes it to path with 0600
// permissions. Response bodies can echo request details, so the file is
// treated as sensitive even though it never contains raw keys.
func WriteDebugLog(path string, report *model.RunReport, authMode string) error {
	data, err := RenderDebugLog(report, authMode)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write debug log: %w", err)
	}
	return nil
}
