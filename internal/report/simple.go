package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/keyvet/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// titleCaser renders status labels in display casing ("Active", "Error").
var titleCaser = cases.Title(language.English)

// StatusLabel returns the display form of a status ("Active", "Invalid",
// "Error").
func StatusLabel(s model.Status) string {
	return titleCaser.String(strings.ToLower(s.String()))
}

// codeText renders an HTTP status code for display. Transport failures
// have no code, so zero renders as "-".
func codeText(code int) string {
	if code == 0 {
		return "-"
	}
	return strconv.Itoa(code)
}

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables additional detail in the output (per-key latency).
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeResults(&sb, report)
	w.writeSummary(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      KEY VALIDATION REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Endpoint:   %s\n", report.Endpoint))
	sb.WriteString(fmt.Sprintf("Auth Mode:  %s\n", report.AuthMode))
	sb.WriteString(fmt.Sprintf("Key File:   %s\n", report.KeyFile))
	sb.WriteString(fmt.Sprintf("Checked At: %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", report.Duration.Round(time.Millisecond)))

	if report.ErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("Status:     ERROR - %s\n", report.ErrorMessage))
	}

	sb.WriteString("\n")
}

// writeResults writes the per-key result table, active keys first.
func (w *SimpleWriter) writeResults(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RESULTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Results) == 0 {
		sb.WriteString("  No keys found\n\n")
		return
	}

	for _, res := range report.Results {
		sb.WriteString(fmt.Sprintf("%2d. %-20s | %-7s | %-5s | %s\n",
			res.Index,
			res.Masked,
			StatusLabel(res.Status),
			codeText(res.StatusCode),
			res.Note,
		))
		if w.verbose && res.Latency > 0 {
			sb.WriteString(fmt.Sprintf("    latency: %s\n", res.Latency.Round(time.Millisecond)))
		}
	}
	sb.WriteString("\n")
}

// writeSummary writes the status summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  ACTIVE:  %d\n", report.ActiveCount()))
	sb.WriteString(fmt.Sprintf("  INVALID: %d\n", report.InvalidCount()))
	sb.WriteString(fmt.Sprintf("  ERROR:   %d\n", report.ErrorCount()))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  TOTAL:   %d keys\n", report.TotalCount()))
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by keyvet\n")
	sb.WriteString("https://github.com/nao1215/keyvet\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
