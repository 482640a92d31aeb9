package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/keyvet/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeResults(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("Key Validation Report")
	md.PlainText("")

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Endpoint", "`" + report.Endpoint + "`"},
			{"Auth Mode", report.AuthMode},
			{"Key File", "`" + report.KeyFile + "`"},
			{"Checked At", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.RunReport) string {
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// writeSummary writes the status summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Summary")
	md.PlainText("")

	// Summary table
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows: [][]string{
			{"🟢 Active", strconv.Itoa(report.ActiveCount())},
			{"🔴 Invalid", strconv.Itoa(report.InvalidCount())},
			{"⚪ Error", strconv.Itoa(report.ErrorCount())},
			{"**Total**", "**" + strconv.Itoa(report.TotalCount()) + "**"},
		},
	})
	md.PlainText("")

	// Add pie chart if there are results
	if report.TotalCount() > 0 {
		w.writePieChart(md, report)
	}

	// Add alert based on the outcome
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart for status distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.RunReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Key Status Distribution"),
		piechart.WithShowData(true),
	)

	if n := report.ActiveCount(); n > 0 {
		chart.LabelAndIntValue("Active", uint64(n))
	}
	if n := report.InvalidCount(); n > 0 {
		chart.LabelAndIntValue("Invalid", uint64(n))
	}
	if n := report.ErrorCount(); n > 0 {
		chart.LabelAndIntValue("Error", uint64(n))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the result counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RunReport) {
	switch {
	case report.TotalCount() == 0:
		md.Note("No keys were found in the input file.")
	case report.ErrorCount() == report.TotalCount():
		md.Cautionf(
			"All %d request(s) failed before reaching the endpoint. Check connectivity and the endpoint URL.",
			report.ErrorCount(),
		)
	case report.ActiveCount() == 0:
		md.Warningf(
			"None of the %d key(s) are active.",
			report.TotalCount(),
		)
	default:
		md.Tipf(
			"%d of %d key(s) are active.",
			report.ActiveCount(), report.TotalCount(),
		)
	}
	md.PlainText("")
}

// writeResults writes the per-key result table, active keys first.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Results")
	md.PlainText("")

	if report.TotalCount() == 0 {
		md.PlainText("No keys found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		rows = append(rows, []string{
			strconv.Itoa(res.Index),
			"`" + res.Masked + "`",
			StatusLabel(res.Status),
			codeText(res.StatusCode),
			res.Note,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Key", "Status", "Code", "Note"},
		Rows:   rows,
	})
	md.PlainText("")
}
