package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"setupclojure/internal/setup"
)

// SummaryRow is one line of the install summary.
type SummaryRow struct {
	Tool    string  `json:"tool"`
	Version string  `json:"version"`
	Status  string  `json:"status"`
	Source  string  `json:"source,omitempty"`
	Path    string  `json:"path,omitempty"`
	Seconds float64 `json:"seconds"`
	Error   string  `json:"error,omitempty"`
}

// SummaryRows flattens a summary in request order.
func SummaryRows(s setup.Summary) []SummaryRow {
	rows := make([]SummaryRow, 0, len(s.Results))
	for _, res := range s.Results {
		version := res.Handle.Version
		if version == "" {
			version = res.Request.Version
		}
		row := SummaryRow{
			Tool:    res.Request.Tool,
			Version: version,
			Status:  resultStatus(res),
			Source:  resultSource(res),
			Path:    res.Handle.BinDir,
			Seconds: res.Duration.Seconds(),
		}
		if res.Err != nil {
			row.Error = res.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}

// RenderSummary writes a bordered table of s to w, followed by the error of
// every failed tool.
func RenderSummary(w io.Writer, s setup.Summary) {
	rows := SummaryRows(s)
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no tools installed)")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(ColTool, ColVersion, ColStatus, ColSource, ColPath).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Inherit(HeaderStyle)
			}
			if col == 2 && row >= 0 && row < len(rows) {
				return style.Inherit(StatusStyle(rows[row].Status))
			}
			return style
		})
	for _, r := range rows {
		t.Row(r.Tool, NonEmptyOrDash(r.Version), r.Status, NonEmptyOrDash(r.Source), NonEmptyOrDash(r.Path))
	}
	fmt.Fprintln(w, t.Render())

	for _, r := range rows {
		if r.Error != "" {
			fmt.Fprintf(w, "  %s: %s\n", r.Tool, r.Error)
		}
	}
}

// Markdown renders s as a job summary table.
func Markdown(s setup.Summary) string {
	var b strings.Builder
	b.WriteString("### Clojure tools\n\n")
	b.WriteString("| Tool | Version | Status | Source | Path |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, r := range SummaryRows(s) {
		status := r.Status
		if r.Error != "" {
			status += ": " + strings.ReplaceAll(r.Error, "|", "\\|")
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			r.Tool, NonEmptyOrDash(r.Version), status, NonEmptyOrDash(r.Source), codeOrDash(r.Path))
	}
	return b.String()
}

func codeOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return "`" + s + "`"
}
