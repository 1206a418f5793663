// Package report renders validation reports as plain text, Markdown, HTML
// and JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/biomed-dq-validator/internal/domain"
)

// Format is an output format for a rendered report.
type Format string

const (
	FORMAT_TEXT     Format = "text"
	FORMAT_JSON     Format = "json"
	FORMAT_HTML     Format = "html"
	FORMAT_MARKDOWN Format = "markdown"
)

// ParseFormat accepts a format name case-insensitively. The empty string
// selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FORMAT_TEXT, nil
	case FORMAT_TEXT, FORMAT_JSON, FORMAT_HTML, FORMAT_MARKDOWN:
		return f, nil
	case "md":
		return FORMAT_MARKDOWN, nil
	default:
		return "", domain.NewValidationError("format", "must be one of text, json, html, markdown", s)
	}
}

// ContentType returns the HTTP content type of a rendered format.
func (f Format) ContentType() string {
	switch f {
	case FORMAT_JSON:
		return "application/json; charset=utf-8"
	case FORMAT_HTML:
		return "text/html; charset=utf-8"
	case FORMAT_MARKDOWN:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Render writes r to w in format f.
func Render(w io.Writer, r *domain.ValidationReport, f Format) error {
	switch f {
	case FORMAT_JSON:
		return WriteJSON(w, r)
	case FORMAT_HTML:
		return WriteHTML(w, r)
	case FORMAT_MARKDOWN:
		_, err := io.WriteString(w, Markdown(r))
		return err
	default:
		_, err := io.WriteString(w, Summary(r))
		return err
	}
}

// WriteJSON writes any report value as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func heading(sb *strings.Builder, title string) {
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", len(title)) + "\n")
}

func passFail(passed bool) string {
	if passed {
		return statusPass
	}
	return statusFail
}

// Summary renders a human-readable plain-text summary.
func Summary(r *domain.ValidationReport) string {
	var sb strings.Builder

	sb.WriteString("DATA QUALITY VALIDATION REPORT\n")
	sb.WriteString(strings.Repeat("=", 30) + "\n")
	sb.WriteString(fmt.Sprintf("Report ID: %s\n", r.Metadata.ReportID))
	if r.Metadata.DatasetName != "" {
		sb.WriteString(fmt.Sprintf("Dataset: %s\n", r.Metadata.DatasetName))
	}
	sb.WriteString(fmt.Sprintf("Generated: %s\n", r.Metadata.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Rows: %d  Columns: %d\n", r.DatasetInfo.Rows, r.DatasetInfo.Columns))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Quality score: %.2f / %.0f (grade %s)\n",
		r.QualityScore.Overall, r.QualityScore.MaxScore, r.QualityScore.Grade))
	sb.WriteString(fmt.Sprintf("Status: %s\n", r.Assessment.Status))
	sb.WriteString(fmt.Sprintf("Ready for ML: %t\n", r.Assessment.ReadyForML))
	sb.WriteString("\n")

	heading(&sb, "SCORE BREAKDOWN")
	for _, c := range r.QualityScore.Components {
		line := fmt.Sprintf("  %-18s %6.2f / %5.2f", c.Name, c.Points, c.Weight)
		if c.Note != "" {
			line += "  (" + c.Note + ")"
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n")

	heading(&sb, "CHECKS")
	for _, row := range checkRows(r) {
		sb.WriteString(fmt.Sprintf("  [%s] %-18s %s\n", row.Status, row.Name, row.Detail))
	}
	sb.WriteString("\n")

	writeList(&sb, "ISSUES", r.Assessment.Issues)
	writeList(&sb, "WARNINGS", r.Assessment.Warnings)
	writeList(&sb, "RECOMMENDATIONS", r.Assessment.Recommendations)

	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	heading(sb, title)
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, item))
	}
	sb.WriteString("\n")
}

// Markdown renders the report as a Markdown document.
func Markdown(r *domain.ValidationReport) string {
	var sb strings.Builder

	title := "Data Quality Report"
	if r.Metadata.DatasetName != "" {
		title += ": " + r.Metadata.DatasetName
	}
	sb.WriteString("# " + title + "\n\n")
	sb.WriteString(fmt.Sprintf("**Score:** %.2f (grade %s)  \n", r.QualityScore.Overall, r.QualityScore.Grade))
	sb.WriteString(fmt.Sprintf("**Status:** %s  \n", r.Assessment.Status))
	sb.WriteString(fmt.Sprintf("**Ready for ML:** %t\n\n", r.Assessment.ReadyForML))

	sb.WriteString("## Checks\n\n| Check | Result | Detail |\n|---|---|---|\n")
	for _, row := range checkRows(r) {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", row.Name, row.Status, strings.ReplaceAll(row.Detail, "|", "\\|")))
	}
	sb.WriteString("\n")

	for _, list := range []struct {
		title string
		items []string
	}{
		{"Issues", r.Assessment.Issues},
		{"Warnings", r.Assessment.Warnings},
		{"Recommendations", r.Assessment.Recommendations},
	} {
		if len(list.items) == 0 {
			continue
		}
		sb.WriteString("## " + list.title + "\n\n")
		for _, item := range list.items {
			sb.WriteString("- " + item + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// QuickSummary renders the quick pre-screen result.
func QuickSummary(q *domain.QuickReport) string {
	var sb strings.Builder
	sb.WriteString("QUICK VALIDATION\n")
	sb.WriteString(strings.Repeat("=", 16) + "\n")
	sb.WriteString(fmt.Sprintf("Rows: %d  Columns: %d\n", q.DatasetInfo.Rows, q.DatasetInfo.Columns))
	sb.WriteString(fmt.Sprintf("PHI detected: %t\n", q.PHI.PHIDetected))
	sb.WriteString(fmt.Sprintf("Completeness: %.1f%%\n", q.Completeness.OverallPct))
	sb.WriteString(fmt.Sprintf("Exact duplicate rows: %d\n", q.Duplicates.DuplicateRows))
	sb.WriteString(fmt.Sprintf("Result: %s\n", passFail(q.Passed)))
	for _, issue := range q.Issues {
		sb.WriteString("  - " + issue + "\n")
	}
	return sb.String()
}
