package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomed-dq-validator/internal/domain"
)

func sampleReport() *domain.ValidationReport {
	return &domain.ValidationReport{
		Metadata: domain.ReportMetadata{
			ReportID:    "rpt-1",
			DatasetName: "adni <merge>",
			GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		DatasetInfo: domain.DatasetInfo{Rows: 10, Columns: 3},
		PHI: &domain.PHIResult{
			PHIDetected: true,
			Categories:  map[domain.PHICategory][]string{domain.PHI_NAMES: {"patient_name"}},
			Scans:       []domain.ColumnScan{{Column: "patient_name", Categories: []domain.PHICategory{domain.PHI_NAMES}}},
		},
		Completeness: &domain.CompletenessResult{Passed: true, Overall: 1, OverallPct: 100},
		Temporal:     &domain.TemporalReport{Applicability: domain.NotApplicable("no patient id column provided")},
		QualityScore: domain.QualityScore{
			Overall:  62.5,
			MaxScore: 100,
			Grade:    domain.GRADE_D,
			Components: []domain.ComponentScore{
				{Name: domain.SectionPHI, Weight: 20, Points: 0, Applicable: true},
				{Name: domain.SectionCompleteness, Weight: 25, Points: 25, Applicable: true},
			},
		},
		Assessment: domain.Assessment{
			Status:          domain.STATUS_PHI_DETECTED,
			Issues:          []string{"PHI detected (names) in columns: patient_name"},
			Warnings:        []string{},
			Recommendations: []string{"Remove <script> columns"},
		},
		SectionErrors: map[string]string{domain.SectionOutliers: "panic: boom"},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FORMAT_TEXT, "JSON": FORMAT_JSON, "html": FORMAT_HTML, "md": FORMAT_MARKDOWN} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	out := Summary(sampleReport())

	assert.Contains(t, out, "Report ID: rpt-1")
	assert.Contains(t, out, "Quality score: 62.50 / 100 (grade D)")
	assert.Contains(t, out, "Status: PHI_DETECTED")
	assert.Contains(t, out, "[FAIL] phi")
	assert.Contains(t, out, "[ERROR] outliers")
	assert.Contains(t, out, "[SKIP] temporal")
	assert.Contains(t, out, "[SKIP] ranges")
	assert.Contains(t, out, "1. PHI detected (names)")
	assert.NotContains(t, out, "WARNINGS")
}

func TestMarkdown(t *testing.T) {
	out := Markdown(sampleReport())

	assert.True(t, strings.HasPrefix(out, "# Data Quality Report: adni <merge>"))
	assert.Contains(t, out, "| completeness | PASS |")
	assert.Contains(t, out, "## Issues")
}

func TestWriteHTMLEscapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "adni &lt;merge&gt;")
	assert.Contains(t, out, "Remove &lt;script&gt; columns")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "grade-d")
	assert.Contains(t, out, "Not ready for ML")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), FORMAT_JSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "quality_score")
	assert.Contains(t, decoded, "overall_assessment")
}

func TestQuickSummary(t *testing.T) {
	out := QuickSummary(&domain.QuickReport{
		DatasetInfo:  domain.DatasetInfo{Rows: 4, Columns: 2},
		PHI:          &domain.PHIResult{},
		Completeness: &domain.CompletenessResult{OverallPct: 87.5},
		Duplicates:   &domain.ExactDuplicateResult{DuplicateRows: 2},
		Issues:       []string{"2 exact duplicate rows (50.0%)"},
	})

	assert.Contains(t, out, "Completeness: 87.5%")
	assert.Contains(t, out, "Result: FAIL")
	assert.Contains(t, out, "  - 2 exact duplicate rows")
}
