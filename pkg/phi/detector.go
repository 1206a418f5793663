// Package phi detects columns that look like HIPAA Safe Harbor identifiers,
// by column name and by sampling text values.
package phi

import (
	"regexp"
	"strings"

	"github.com/biomed-dq-validator/internal/domain"
)

// DefaultSampleSize is the number of non-null text values scanned per column.
const DefaultSampleSize = 1000

const sampleSeparator = "; "

// Value patterns per PHI category
var valuePatterns = map[domain.PHICategory]*regexp.Regexp{
	// 123-45-6789 or 123456789
	domain.PHI_SSN: regexp.MustCompile(`\b\d{3}-?\d{2}-?\d{4}\b`),

	domain.PHI_EMAIL: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),

	domain.PHI_URL: regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s;]+`),

	domain.PHI_IP: regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`),

	// 5-digit ZIP, optionally ZIP+4
	domain.PHI_ZIP: regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`),

	// (555) 123-4567, 555-123-4567, +1 555.123.4567
	domain.PHI_PHONE: regexp.MustCompile(`(?:\+?1[ .-]?)?(?:\(\d{3}\) ?|\b\d{3}[ .-])\d{3}[ .-]\d{4}\b`),

	domain.PHI_FAX: regexp.MustCompile(`(?i)\bfax\b[:#\s]*(?:\+?1[ .-]?)?\(?\d{3}\)?[ .-]?\d{3}[ .-]?\d{4}\b`),

	domain.PHI_MRN: regexp.MustCompile(`(?i)\b(?:mrn|medical\s+record(?:\s+(?:number|no\.?|#))?)[:#\s-]*[A-Z0-9-]{4,}`),

	domain.PHI_ACCOUNT: regexp.MustCompile(`(?i)\b(?:acct|account)(?:\s*(?:number|no\.?|#))?[:#\s-]*\d{4,}`),

	domain.PHI_LICENSE: regexp.MustCompile(`(?i)\b(?:license|licence|lic|certificate|cert)(?:\s*(?:number|no\.?|#))?[:#\s-]*[A-Z0-9-]{5,}`),

	// 17 characters, never I, O or Q
	domain.PHI_VEHICLE: regexp.MustCompile(`\b[A-HJ-NPR-Z0-9]{17}\b`),

	// Calendar dates only; a bare year is not a date
	domain.PHI_DATES: regexp.MustCompile(`(?i)\b(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}[/-]\d{1,2}[/-]\d{1,2}|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})\b`),

	// Titled names: Dr. Smith, Mrs Jane Doe
	domain.PHI_NAMES: regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Miss|Dr|Prof)\.?\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?`),
}

// Detector flags columns that resemble PHI. A Detector holds no mutable
// state and is safe for concurrent use.
type Detector struct {
	sampleSize int
}

// NewDetector creates a detector sampling up to sampleSize values per column.
// A non-positive size selects DefaultSampleSize.
func NewDetector(sampleSize int) *Detector {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &Detector{sampleSize: sampleSize}
}

// Detect inspects every column by name and, for text-like columns, by value.
// The Categories map is empty when no PHI was found.
func (d *Detector) Detect(table *domain.Table) *domain.PHIResult {
	result := &domain.PHIResult{
		Categories: make(map[domain.PHICategory][]string),
	}

	for _, column := range table.Columns() {
		scan := domain.ColumnScan{Column: column, NameChecked: true}
		found := make(map[domain.PHICategory]bool)

		for category, phrases := range CategoryKeywords() {
			if MatchesAny(column, phrases) {
				found[category] = true
			}
		}

		if table.HasText(column) {
			sample, n := d.sample(table, column)
			scan.ValuesChecked = true
			scan.SampledValues = n
			for category, pattern := range valuePatterns {
				if pattern.MatchString(sample) {
					found[category] = true
				}
			}
		}

		// Stable category order for reports
		for _, category := range domain.AllPHICategories() {
			if found[category] {
				scan.Categories = append(scan.Categories, category)
				result.Categories[category] = append(result.Categories[category], column)
			}
		}
		result.Scans = append(result.Scans, scan)
	}

	result.PHIDetected = len(result.Categories) > 0
	result.Passed = !result.PHIDetected
	return result
}

// ScanValue reports the categories whose value patterns match a single string.
func (d *Detector) ScanValue(s string) []domain.PHICategory {
	var out []domain.PHICategory
	for _, category := range domain.AllPHICategories() {
		if p, ok := valuePatterns[category]; ok && p.MatchString(s) {
			out = append(out, category)
		}
	}
	return out
}

func (d *Detector) sample(table *domain.Table, column string) (string, int) {
	values := make([]string, 0, min(d.sampleSize, table.NumRows()))
	for i := 0; i < table.NumRows() && len(values) < d.sampleSize; i++ {
		if s, ok := table.Value(i, column).(string); ok && strings.TrimSpace(s) != "" {
			values = append(values, s)
		}
	}
	return strings.Join(values, sampleSeparator), len(values)
}
