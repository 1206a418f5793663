// Package deident verifies Safe Harbor style de-identification: direct
// identifiers removed, dates reduced to years, ages top-coded at 90, ZIP codes
// truncated, and k-anonymity over quasi-identifiers.
package deident

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/pkg/phi"
)

// DefaultKThreshold is the minimum equivalence class size.
const DefaultKThreshold = 5

// Ages above this value must be coalesced into a single top code.
const (
	maxReportableAge = 89
	ageTopCode       = 90
)

// Generalized ZIP codes keep at most this many digits.
const maxZipDigits = 3

const checksTotal = 5

var nonDigit = regexp.MustCompile(`\D`)

var (
	ageKeywords = []string{"age", "ptage", "age at visit", "age years", "entry age"}
	zipKeywords = []string{"zip", "zipcode", "zip code", "zip3", "postal", "postal code", "postcode"}
)

// Options tunes a verification run.
type Options struct {
	// QuasiIdentifiers overrides auto-detection when non-empty.
	QuasiIdentifiers []string
	KThreshold       int
	// ExemptDateColumns are date columns allowed to hold full dates, such
	// as the visit date needed for longitudinal checks.
	ExemptDateColumns []string
}

// Verifier checks a table against the de-identification rules.
type Verifier struct {
	scanner *phi.Detector
}

// NewVerifier creates a new de-identification verifier
func NewVerifier() *Verifier {
	return &Verifier{scanner: phi.NewDetector(0)}
}

// Verify runs the five sub-checks. VerificationPassed is their logical AND.
func (v *Verifier) Verify(table *domain.Table, opts Options) *domain.DeidentResult {
	if opts.KThreshold <= 0 {
		opts.KThreshold = DefaultKThreshold
	}

	result := &domain.DeidentResult{ChecksTotal: checksTotal}

	result.DirectIdentifiers = v.checkDirectIdentifiers(table)
	result.DateGeneralization = v.checkDateGeneralization(table, opts.ExemptDateColumns)
	result.KAnonymity = KAnonymity(table, opts.QuasiIdentifiers, opts.KThreshold)
	result.AgeGeneralization = v.checkAgeGeneralization(table)
	result.ZipGeneralization = v.checkZipGeneralization(table)

	for _, passed := range []bool{
		result.DirectIdentifiers.Passed,
		result.DateGeneralization.Passed,
		result.KAnonymity.Satisfied,
		result.AgeGeneralization.Passed,
		result.ZipGeneralization.Passed,
	} {
		if passed {
			result.ChecksPassed++
		}
	}
	result.VerificationPassed = result.ChecksPassed == checksTotal
	result.ResidualPHI = v.scanQuasiIdentifiers(table, result.KAnonymity.QuasiIdentifiers)

	if result.KAnonymity.Warning != "" {
		result.Warnings = append(result.Warnings, result.KAnonymity.Warning)
	}
	if n := len(result.DateGeneralization.ExemptedColumns); n > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"full dates retained in exempted column(s): %s", strings.Join(result.DateGeneralization.ExemptedColumns, ", ")))
	}
	if len(result.ResidualPHI) > 0 {
		columns := make([]string, 0, len(result.ResidualPHI))
		for column := range result.ResidualPHI {
			columns = append(columns, column)
		}
		sort.Strings(columns)
		parts := make([]string, len(columns))
		for i, column := range columns {
			parts[i] = fmt.Sprintf("%s (%d)", column, result.ResidualPHI[column])
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"PHI patterns in quasi-identifier values: %s", strings.Join(parts, ", ")))
	}

	return result
}

// scanQuasiIdentifiers counts, per quasi-identifier column, the text values
// matching a PHI value pattern. Five-digit ZIPs in ZIP columns are left to the
// ZIP generalization check.
func (v *Verifier) scanQuasiIdentifiers(table *domain.Table, columns []string) map[string]int {
	var out map[string]int
	for _, column := range columns {
		zipColumn := phi.MatchesAny(column, zipKeywords)
		count := 0
		for i := 0; i < table.NumRows(); i++ {
			s, ok := table.Value(i, column).(string)
			if !ok || strings.TrimSpace(s) == "" {
				continue
			}
			for _, category := range v.scanner.ScanValue(s) {
				if zipColumn && category == domain.PHI_ZIP {
					continue
				}
				count++
				break
			}
		}
		if count > 0 {
			if out == nil {
				out = make(map[string]int)
			}
			out[column] = count
		}
	}
	return out
}

func (v *Verifier) checkDirectIdentifiers(table *domain.Table) domain.DirectIdentifierCheck {
	columns := phi.DirectIdentifierColumns(table.Columns())
	return domain.DirectIdentifierCheck{
		Passed:  len(columns) == 0,
		Columns: columns,
	}
}

// isDateColumn reports whether a column name suggests a date. Columns naming
// a year are already generalized.
func isDateColumn(column string) bool {
	words := phi.NormalizeColumnName(column)
	joined := strings.Join(words, " ")
	if strings.Contains(joined, "year") {
		return false
	}
	for _, w := range words {
		if strings.Contains(w, "date") || w == "dob" || w == "dod" || w == "birthday" || w == "dt" {
			return true
		}
	}
	return false
}

func (v *Verifier) checkDateGeneralization(table *domain.Table, exempt []string) domain.DateGeneralizationCheck {
	check := domain.DateGeneralizationCheck{Passed: true}
	exempted := make(map[string]bool, len(exempt))
	for _, c := range exempt {
		exempted[c] = true
	}

	for _, column := range table.Columns() {
		if !isDateColumn(column) {
			continue
		}
		if exempted[column] {
			check.ExemptedColumns = append(check.ExemptedColumns, column)
			continue
		}
		check.CheckedColumns = append(check.CheckedColumns, column)

		full := 0
		for i := 0; i < table.NumRows(); i++ {
			value := table.Value(i, column)
			if value == nil || domain.IsYearOnly(value) {
				continue
			}
			if _, ok := domain.ParseTime(value); ok {
				full++
			}
		}
		if full > 0 {
			if check.Violations == nil {
				check.Violations = make(map[string]int)
			}
			check.Violations[column] = full
			check.Passed = false
		}
	}
	return check
}

func (v *Verifier) checkAgeGeneralization(table *domain.Table) domain.ValueGeneralizationCheck {
	return v.checkValues(table, ageKeywords, func(value any) bool {
		age, ok := domain.ParseNumber(value)
		return ok && age > maxReportableAge && age != ageTopCode
	})
}

func (v *Verifier) checkZipGeneralization(table *domain.Table) domain.ValueGeneralizationCheck {
	return v.checkValues(table, zipKeywords, func(value any) bool {
		return len(nonDigit.ReplaceAllString(domain.FormatValue(value), "")) > maxZipDigits
	})
}

// checkValues applies a per-value violation rule to every column matching
// the keywords.
func (v *Verifier) checkValues(table *domain.Table, keywords []string, violates func(any) bool) domain.ValueGeneralizationCheck {
	check := domain.ValueGeneralizationCheck{Passed: true}

	for _, column := range table.Columns() {
		if !phi.MatchesAny(column, keywords) {
			continue
		}
		check.Columns = append(check.Columns, column)

		count := 0
		for i := 0; i < table.NumRows(); i++ {
			value := table.Value(i, column)
			if value == nil || !violates(value) {
				continue
			}
			count++
			if len(check.ExampleRows) < domain.MaxExampleRows {
				check.ExampleRows = append(check.ExampleRows, i)
			}
		}
		if count > 0 {
			if check.Violations == nil {
				check.Violations = make(map[string]int)
			}
			check.Violations[column] = count
			check.Passed = false
		}
	}
	sort.Ints(check.ExampleRows)
	return check
}
