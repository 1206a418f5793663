package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/pkg/completeness"
)

// findings accumulates the textual assessment.
type findings struct {
	issues          []string
	warnings        []string
	recommendations []string
}

func (f *findings) issue(format string, args ...any) {
	f.issues = append(f.issues, fmt.Sprintf(format, args...))
}

func (f *findings) warn(format string, args ...any) {
	f.warnings = append(f.warnings, fmt.Sprintf(format, args...))
}

func (f *findings) recommend(format string, args ...any) {
	f.recommendations = append(f.recommendations, fmt.Sprintf(format, args...))
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// assess derives the status, findings and ready-for-ML verdict. In strict
// mode every warning is escalated to an issue and readiness also requires
// an issue-free report.
func (e *Engine) assess(report *domain.ValidationReport, table *domain.Table) domain.Assessment {
	f := &findings{}

	sections := make([]string, 0, len(report.SectionErrors))
	for s := range report.SectionErrors {
		sections = append(sections, s)
	}
	sort.Strings(sections)
	for _, s := range sections {
		f.issue("%s check could not run: %s", s, report.SectionErrors[s])
	}

	assessPHI(f, report.PHI)
	assessDeidentification(f, report.Deidentification)
	e.assessCompleteness(f, report.Completeness)
	assessOutliers(f, report.Outliers)
	assessRanges(f, report.Ranges)
	assessDuplicates(f, report.Duplicates)
	assessTemporal(f, report.Temporal)

	if table.NumRows() == 0 {
		f.issue("Dataset has no rows")
	}

	if e.cfg.StrictMode && len(f.warnings) > 0 {
		for _, w := range f.warnings {
			f.issues = append(f.issues, "[strict] "+w)
		}
		f.warnings = nil
	}

	score := report.QualityScore.Overall
	phiDetected := report.PHIDetected()
	ready := !phiDetected && score >= e.scoring.ReadyThreshold
	if e.cfg.StrictMode && len(f.issues) > 0 {
		ready = false
	}

	switch {
	case phiDetected:
		f.recommend("Do not use this dataset for model training until all PHI has been removed")
	case ready:
		f.recommend("Dataset meets the quality requirements for model training")
	default:
		f.recommend("Address the listed issues and re-run validation before model training")
	}

	return domain.Assessment{
		Status:          domain.StatusFor(score, phiDetected),
		Issues:          nonNil(f.issues),
		Warnings:        nonNil(f.warnings),
		Recommendations: nonNil(f.recommendations),
		ReadyForML:      ready,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func assessPHI(f *findings, r *domain.PHIResult) {
	if r == nil || !r.PHIDetected {
		return
	}
	for _, category := range domain.AllPHICategories() {
		columns, ok := r.Categories[category]
		if !ok {
			continue
		}
		f.issue("PHI detected (%s) in columns: %s", category, strings.Join(columns, ", "))
	}
	f.recommend("Remove or de-identify PHI columns: %s", strings.Join(r.FlaggedColumns(), ", "))
}

func assessDeidentification(f *findings, r *domain.DeidentResult) {
	if r == nil {
		return
	}
	if !r.DirectIdentifiers.Passed {
		f.issue("Direct identifier columns present: %s", strings.Join(r.DirectIdentifiers.Columns, ", "))
	}
	if !r.DateGeneralization.Passed {
		var parts []string
		for _, col := range sortedKeys(r.DateGeneralization.Violations) {
			parts = append(parts, fmt.Sprintf("%s (%d)", col, r.DateGeneralization.Violations[col]))
		}
		f.issue("Full calendar dates found in date columns: %s", strings.Join(parts, ", "))
		f.recommend("Generalize dates to year only or convert them to relative intervals")
	}
	k := r.KAnonymity
	switch {
	case k.Assessed && !k.Satisfied:
		f.issue("k-anonymity not satisfied: min group size %d below k=%d (%d records at risk)",
			k.MinK, k.KThreshold, k.RecordsAtRisk)
		f.recommend("Generalize or suppress quasi-identifiers: %s", strings.Join(k.QuasiIdentifiers, ", "))
	case k.Warning != "":
		f.warn("%s", k.Warning)
	}
	if !r.AgeGeneralization.Passed {
		f.issue("Ages above 89 not top-coded to 90 in: %s", strings.Join(sortedKeys(r.AgeGeneralization.Violations), ", "))
	}
	if !r.ZipGeneralization.Passed {
		f.issue("ZIP codes with more than 3 digits in: %s", strings.Join(sortedKeys(r.ZipGeneralization.Violations), ", "))
	}
	for _, w := range r.Warnings {
		f.warn("%s", w)
	}
}

func (e *Engine) assessCompleteness(f *findings, r *domain.CompletenessResult) {
	if r == nil {
		return
	}
	if !r.Passed {
		f.issue("Overall completeness %.1f%% is below the %.0f%% threshold", r.OverallPct, r.Threshold*100)
	}
	if len(r.IncompleteColumns) > 0 {
		f.warn("Columns below the completeness threshold: %s", strings.Join(r.IncompleteColumns, ", "))
	}
	if len(r.EmptyColumns) > 0 {
		f.warn("Columns with no values: %s", strings.Join(r.EmptyColumns, ", "))
	}
	if r.EmptyRows > 0 {
		f.warn("%d rows contain no values", r.EmptyRows)
	}
	if drop := completeness.SuggestColumnsToDrop(r, e.cfg.DropThreshold); len(drop) > 0 {
		f.recommend("Consider dropping sparse columns: %s", strings.Join(drop, ", "))
	}
}

func assessOutliers(f *findings, r *domain.OutlierReport) {
	if r == nil {
		return
	}
	if !r.Passed {
		f.warn("Outlier density %.1f%% exceeds 5%% of numeric values", r.DensityPct)
		f.recommend("Review flagged outliers for data-entry errors before training")
	}
	for _, x := range r.Extreme {
		f.warn("%s: %d extreme values likely to be data-entry errors", x.Column, x.Count)
	}
}

func assessRanges(f *findings, r *domain.RangeReport) {
	if r == nil {
		return
	}
	for _, c := range r.Columns {
		if c.Violations == 0 {
			continue
		}
		f.issue("%s: %d values outside the plausible range [%g, %g]%s",
			c.Column, c.Violations, c.Spec.Min, c.Spec.Max, unitSuffix(c.Spec.Unit))
	}
	if r.ColumnsWithViolations > 0 {
		f.recommend("Correct or remove out-of-range values in %d columns", r.ColumnsWithViolations)
	}
}

func unitSuffix(unit string) string {
	if unit == "" {
		return ""
	}
	return " " + unit
}

func assessDuplicates(f *findings, r *domain.DuplicateReport) {
	if r == nil {
		return
	}
	if !r.Exact.Passed {
		f.issue("%d exact duplicate rows (%.1f%%) in %d groups", r.Exact.DuplicateRows, r.Exact.DuplicatePct, r.Exact.DuplicateGroups)
		f.recommend("Remove exact duplicate rows")
	}
	if r.Exact.Note != "" {
		f.warn("Exact duplicate check: %s", r.Exact.Note)
	}
	if r.Visit.Applicable && !r.Visit.Passed {
		f.issue("%d patient visits recorded more than once on the same day", r.Visit.DuplicatePairs)
	}
	if r.Fuzzy != nil {
		if r.Fuzzy.PairsFound > 0 {
			f.warn("%d near-duplicate row pairs found (similarity >= %.2f)", r.Fuzzy.PairsFound, r.Fuzzy.Threshold)
		}
		if r.Fuzzy.TimedOut {
			f.warn("Fuzzy duplicate search timed out; results are partial")
		}
	}
}

func assessTemporal(f *findings, r *domain.TemporalReport) {
	if r == nil {
		return
	}
	if !r.Applicable {
		f.warn("Temporal validation skipped: %s", r.Reason)
		return
	}
	if !r.Sequence.Passed {
		f.issue("%d patients have visits out of chronological order", r.Sequence.ViolatingPatients)
		f.recommend("Sort visits by date within each patient")
	}
	if !r.Range.Passed {
		f.issue("%d visit dates before %s and %d after %s",
			r.Range.BelowMin, r.Range.MinDate.Format(domain.DateLayout),
			r.Range.AboveMax, r.Range.MaxDate.Format(domain.DateLayout))
	}
	if r.Range.Unparseable > 0 {
		f.warn("%d visit dates could not be parsed", r.Range.Unparseable)
	}
	if !r.Intervals.Passed {
		f.warn("%d visit intervals shorter than %d days and %d longer than %d days",
			r.Intervals.TooShort, r.Intervals.MinIntervalDays, r.Intervals.TooLong, r.Intervals.MaxIntervalDays)
	}
	if r.Trend != nil {
		switch {
		case !r.Trend.Applicable:
			f.warn("Trend check skipped: %s", r.Trend.Reason)
		case !r.Trend.Passed:
			f.warn("%d patients show %s contradicting the expected %s trend",
				r.Trend.FlaggedCount, r.Trend.Column, r.Trend.Direction)
		}
	}
}
