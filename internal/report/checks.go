package report

import (
	"fmt"

	"github.com/biomed-dq-validator/internal/domain"
)

// CheckRow is a one-line outcome of a report section.
type CheckRow struct {
	Name   string
	Status string
	Detail string
}

const (
	statusPass  = "PASS"
	statusFail  = "FAIL"
	statusSkip  = "SKIP"
	statusError = "ERROR"
)

func checkRows(r *domain.ValidationReport) []CheckRow {
	var rows []CheckRow
	add := func(name string, present bool, passed bool, detail string) {
		switch {
		case r.SectionErrors[name] != "":
			rows = append(rows, CheckRow{name, statusError, r.SectionErrors[name]})
		case !present:
			rows = append(rows, CheckRow{name, statusSkip, "not run"})
		default:
			rows = append(rows, CheckRow{name, passFail(passed), detail})
		}
	}

	if p := r.PHI; p != nil {
		add(domain.SectionPHI, true, !p.PHIDetected, fmt.Sprintf("%d columns flagged", len(p.FlaggedColumns())))
	} else {
		add(domain.SectionPHI, false, false, "")
	}

	if d := r.Deidentification; d != nil {
		add(domain.SectionDeidentify, true, d.VerificationPassed,
			fmt.Sprintf("%d/%d sub-checks passed, min k %d", d.ChecksPassed, d.ChecksTotal, d.KAnonymity.MinK))
	} else {
		add(domain.SectionDeidentify, false, false, "")
	}

	if c := r.Completeness; c != nil {
		add(domain.SectionCompleteness, true, c.Passed,
			fmt.Sprintf("%.1f%% complete, %d incomplete columns", c.OverallPct, len(c.IncompleteColumns)))
	} else {
		add(domain.SectionCompleteness, false, false, "")
	}

	if o := r.Outliers; o != nil {
		add(domain.SectionOutliers, true, o.Passed,
			fmt.Sprintf("%d of %d numeric values flagged (%.2f%%)", o.FlaggedCells, o.NumericCells, o.DensityPct))
	} else {
		add(domain.SectionOutliers, false, false, "")
	}

	if g := r.Ranges; g != nil {
		add(domain.SectionRanges, true, g.Passed,
			fmt.Sprintf("%d columns validated, %d with violations", g.ValidatedColumns, g.ColumnsWithViolations))
	} else {
		add(domain.SectionRanges, false, false, "")
	}

	if d := r.Duplicates; d != nil {
		add(domain.SectionDuplicates, true, d.Passed,
			fmt.Sprintf("%d duplicate rows, %d repeated visits", d.Exact.DuplicateRows, d.Visit.DuplicatePairs))
	} else {
		add(domain.SectionDuplicates, false, false, "")
	}

	switch t := r.Temporal; {
	case t != nil && !t.Applicable:
		rows = append(rows, CheckRow{domain.SectionTemporal, statusSkip, t.Reason})
	case t != nil:
		add(domain.SectionTemporal, true, t.Passed, fmt.Sprintf("%d/%d sub-checks passed", t.ChecksPassed, t.ChecksTotal))
	default:
		add(domain.SectionTemporal, false, false, "")
	}
	return rows
}
