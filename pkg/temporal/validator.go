// Package temporal checks longitudinal consistency of patient visits:
// chronological order, plausible dates, visit spacing and directional trends.
package temporal

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/pkg/stats"
)

// Options configures the temporal checks. Zero values select the defaults.
type Options struct {
	MinDate         time.Time
	MaxDate         time.Time
	MinIntervalDays int
	MaxIntervalDays int
	// MaxContradictionRate is the share of transitions against the expected
	// trend direction above which a patient is flagged.
	MaxContradictionRate float64
	// Now anchors the default upper date bound.
	Now func() time.Time
}

// DefaultMinDate is the earliest plausible visit date.
var DefaultMinDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	defaultMinIntervalDays  = 1
	defaultMaxIntervalDays  = 730
	defaultMaxContradiction = 0.30
)

// Validator runs the temporal checks.
type Validator struct {
	opts Options
}

// NewValidator creates a temporal validator.
func NewValidator(opts Options) *Validator {
	if opts.MinDate.IsZero() {
		opts.MinDate = DefaultMinDate
	}
	if opts.MinIntervalDays <= 0 {
		opts.MinIntervalDays = defaultMinIntervalDays
	}
	if opts.MaxIntervalDays <= 0 {
		opts.MaxIntervalDays = defaultMaxIntervalDays
	}
	if opts.MaxContradictionRate <= 0 || opts.MaxContradictionRate >= 1 {
		opts.MaxContradictionRate = defaultMaxContradiction
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Validator{opts: opts}
}

// maxDate is one year after now unless configured.
func (v *Validator) maxDate() time.Time {
	if !v.opts.MaxDate.IsZero() {
		return v.opts.MaxDate
	}
	return v.opts.Now().AddDate(1, 0, 0)
}

type visit struct {
	row  int
	date time.Time
}

type patientVisits struct {
	id     string
	visits []visit
}

// applicability checks that both role columns exist.
func applicability(table *domain.Table, roles domain.ColumnRoles) domain.Applicability {
	switch {
	case roles.PatientIDColumn == "":
		return domain.NotApplicable("no patient id column provided")
	case !table.HasColumn(roles.PatientIDColumn):
		return domain.NotApplicable(fmt.Sprintf("patient id column %q not found", roles.PatientIDColumn))
	case roles.VisitDateColumn == "":
		return domain.NotApplicable("no visit date column provided")
	case !table.HasColumn(roles.VisitDateColumn):
		return domain.NotApplicable(fmt.Sprintf("visit date column %q not found", roles.VisitDateColumn))
	}
	return domain.Applies()
}

// groupVisits collects dated visits per patient in row order. Patients are
// returned in order of first appearance.
func groupVisits(table *domain.Table, roles domain.ColumnRoles) []patientVisits {
	index := make(map[string]int)
	var out []patientVisits
	for i := 0; i < table.NumRows(); i++ {
		p := table.Value(i, roles.PatientIDColumn)
		d, ok := domain.ParseTime(table.Value(i, roles.VisitDateColumn))
		if p == nil || !ok {
			continue
		}
		id := domain.FormatValue(p)
		idx, seen := index[id]
		if !seen {
			idx = len(out)
			index[id] = idx
			out = append(out, patientVisits{id: id})
		}
		out[idx].visits = append(out[idx].visits, visit{row: i, date: d})
	}
	return out
}

// DateSequence verifies each patient's visit dates never decrease in row order.
func (v *Validator) DateSequence(table *domain.Table, roles domain.ColumnRoles) domain.DateSequenceResult {
	result := domain.DateSequenceResult{Applicability: applicability(table, roles)}
	if !result.Applicable {
		return result
	}

	for _, p := range groupVisits(table, roles) {
		if len(p.visits) < 2 {
			continue
		}
		result.PatientsChecked++
		ordered := true
		for i := 1; i < len(p.visits); i++ {
			if p.visits[i].date.Before(p.visits[i-1].date) {
				ordered = false
				break
			}
		}
		if ordered {
			continue
		}
		result.ViolatingPatients++
		if len(result.Violations) < domain.MaxExampleRows {
			dates := make([]string, len(p.visits))
			for i, vis := range p.visits {
				dates[i] = domain.FormatValue(vis.date)
			}
			result.Violations = append(result.Violations, domain.SequenceViolation{PatientID: p.id, Dates: dates})
		}
	}
	result.Passed = result.ViolatingPatients == 0
	return result
}

// DateRange verifies every visit date lies inside the plausible window.
func (v *Validator) DateRange(table *domain.Table, roles domain.ColumnRoles) domain.DateRangeResult {
	result := domain.DateRangeResult{
		Applicability: applicability(table, roles),
		MinDate:       v.opts.MinDate,
		MaxDate:       v.maxDate(),
	}
	if !result.Applicable {
		return result
	}

	for i := 0; i < table.NumRows(); i++ {
		raw := table.Value(i, roles.VisitDateColumn)
		if raw == nil {
			continue
		}
		d, ok := domain.ParseTime(raw)
		if !ok {
			result.Unparseable++
			continue
		}
		result.Checked++
		switch {
		case d.Before(result.MinDate):
			result.BelowMin++
		case d.After(result.MaxDate):
			result.AboveMax++
		default:
			continue
		}
		if len(result.ExampleRows) < domain.MaxExampleRows {
			result.ExampleRows = append(result.ExampleRows, i)
		}
	}
	result.Passed = result.BelowMin == 0 && result.AboveMax == 0
	return result
}

// civilDay drops the time of day so intervals count calendar days.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// VisitIntervals verifies consecutive visits of a patient, sorted by date,
// are between the minimum and maximum interval apart. Interval statistics
// are reported whether or not the check passes.
func (v *Validator) VisitIntervals(table *domain.Table, roles domain.ColumnRoles) domain.VisitIntervalResult {
	result := domain.VisitIntervalResult{
		Applicability:   applicability(table, roles),
		MinIntervalDays: v.opts.MinIntervalDays,
		MaxIntervalDays: v.opts.MaxIntervalDays,
	}
	if !result.Applicable {
		return result
	}

	var gaps []float64
	for _, p := range groupVisits(table, roles) {
		if len(p.visits) < 2 {
			continue
		}
		dates := make([]time.Time, len(p.visits))
		for i, vis := range p.visits {
			dates[i] = civilDay(vis.date)
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

		bad := false
		for i := 1; i < len(dates); i++ {
			days := math.Round(dates[i].Sub(dates[i-1]).Hours() / 24)
			gaps = append(gaps, days)
			switch {
			case days < float64(v.opts.MinIntervalDays):
				result.TooShort++
				bad = true
			case days > float64(v.opts.MaxIntervalDays):
				result.TooLong++
				bad = true
			}
		}
		if bad && len(result.ExamplePatients) < domain.MaxExampleRows {
			result.ExamplePatients = append(result.ExamplePatients, p.id)
		}
	}

	if len(gaps) > 0 {
		sorted := stats.Sorted(gaps)
		result.Stats = domain.IntervalStats{
			Count:  len(gaps),
			Mean:   stats.Mean(gaps),
			Median: stats.Median(sorted),
			Min:    sorted[0],
			Max:    sorted[len(sorted)-1],
			Std:    stats.StdDev(gaps),
		}
	}
	result.Passed = result.TooShort == 0 && result.TooLong == 0
	return result
}

// Trend flags patients whose consecutive values of column, in date order,
// move against the expected direction in more than the allowed share of
// transitions. It is a soft heuristic for systematic data-entry reversals.
func (v *Validator) Trend(table *domain.Table, roles domain.ColumnRoles, column string, direction domain.TrendDirection) domain.TrendResult {
	result := domain.TrendResult{
		Applicability: applicability(table, roles),
		Column:        column,
		Direction:     direction,
		MaxRate:       v.opts.MaxContradictionRate,
	}
	switch {
	case !result.Applicable:
		return result
	case !table.HasColumn(column):
		result.Applicability = domain.NotApplicable(fmt.Sprintf("trend column %q not found", column))
		return result
	case !direction.IsValid():
		result.Applicability = domain.NotApplicable(fmt.Sprintf("unknown trend direction %q", direction))
		return result
	}

	for _, p := range groupVisits(table, roles) {
		visits := make([]visit, len(p.visits))
		copy(visits, p.visits)
		sort.SliceStable(visits, func(i, j int) bool { return visits[i].date.Before(visits[j].date) })

		var values []float64
		for _, vis := range visits {
			if f, ok := domain.ToFloat(table.Value(vis.row, column)); ok {
				values = append(values, f)
			}
		}
		if len(values) < 2 {
			continue
		}
		result.PatientsChecked++

		flag := domain.TrendFlag{PatientID: p.id, Transitions: len(values) - 1}
		for i := 1; i < len(values); i++ {
			delta := values[i] - values[i-1]
			if (direction == domain.INCREASING && delta < 0) || (direction == domain.DECREASING && delta > 0) {
				flag.Contradictions++
			}
		}
		flag.ContradictionRate = float64(flag.Contradictions) / float64(flag.Transitions)
		if flag.ContradictionRate > v.opts.MaxContradictionRate {
			result.FlaggedCount++
			if len(result.Flagged) < domain.MaxExampleRows {
				result.Flagged = append(result.Flagged, flag)
			}
		}
	}
	result.Passed = result.FlaggedCount == 0
	return result
}

// Comprehensive runs the sequence, range and interval checks and passes only
// when all three pass. A visit date column without a single parseable date
// makes the report not applicable.
func (v *Validator) Comprehensive(table *domain.Table, roles domain.ColumnRoles) *domain.TemporalReport {
	report := &domain.TemporalReport{
		Applicability: applicability(table, roles),
		ChecksTotal:   3,
	}
	report.Sequence = v.DateSequence(table, roles)
	report.Range = v.DateRange(table, roles)
	report.Intervals = v.VisitIntervals(table, roles)
	if !report.Applicable {
		return report
	}
	if report.Range.Checked == 0 {
		report.Applicability = domain.NotApplicable(fmt.Sprintf(
			"no parseable visit dates in column %q (%d unparseable)", roles.VisitDateColumn, report.Range.Unparseable))
		return report
	}

	for _, passed := range []bool{report.Sequence.Passed, report.Range.Passed, report.Intervals.Passed} {
		if passed {
			report.ChecksPassed++
		}
	}
	report.Passed = report.ChecksPassed == report.ChecksTotal
	return report
}
