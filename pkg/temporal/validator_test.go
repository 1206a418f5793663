package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomed-dq-validator/internal/domain"
)

var roles = domain.ColumnRoles{PatientIDColumn: "RID", VisitDateColumn: "EXAMDATE"}

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func visits(t *testing.T, rows ...domain.Row) *domain.Table {
	t.Helper()
	tbl, err := domain.NewTable([]string{"RID", "EXAMDATE", "MMSE"}, rows)
	require.NoError(t, err)
	return tbl
}

func fixedNow() time.Time { return day("2024-06-01") }

func newValidator() *Validator {
	return NewValidator(Options{Now: fixedNow})
}

func TestDateSequence(t *testing.T) {
	tbl := visits(t,
		domain.Row{"RID": "P1", "EXAMDATE": day("2020-01-01")},
		domain.Row{"RID": "P1", "EXAMDATE": day("2019-06-01")},
		domain.Row{"RID": "P2", "EXAMDATE": day("2019-01-01")},
		domain.Row{"RID": "P2", "EXAMDATE": day("2020-01-01")},
		domain.Row{"RID": "P3", "EXAMDATE": day("2021-01-01")},
	)

	result := newValidator().DateSequence(tbl, roles)

	assert.True(t, result.Applicable)
	assert.False(t, result.Passed)
	assert.Equal(t, 2, result.PatientsChecked)
	assert.Equal(t, 1, result.ViolatingPatients)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "P1", result.Violations[0].PatientID)
	assert.Equal(t, []string{"2020-01-01", "2019-06-01"}, result.Violations[0].Dates)
}

func TestDateSequenceParsesStrings(t *testing.T) {
	tbl := visits(t,
		domain.Row{"RID": 7, "EXAMDATE": "2019-01-01"},
		domain.Row{"RID": 7, "EXAMDATE": "2019-03-01"},
	)

	result := newValidator().DateSequence(tbl, roles)

	assert.True(t, result.Passed)
	assert.Equal(t, 1, result.PatientsChecked)
}

func TestNotApplicableWithoutRoles(t *testing.T) {
	tbl := visits(t, domain.Row{"RID": "P1", "EXAMDATE": day("2020-01-01")})
	v := newValidator()

	seq := v.DateSequence(tbl, domain.ColumnRoles{PatientIDColumn: "RID"})
	assert.False(t, seq.Applicable)
	assert.NotEmpty(t, seq.Reason)

	missing := v.VisitIntervals(tbl, domain.ColumnRoles{PatientIDColumn: "RID", VisitDateColumn: "VISDATE"})
	assert.False(t, missing.Applicable)
	assert.Contains(t, missing.Reason, "VISDATE")

	report := v.Comprehensive(tbl, domain.ColumnRoles{})
	assert.False(t, report.Applicable)
	assert.Zero(t, report.ChecksPassed)
}

func TestDateRange(t *testing.T) {
	tbl := visits(t,
		domain.Row{"RID": "P1", "EXAMDATE": day("1850-01-01")},
		domain.Row{"RID": "P1", "EXAMDATE": day("2020-01-01")},
		domain.Row{"RID": "P2", "EXAMDATE": day("2030-01-01")},
		domain.Row{"RID": "P2", "EXAMDATE": "not a date"},
		domain.Row{"RID": "P3"},
	)

	result := newValidator().DateRange(tbl, roles)

	assert.False(t, result.Passed)
	assert.Equal(t, 3, result.Checked)
	assert.Equal(t, 1, result.BelowMin)
	assert.Equal(t, 1, result.AboveMax)
	assert.Equal(t, 1, result.Unparseable)
	assert.Equal(t, []int{0, 2}, result.ExampleRows)
	assert.Equal(t, DefaultMinDate, result.MinDate)
	assert.Equal(t, day("2025-06-01"), result.MaxDate)
}

func TestVisitIntervals(t *testing.T) {
	tbl := visits(t,
		domain.Row{"RID": "P1", "EXAMDATE": day("2020-01-01")},
		domain.Row{"RID": "P1", "EXAMDATE": day("2020-07-01")},
		domain.Row{"RID": "P2", "EXAMDATE": day("2020-01-01")},
		domain.Row{"RID": "P2", "EXAMDATE": day("2020-01-01")},
		domain.Row{"RID": "P3", "EXAMDATE": day("2015-01-01")},
		domain.Row{"RID": "P3", "EXAMDATE": day("2020-01-01")},
	)

	result := newValidator().VisitIntervals(tbl, roles)

	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.TooShort)
	assert.Equal(t, 1, result.TooLong)
	assert.Equal(t, []string{"P2", "P3"}, result.ExamplePatients)
	assert.Equal(t, 3, result.Stats.Count)
	assert.Equal(t, 0.0, result.Stats.Min)
	assert.Equal(t, 1826.0, result.Stats.Max)
	assert.Equal(t, 182.0, result.Stats.Median)
}

func TestVisitIntervalsSortsBeforeMeasuring(t *testing.T) {
	tbl := visits(t,
		domain.Row{"RID": "P1", "EXAMDATE": day("2020-07-01")},
		domain.Row{"RID": "P1", "EXAMDATE": day("2020-01-01")},
		domain.Row{"RID": "P1", "EXAMDATE": day("2021-01-01")},
	)

	result := newValidator().VisitIntervals(tbl, roles)

	assert.True(t, result.Passed)
	assert.Equal(t, 2, result.Stats.Count)
	assert.Equal(t, 182.0, result.Stats.Min)
	assert.Equal(t, 184.0, result.Stats.Max)
}

func TestTrend(t *testing.T) {
	tbl := visits(t,
		domain.Row{"RID": "P1", "EXAMDATE": day("2020-01-01"), "MMSE": 29},
		domain.Row{"RID": "P1", "EXAMDATE": day("2021-01-01"), "MMSE": 27},
		domain.Row{"RID": "P1", "EXAMDATE": day("2022-01-01"), "MMSE": 25},
		domain.Row{"RID": "P2", "EXAMDATE": day("2022-01-01"), "MMSE": 22},
		domain.Row{"RID": "P2", "EXAMDATE": day("2020-01-01"), "MMSE": 24},
		domain.Row{"RID": "P2", "EXAMDATE": day("2021-01-01"), "MMSE": 28},
		domain.Row{"RID": "P3", "EXAMDATE": day("2020-01-01"), "MMSE": 30},
	)

	result := newValidator().Trend(tbl, roles, "MMSE", domain.DECREASING)

	assert.True(t, result.Applicable)
	assert.False(t, result.Passed)
	assert.Equal(t, 2, result.PatientsChecked)
	assert.Equal(t, 1, result.FlaggedCount)
	require.Len(t, result.Flagged, 1)
	assert.Equal(t, "P2", result.Flagged[0].PatientID)
	assert.Equal(t, 1, result.Flagged[0].Contradictions)
	assert.InDelta(t, 0.5, result.Flagged[0].ContradictionRate, 1e-9)
}

func TestTrendUnknownColumn(t *testing.T) {
	tbl := visits(t, domain.Row{"RID": "P1", "EXAMDATE": day("2020-01-01")})

	result := newValidator().Trend(tbl, roles, "ADAS13", domain.INCREASING)

	assert.False(t, result.Applicable)
	assert.Contains(t, result.Reason, "ADAS13")
}

func TestComprehensive(t *testing.T) {
	ordered := visits(t,
		domain.Row{"RID": "P1", "EXAMDATE": day("2019-01-01")},
		domain.Row{"RID": "P1", "EXAMDATE": day("2019-07-01")},
		domain.Row{"RID": "P2", "EXAMDATE": day("2020-01-01")},
		domain.Row{"RID": "P2", "EXAMDATE": day("2020-12-01")},
	)
	report := newValidator().Comprehensive(ordered, roles)
	assert.True(t, report.Applicable)
	assert.True(t, report.Passed)
	assert.Equal(t, 3, report.ChecksPassed)
	assert.Equal(t, 3, report.ChecksTotal)

	reversed := visits(t,
		domain.Row{"RID": "P1", "EXAMDATE": day("2019-07-01")},
		domain.Row{"RID": "P1", "EXAMDATE": day("2019-01-01")},
	)
	report = newValidator().Comprehensive(reversed, roles)
	assert.False(t, report.Passed)
	assert.Equal(t, 2, report.ChecksPassed)
}

func TestDateSequenceThreeVisitsSortedAndUnsorted(t *testing.T) {
	p2 := []domain.Row{
		{"RID": "P2", "EXAMDATE": day("2019-02-01")},
		{"RID": "P2", "EXAMDATE": day("2019-08-01")},
	}

	unsorted := visits(t, append([]domain.Row{
		{"RID": "P1", "EXAMDATE": day("2020-01-01")},
		{"RID": "P1", "EXAMDATE": day("2019-01-01")},
		{"RID": "P1", "EXAMDATE": day("2019-07-01")},
	}, p2...)...)
	sorted := visits(t, append([]domain.Row{
		{"RID": "P1", "EXAMDATE": day("2019-01-01")},
		{"RID": "P1", "EXAMDATE": day("2019-07-01")},
		{"RID": "P1", "EXAMDATE": day("2020-01-01")},
	}, p2...)...)
	v := newValidator()

	result := v.DateSequence(unsorted, roles)
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.ViolatingPatients)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "P1", result.Violations[0].PatientID)
	assert.Equal(t, []string{"2020-01-01", "2019-01-01", "2019-07-01"}, result.Violations[0].Dates)
	assert.False(t, v.Comprehensive(unsorted, roles).Passed)

	result = v.DateSequence(sorted, roles)
	assert.True(t, result.Passed)
	assert.Equal(t, 2, result.PatientsChecked)
	assert.Empty(t, result.Violations)
	assert.True(t, v.Comprehensive(sorted, roles).Passed)
}

func TestComprehensiveWithoutParseableDates(t *testing.T) {
	tbl := visits(t,
		domain.Row{"RID": "P1", "EXAMDATE": "not a date"},
		domain.Row{"RID": "P1", "EXAMDATE": "unknown"},
		domain.Row{"RID": "P2", "EXAMDATE": "n/a"},
	)

	report := newValidator().Comprehensive(tbl, roles)

	assert.False(t, report.Applicable)
	assert.False(t, report.Passed)
	assert.Zero(t, report.ChecksPassed)
	assert.Contains(t, report.Reason, "EXAMDATE")
	assert.Equal(t, 3, report.Range.Unparseable)
}
