package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomed-dq-validator/internal/domain"
)

var studyRoles = domain.ColumnRoles{PatientIDColumn: "RID", VisitDateColumn: "EXAMDATE"}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEngine(t *testing.T, mutate ...func(*domain.ValidationConfig)) *Engine {
	t.Helper()
	cfg := domain.DefaultValidationConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	engine, err := NewEngine(quietLogger(), cfg, domain.DefaultScoringConfig(), nil)
	require.NoError(t, err)
	return engine
}

// cleanStudy builds a de-identified longitudinal dataset: 100 patients with
// five visits each, six months apart, every value present and in range.
func cleanStudy(t *testing.T, extra ...string) *domain.Table {
	t.Helper()
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	columns := append([]string{"RID", "EXAMDATE", "AGE", "PTGENDER", "MMSE", "ABETA"}, extra...)

	var rows []domain.Row
	for p := 0; p < 100; p++ {
		gender := "F"
		if p%2 == 0 {
			gender = "M"
		}
		for v := 0; v < 5; v++ {
			i := p*5 + v
			row := domain.Row{
				"RID":      1000 + p,
				"EXAMDATE": base.AddDate(0, 0, v*180+p),
				"AGE":      70 + 2*(p%5),
				"PTGENDER": gender,
				"MMSE":     20 + i%11,
				"ABETA":    500 + float64((i*37)%400),
			}
			for _, col := range extra {
				row[col] = fmt.Sprintf("Patient %d", p)
			}
			rows = append(rows, row)
		}
	}
	table, err := domain.NewTable(columns, rows)
	require.NoError(t, err)
	return table
}

func TestValidateCleanDatasetScoresPerfect(t *testing.T) {
	engine := newTestEngine(t)
	table := cleanStudy(t)

	report, err := engine.Validate(context.Background(), table, ValidateOptions{
		DatasetName: "adni-sample",
		Roles:       studyRoles,
	})
	require.NoError(t, err)

	assert.Empty(t, report.SectionErrors)
	assert.Equal(t, 500, report.DatasetInfo.Rows)
	assert.Equal(t, 100, report.DatasetInfo.Patients)
	assert.NotEmpty(t, report.Metadata.ReportID)
	assert.Equal(t, ModeFull, report.Metadata.Mode)

	assert.False(t, report.PHI.PHIDetected)
	assert.True(t, report.Deidentification.VerificationPassed)
	assert.Equal(t, 1.0, report.Completeness.Overall)
	assert.Zero(t, report.Outliers.FlaggedCells)
	assert.True(t, report.Ranges.Passed)
	assert.Equal(t, 3, report.Ranges.ValidatedColumns)
	assert.True(t, report.Duplicates.Passed)
	assert.True(t, report.Temporal.Passed)

	assert.Equal(t, 100.0, report.QualityScore.Overall)
	assert.Equal(t, 100.0, report.QualityScore.MaxScore)
	assert.Equal(t, domain.GRADE_A, report.QualityScore.Grade)
	assert.Equal(t, domain.STATUS_EXCELLENT, report.Assessment.Status)
	assert.True(t, report.Assessment.ReadyForML)
	assert.Empty(t, report.Assessment.Issues)

	temporal, ok := report.QualityScore.Component(domain.SectionTemporal)
	require.True(t, ok)
	assert.True(t, temporal.Applicable)
	assert.Equal(t, 10.0, temporal.Points)
}

func TestValidatePatientNameBlocksReadiness(t *testing.T) {
	engine := newTestEngine(t)
	table := cleanStudy(t, "patient_name")

	report, err := engine.Validate(context.Background(), table, ValidateOptions{Roles: studyRoles})
	require.NoError(t, err)

	assert.True(t, report.PHIDetected())
	assert.Contains(t, report.PHI.Categories[domain.PHI_NAMES], "patient_name")
	assert.False(t, report.Deidentification.DirectIdentifiers.Passed)
	assert.False(t, report.Assessment.ReadyForML)
	assert.Equal(t, domain.STATUS_PHI_DETECTED, report.Assessment.Status)

	phiScore, ok := report.QualityScore.Component(domain.SectionPHI)
	require.True(t, ok)
	assert.Zero(t, phiScore.Points)
	assert.Less(t, report.QualityScore.Overall, 100.0)
}

func TestValidateRedistributesTemporalWeight(t *testing.T) {
	engine := newTestEngine(t)
	table := cleanStudy(t).DropColumns("EXAMDATE")

	report, err := engine.Validate(context.Background(), table, ValidateOptions{})
	require.NoError(t, err)

	assert.False(t, report.Temporal.Applicable)
	assert.Equal(t, 100.0, report.QualityScore.Overall)

	temporal, _ := report.QualityScore.Component(domain.SectionTemporal)
	assert.False(t, temporal.Applicable)
	assert.Zero(t, temporal.Weight)
	assert.NotEmpty(t, temporal.Note)

	completeness, _ := report.QualityScore.Component(domain.SectionCompleteness)
	assert.Equal(t, 25.0, completeness.Weight)
	ranges, _ := report.QualityScore.Component(domain.SectionRanges)
	assert.Equal(t, 20.0, ranges.Weight)

	assert.True(t, report.Assessment.ReadyForML)
	assert.NotEmpty(t, report.Assessment.Warnings)
}

func TestValidateUnparseableVisitDatesRedistributeTemporalWeight(t *testing.T) {
	engine := newTestEngine(t)
	source := cleanStudy(t)
	rows := make([]domain.Row, 0, source.NumRows())
	for _, record := range source.Records() {
		record["EXAMDATE"] = "not a date"
		rows = append(rows, domain.Row(record))
	}
	table, err := domain.NewTable(source.Columns(), rows)
	require.NoError(t, err)

	report, err := engine.Validate(context.Background(), table, ValidateOptions{Roles: studyRoles})
	require.NoError(t, err)

	assert.False(t, report.Temporal.Applicable)
	assert.False(t, report.Temporal.Passed)
	assert.Contains(t, report.Temporal.Reason, "EXAMDATE")

	temporal, _ := report.QualityScore.Component(domain.SectionTemporal)
	assert.False(t, temporal.Applicable)
	assert.Zero(t, temporal.Points)
	completeness, _ := report.QualityScore.Component(domain.SectionCompleteness)
	assert.Equal(t, 25.0, completeness.Weight)
	ranges, _ := report.QualityScore.Component(domain.SectionRanges)
	assert.Equal(t, 20.0, ranges.Weight)
}

func TestValidateRowsWithoutColumnsAreNotDuplicates(t *testing.T) {
	engine := newTestEngine(t)
	table, err := domain.NewTable(nil, []domain.Row{{}, {}, {}})
	require.NoError(t, err)

	report, err := engine.Validate(context.Background(), table, ValidateOptions{})
	require.NoError(t, err)

	require.NotNil(t, report.Duplicates)
	assert.True(t, report.Duplicates.Exact.Passed)
	assert.Zero(t, report.Duplicates.Exact.DuplicatePct)
	duplicates, _ := report.QualityScore.Component(domain.SectionDuplicates)
	assert.Equal(t, duplicates.Weight, duplicates.Points)
}

func TestValidateStrictModeEscalatesWarnings(t *testing.T) {
	engine := newTestEngine(t, func(c *domain.ValidationConfig) { c.StrictMode = true })
	table := cleanStudy(t).DropColumns("EXAMDATE")

	report, err := engine.Validate(context.Background(), table, ValidateOptions{})
	require.NoError(t, err)

	assert.True(t, report.Metadata.StrictMode)
	assert.Empty(t, report.Assessment.Warnings)
	require.NotEmpty(t, report.Assessment.Issues)
	assert.Contains(t, report.Assessment.Issues[0], "[strict]")
	assert.False(t, report.Assessment.ReadyForML)
}

func TestValidateScoresPartialFailures(t *testing.T) {
	engine := newTestEngine(t)
	rows := []domain.Row{
		{"MMSE": 28, "FAQ": 3},
		{"MMSE": 45, "FAQ": 2},
		{"MMSE": 28, "FAQ": 3},
		{"MMSE": 27},
	}
	table, err := domain.NewTable([]string{"MMSE", "FAQ"}, rows)
	require.NoError(t, err)

	report, err := engine.Validate(context.Background(), table, ValidateOptions{})
	require.NoError(t, err)

	require.Len(t, report.Ranges.Columns, 2)
	assert.Equal(t, 1, report.Ranges.ColumnsWithViolations)
	assert.Equal(t, 2, report.Duplicates.Exact.DuplicateRows)

	ranges, _ := report.QualityScore.Component(domain.SectionRanges)
	assert.InDelta(t, 10.0, ranges.Points, 1e-9)
	completeness, _ := report.QualityScore.Component(domain.SectionCompleteness)
	assert.InDelta(t, 25*7.0/8.0, completeness.Points, 0.01)
	dups, _ := report.QualityScore.Component(domain.SectionDuplicates)
	assert.Zero(t, dups.Points)

	var sum float64
	for _, c := range report.QualityScore.Components {
		sum += c.Points
		assert.LessOrEqual(t, c.Points, c.Weight)
	}
	assert.LessOrEqual(t, sum, report.QualityScore.MaxScore)
	assert.InDelta(t, sum, report.QualityScore.Overall, 0.01)
	assert.NotEmpty(t, report.Assessment.Issues)
}

func TestValidateRunsTrendAndFuzzyWhenRequested(t *testing.T) {
	engine := newTestEngine(t)
	table := cleanStudy(t)

	report, err := engine.Validate(context.Background(), table, ValidateOptions{
		Roles:          studyRoles,
		FuzzyColumns:   []string{"MMSE", "ABETA"},
		TrendColumn:    "MMSE",
		TrendDirection: domain.DECREASING,
	})
	require.NoError(t, err)

	require.NotNil(t, report.Duplicates.Fuzzy)
	assert.True(t, report.Duplicates.Fuzzy.Applicable)
	require.NotNil(t, report.Temporal.Trend)
	assert.Equal(t, domain.DECREASING, report.Temporal.Trend.Direction)
	assert.Equal(t, 100, report.Temporal.Trend.PatientsChecked)
}

func TestValidateCancelled(t *testing.T) {
	engine := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := engine.Validate(ctx, cleanStudy(t), ValidateOptions{Roles: studyRoles})

	assert.Nil(t, report)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestValidateNilTable(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Validate(context.Background(), nil, ValidateOptions{})

	var engineErr *domain.EngineError
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, domain.ErrInvalidInput, engineErr.Code)
}

func TestNewEngineRejectsBadWeights(t *testing.T) {
	scoring := domain.DefaultScoringConfig()
	scoring.PHIWeight = 50

	_, err := NewEngine(quietLogger(), domain.DefaultValidationConfig(), scoring, nil)

	assert.True(t, errors.Is(err, domain.ErrInvalidWeights))
}

func TestSectionRecorderIsolatesPanics(t *testing.T) {
	recorder := &sectionRecorder{logger: quietLogger()}

	recorder.guard(domain.SectionOutliers, func() error { panic("boom") })
	recorder.guard(domain.SectionRanges, func() error { return errors.New("registry unavailable") })
	recorder.guard(domain.SectionPHI, func() error { return nil })

	assert.Equal(t, map[string]string{
		domain.SectionOutliers: "panic: boom",
		domain.SectionRanges:   "registry unavailable",
	}, recorder.errors)
}

func TestScoreZeroesFaultedSections(t *testing.T) {
	engine := newTestEngine(t)
	report := &domain.ValidationReport{
		PHI:           &domain.PHIResult{Passed: true},
		SectionErrors: map[string]string{domain.SectionOutliers: "panic: boom"},
		Temporal:      &domain.TemporalReport{Applicability: domain.NotApplicable("no roles")},
	}

	score := engine.score(report)

	outliers, _ := score.Component(domain.SectionOutliers)
	assert.Zero(t, outliers.Points)
	assert.Contains(t, outliers.Note, "panic: boom")
	phiScore, _ := score.Component(domain.SectionPHI)
	assert.Equal(t, 20.0, phiScore.Points)
	assert.Equal(t, 20.0, score.Overall)
	assert.Equal(t, domain.GRADE_F, score.Grade)
}

func TestShares(t *testing.T) {
	assert.Equal(t, 1.0, rangeShare(&domain.RangeReport{}))
	assert.Equal(t, 0.5, rangeShare(&domain.RangeReport{ValidatedColumns: 2, ColumnsWithViolations: 1}))
	assert.InDelta(t, 0.5, outlierShare(&domain.OutlierReport{DensityPct: 5}, 10), 1e-9)
	assert.Equal(t, 0.0, clamp01(outlierShare(&domain.OutlierReport{DensityPct: 25}, 10)))
	assert.InDelta(t, 0.5, duplicateShare(&domain.DuplicateReport{Exact: domain.ExactDuplicateResult{DuplicatePct: 10}}, 5), 1e-9)
	assert.Equal(t, 0.0, phiShare(nil))
}
