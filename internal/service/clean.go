package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/pkg/completeness"
	"github.com/biomed-dq-validator/pkg/duplicates"
)

// Cleaning operation names
const (
	OpRemoveDuplicates    = "remove_duplicates"
	OpDropLowCompleteness = "drop_low_completeness"
)

// QuickValidate is a fast pre-screen running only PHI detection,
// completeness and exact duplicate checks.
func (e *Engine) QuickValidate(ctx context.Context, table *domain.Table, datasetName string) (*domain.QuickReport, error) {
	if table == nil {
		return nil, domain.NewEngineError(domain.ErrInvalidInput, "table is required", "", "")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := e.now()

	exact, err := duplicates.Exact(table, nil)
	if err != nil {
		return nil, fmt.Errorf("exact duplicate check: %w", err)
	}
	report := &domain.QuickReport{
		Metadata:     e.metadata(datasetName, ModeQuick, start),
		DatasetInfo:  datasetInfo(table, domain.ColumnRoles{}),
		PHI:          e.phi.Detect(table),
		Completeness: e.completeness.Check(table),
		Duplicates:   &exact,
	}

	f := &findings{}
	assessPHI(f, report.PHI)
	if !report.Completeness.Passed {
		f.issue("Overall completeness %.1f%% is below the %.0f%% threshold",
			report.Completeness.OverallPct, report.Completeness.Threshold*100)
	}
	if !exact.Passed {
		f.issue("%d exact duplicate rows (%.1f%%)", exact.DuplicateRows, exact.DuplicatePct)
	}
	report.Issues = nonNil(f.issues)
	report.Passed = !report.PHI.PHIDetected && report.Completeness.Passed && exact.Passed
	report.Metadata.Duration = e.now().Sub(start)

	e.logger.WithFields(logrus.Fields{
		"report_id": report.Metadata.ReportID,
		"dataset":   datasetName,
		"rows":      table.NumRows(),
		"passed":    report.Passed,
	}).Info("Quick validation completed")

	return report, nil
}

// ValidateAndClean refuses to touch a table containing PHI. Otherwise it
// applies the opted-in cleaning steps to a copy of the table and validates
// the result. The input table is never modified.
func (e *Engine) ValidateAndClean(ctx context.Context, table *domain.Table, opts ValidateOptions, clean domain.CleanOptions) (*domain.CleanResult, error) {
	if table == nil {
		return nil, domain.NewEngineError(domain.ErrInvalidInput, "table is required", "", "")
	}
	logger := e.logger.WithFields(logrus.Fields{
		"dataset": opts.DatasetName,
		"rows":    table.NumRows(),
	})

	// Step 1: PHI gate
	result := &domain.CleanResult{PHI: e.phi.Detect(table), Operations: []domain.CleanOperation{}}
	if result.PHI.PHIDetected {
		result.Refused = true
		result.Reason = fmt.Sprintf("PHI detected in columns: %s; remove PHI before cleaning",
			strings.Join(result.PHI.FlaggedColumns(), ", "))
		logger.Warn("Refusing to clean dataset containing PHI")
		return result, nil
	}

	current := table

	// Step 2: exact duplicate removal
	if clean.RemoveDuplicates {
		cleaned, stats, err := duplicates.RemoveDuplicates(current, clean.DuplicateSubset, clean.Keep)
		if err != nil {
			return nil, fmt.Errorf("failed to remove duplicates: %w", err)
		}
		result.Operations = append(result.Operations, domain.CleanOperation{
			Operation:  OpRemoveDuplicates,
			Details:    fmt.Sprintf("removed %d exact duplicate rows keeping %s occurrence", stats.RemovedRows, stats.Keep),
			RowsBefore: stats.OriginalRows,
			RowsAfter:  stats.RemainingRows,
		})
		current = cleaned
	}

	// Step 3: sparse column removal
	if clean.DropLowCompleteness {
		threshold := clean.DropThreshold
		if threshold <= 0 {
			threshold = e.cfg.DropThreshold
		}
		op := e.dropSparseColumns(current, threshold, opts.Roles)
		if len(op.ColumnsRemoved) > 0 {
			current = current.DropColumns(op.ColumnsRemoved...)
		}
		result.Operations = append(result.Operations, op)
	}

	// Step 4: validate the cleaned table
	report, err := e.Validate(ctx, current, opts)
	if err != nil {
		return nil, err
	}
	report.Metadata.Mode = ModeClean
	result.Report = report
	result.Table = current

	logger.WithFields(logrus.Fields{
		"report_id":  report.Metadata.ReportID,
		"operations": len(result.Operations),
		"rows_after": current.NumRows(),
	}).Info("Dataset cleaned")

	return result, nil
}

// dropSparseColumns selects columns below threshold completeness. Role
// columns are kept, and at least one column always survives.
func (e *Engine) dropSparseColumns(table *domain.Table, threshold float64, roles domain.ColumnRoles) domain.CleanOperation {
	op := domain.CleanOperation{
		Operation:  OpDropLowCompleteness,
		RowsBefore: table.NumRows(),
		RowsAfter:  table.NumRows(),
	}
	check := e.completeness.Check(table)

	var kept []string
	for _, col := range completeness.SuggestColumnsToDrop(check, threshold) {
		if col == roles.PatientIDColumn || col == roles.VisitDateColumn {
			kept = append(kept, col)
			continue
		}
		op.ColumnsRemoved = append(op.ColumnsRemoved, col)
	}
	if len(op.ColumnsRemoved) >= table.NumColumns() {
		op.ColumnsRemoved = nil
		op.Details = "every column is below the drop threshold; nothing removed"
		return op
	}

	op.Details = fmt.Sprintf("removed %d columns below %.0f%% completeness", len(op.ColumnsRemoved), threshold*100)
	if len(kept) > 0 {
		op.Details += "; kept role columns " + strings.Join(kept, ", ")
	}
	return op
}
