package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomed-dq-validator/internal/domain"
)

func messyTable(t *testing.T) *domain.Table {
	t.Helper()
	rows := []domain.Row{
		{"RID": 1, "MMSE": 28, "NOTES": "baseline"},
		{"RID": 1, "MMSE": 28, "NOTES": "baseline"},
		{"RID": 2, "MMSE": 25},
		{"RID": 3, "MMSE": 22},
		{"RID": 4, "MMSE": 30},
	}
	table, err := domain.NewTable([]string{"RID", "MMSE", "NOTES"}, rows)
	require.NoError(t, err)
	return table
}

func TestQuickValidate(t *testing.T) {
	engine := newTestEngine(t)

	report, err := engine.QuickValidate(context.Background(), messyTable(t), "screening")
	require.NoError(t, err)

	assert.Equal(t, ModeQuick, report.Metadata.Mode)
	assert.Equal(t, "screening", report.Metadata.DatasetName)
	assert.False(t, report.PHI.PHIDetected)
	assert.Equal(t, 2, report.Duplicates.DuplicateRows)
	assert.False(t, report.Passed)
	assert.NotEmpty(t, report.Issues)
}

func TestQuickValidateCleanStudy(t *testing.T) {
	engine := newTestEngine(t)

	report, err := engine.QuickValidate(context.Background(), cleanStudy(t), "study")
	require.NoError(t, err)

	assert.True(t, report.Passed)
	assert.Empty(t, report.Issues)
}

func TestValidateAndCleanRefusesPHI(t *testing.T) {
	engine := newTestEngine(t)
	table := cleanStudy(t, "patient_name")

	result, err := engine.ValidateAndClean(context.Background(), table, ValidateOptions{Roles: studyRoles},
		domain.CleanOptions{RemoveDuplicates: true})
	require.NoError(t, err)

	assert.True(t, result.Refused)
	assert.Contains(t, result.Reason, "patient_name")
	assert.Nil(t, result.Table)
	assert.Nil(t, result.Report)
	assert.Empty(t, result.Operations)
}

func TestValidateAndClean(t *testing.T) {
	engine := newTestEngine(t)
	table := messyTable(t)

	result, err := engine.ValidateAndClean(context.Background(), table, ValidateOptions{DatasetName: "messy"},
		domain.CleanOptions{RemoveDuplicates: true, DropLowCompleteness: true, DropThreshold: 0.5})
	require.NoError(t, err)

	assert.False(t, result.Refused)
	require.Len(t, result.Operations, 2)

	dedup := result.Operations[0]
	assert.Equal(t, OpRemoveDuplicates, dedup.Operation)
	assert.Equal(t, 5, dedup.RowsBefore)
	assert.Equal(t, 4, dedup.RowsAfter)

	drop := result.Operations[1]
	assert.Equal(t, OpDropLowCompleteness, drop.Operation)
	assert.Equal(t, []string{"NOTES"}, drop.ColumnsRemoved)

	require.NotNil(t, result.Table)
	assert.Equal(t, 4, result.Table.NumRows())
	assert.Equal(t, []string{"RID", "MMSE"}, result.Table.Columns())
	assert.Equal(t, ModeClean, result.Report.Metadata.Mode)
	assert.Equal(t, 1.0, result.Report.Completeness.Overall)
	assert.True(t, result.Report.Duplicates.Exact.Passed)

	// the input is untouched
	assert.Equal(t, 5, table.NumRows())
	assert.Equal(t, 3, table.NumColumns())
}

func TestValidateAndCleanKeepsRoleColumns(t *testing.T) {
	engine := newTestEngine(t)
	rows := []domain.Row{
		{"RID": 1, "MMSE": 28},
		{"MMSE": 25},
		{"MMSE": 22},
	}
	table, err := domain.NewTable([]string{"RID", "MMSE"}, rows)
	require.NoError(t, err)

	result, err := engine.ValidateAndClean(context.Background(), table,
		ValidateOptions{Roles: domain.ColumnRoles{PatientIDColumn: "RID"}},
		domain.CleanOptions{DropLowCompleteness: true})
	require.NoError(t, err)

	require.Len(t, result.Operations, 1)
	assert.Empty(t, result.Operations[0].ColumnsRemoved)
	assert.Contains(t, result.Operations[0].Details, "RID")
	assert.Equal(t, 2, result.Table.NumColumns())
}

func TestValidateAndCleanInvalidKeep(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.ValidateAndClean(context.Background(), messyTable(t), ValidateOptions{},
		domain.CleanOptions{RemoveDuplicates: true, Keep: "middle"})

	assert.ErrorIs(t, err, domain.ErrInvalidKeep)
}
