package completeness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomed-dq-validator/internal/domain"
)

func TestCheckFullTable(t *testing.T) {
	tbl, err := domain.NewTable([]string{"a", "b"}, []domain.Row{
		{"a": 1, "b": "x"},
		{"a": 2, "b": "y"},
	})
	require.NoError(t, err)

	result := NewChecker(0).Check(tbl)

	assert.True(t, result.Passed)
	assert.Equal(t, 1.0, result.Overall)
	assert.Equal(t, 100.0, result.OverallPct)
	assert.Empty(t, result.IncompleteColumns)
	assert.Zero(t, result.RowsWithNulls)
	assert.Zero(t, result.EmptyRows)
}

func TestCheckPartialTable(t *testing.T) {
	tbl, err := domain.NewTable([]string{"RID", "MMSE", "ABETA", "notes"}, []domain.Row{
		{"RID": "P1", "MMSE": 28, "ABETA": 900.0},
		{"RID": "P2", "MMSE": nil, "ABETA": math.NaN()},
		{"RID": "P3", "MMSE": 25},
		{"RID": "P4", "MMSE": 30, "ABETA": 1100.0},
		{},
	})
	require.NoError(t, err)

	result := NewChecker(0.7).Check(tbl)

	// 9 of 20 cells are present
	assert.Equal(t, 20, result.TotalCells)
	assert.Equal(t, 9, result.NonNullCells)
	assert.InDelta(t, 0.45, result.Overall, 1e-9)
	assert.False(t, result.Passed)
	assert.NotEmpty(t, result.Message)

	require.Len(t, result.Columns, 4)
	assert.InDelta(t, 0.8, result.Columns[0].Completeness, 1e-9)
	assert.InDelta(t, 0.6, result.Columns[1].Completeness, 1e-9)
	assert.Equal(t, []string{"MMSE", "ABETA", "notes"}, result.IncompleteColumns)
	assert.Equal(t, []string{"notes"}, result.EmptyColumns)
	assert.Equal(t, 1, result.EmptyRows)
	assert.Equal(t, 5, result.RowsWithNulls)
	assert.Equal(t, 100.0, result.RowsWithNullsPct)

	assert.Equal(t, []string{"ABETA", "notes"}, SuggestColumnsToDrop(result, 0.5))
	assert.Equal(t, []string{"MMSE", "ABETA", "notes"}, SuggestColumnsToDrop(result, 0.7))
}

func TestCheckEmptyTable(t *testing.T) {
	tbl, err := domain.NewTable([]string{"a"}, nil)
	require.NoError(t, err)

	result := NewChecker(0).Check(tbl)

	assert.False(t, result.Passed)
	assert.Zero(t, result.Overall)
	assert.NotEmpty(t, result.Message)
	assert.Equal(t, []string{"a"}, result.EmptyColumns)
}

func TestCheckBounds(t *testing.T) {
	rows := make([]domain.Row, 0, 50)
	for i := 0; i < 50; i++ {
		r := domain.Row{"x": i}
		if i%3 == 0 {
			r["y"] = i
		}
		rows = append(rows, r)
	}
	tbl, err := domain.NewTable([]string{"x", "y"}, rows)
	require.NoError(t, err)

	result := NewChecker(0).Check(tbl)

	assert.GreaterOrEqual(t, result.Overall, 0.0)
	assert.LessOrEqual(t, result.Overall, 1.0)
	for _, c := range result.Columns {
		assert.GreaterOrEqual(t, c.Completeness, 0.0)
		assert.LessOrEqual(t, c.Completeness, 1.0)
	}
}
