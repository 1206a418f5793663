// Package completeness measures null coverage per column and overall.
package completeness

import (
	"fmt"

	"github.com/biomed-dq-validator/internal/domain"
)

// DefaultThreshold is the minimum overall completeness for a passing table.
const DefaultThreshold = 0.70

// DefaultDropThreshold is the completeness below which a column is
// suggested for removal.
const DefaultDropThreshold = 0.50

// Checker computes completeness statistics.
type Checker struct {
	threshold float64
}

// NewChecker creates a checker with the given pass threshold in [0,1]. An
// out-of-range threshold selects DefaultThreshold.
func NewChecker(threshold float64) *Checker {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Checker{threshold: threshold}
}

// Check computes per-column and overall completeness. An empty table has
// overall completeness 0 and does not pass.
func (c *Checker) Check(table *domain.Table) *domain.CompletenessResult {
	result := &domain.CompletenessResult{Threshold: c.threshold}

	rows, columns := table.NumRows(), table.Columns()
	result.TotalCells = rows * len(columns)

	if rows == 0 || len(columns) == 0 {
		result.Message = "table is empty; completeness is undefined and treated as 0%"
		for _, col := range columns {
			result.Columns = append(result.Columns, domain.ColumnCompleteness{Column: col})
			result.EmptyColumns = append(result.EmptyColumns, col)
		}
		return result
	}

	rowNulls := make([]int, rows)
	for _, col := range columns {
		cc := domain.ColumnCompleteness{Column: col}
		for i := 0; i < rows; i++ {
			if table.Value(i, col) == nil {
				cc.Null++
				rowNulls[i]++
			} else {
				cc.NonNull++
			}
		}
		cc.Completeness = float64(cc.NonNull) / float64(rows)
		result.NonNullCells += cc.NonNull
		result.Columns = append(result.Columns, cc)

		if cc.Completeness < c.threshold {
			result.IncompleteColumns = append(result.IncompleteColumns, col)
		}
		if cc.NonNull == 0 {
			result.EmptyColumns = append(result.EmptyColumns, col)
		}
	}

	for _, n := range rowNulls {
		if n > 0 {
			result.RowsWithNulls++
		}
		if n == len(columns) {
			result.EmptyRows++
		}
	}

	result.Overall = float64(result.NonNullCells) / float64(result.TotalCells)
	result.OverallPct = 100 * result.Overall
	result.RowsWithNullsPct = 100 * float64(result.RowsWithNulls) / float64(rows)
	result.Passed = result.Overall >= c.threshold
	if !result.Passed {
		result.Message = fmt.Sprintf("overall completeness %.1f%% is below the %.0f%% threshold",
			result.OverallPct, 100*c.threshold)
	}

	return result
}

// SuggestColumnsToDrop returns the columns whose completeness is below
// dropThreshold. The suggestion is advisory and never applied automatically.
func SuggestColumnsToDrop(result *domain.CompletenessResult, dropThreshold float64) []string {
	if dropThreshold <= 0 || dropThreshold > 1 {
		dropThreshold = DefaultDropThreshold
	}
	var out []string
	for _, cc := range result.Columns {
		if cc.Completeness < dropThreshold {
			out = append(out, cc.Column)
		}
	}
	return out
}
