// Package duplicates finds exact, per-patient, per-visit and approximate
// duplicate records.
package duplicates

import (
	"fmt"

	"github.com/biomed-dq-validator/internal/domain"
)

// resolveSubset defaults to all columns and rejects unknown names.
func resolveSubset(table *domain.Table, subset []string) ([]string, error) {
	if len(subset) == 0 {
		return table.Columns(), nil
	}
	for _, c := range subset {
		if !table.HasColumn(c) {
			return nil, fmt.Errorf("duplicate subset: %w: %s", domain.ErrUnknownColumn, c)
		}
	}
	out := make([]string, len(subset))
	copy(out, subset)
	return out, nil
}

// Exact reports rows identical across subset (all columns when empty). Every
// occurrence of a repeated row is counted as a duplicate row. A table without
// columns has nothing to compare and passes.
func Exact(table *domain.Table, subset []string) (domain.ExactDuplicateResult, error) {
	columns, err := resolveSubset(table, subset)
	if err != nil {
		return domain.ExactDuplicateResult{}, err
	}

	n := table.NumRows()
	if len(columns) == 0 {
		return domain.ExactDuplicateResult{
			Passed:     true,
			Subset:     columns,
			TotalRows:  n,
			UniqueRows: n,
			Note:       "no columns to compare",
		}, nil
	}

	keys := make([]string, n)
	counts := make(map[string]int, n)
	for i := 0; i < n; i++ {
		keys[i] = table.RowKey(i, columns)
		counts[keys[i]]++
	}

	result := domain.ExactDuplicateResult{Subset: columns, TotalRows: n}
	for i, k := range keys {
		if counts[k] < 2 {
			continue
		}
		result.DuplicateRows++
		if len(result.ExampleRows) < domain.MaxExampleRows {
			result.ExampleRows = append(result.ExampleRows, i)
		}
	}
	for _, c := range counts {
		if c > 1 {
			result.DuplicateGroups++
		}
	}

	result.UniqueRows = n - result.DuplicateRows
	if n > 0 {
		result.DuplicatePct = 100 * float64(result.DuplicateRows) / float64(n)
	}
	result.Passed = result.DuplicateRows == 0
	return result, nil
}

// RemoveDuplicates drops repeated rows across subset, keeping the first or
// last occurrence, and returns a new table. Running it on its own output
// removes nothing.
func RemoveDuplicates(table *domain.Table, subset []string, keep domain.KeepPolicy) (*domain.Table, domain.RemovalStats, error) {
	if keep == "" {
		keep = domain.KEEP_FIRST
	}
	if !keep.IsValid() {
		return nil, domain.RemovalStats{}, fmt.Errorf("%w: %q", domain.ErrInvalidKeep, keep)
	}
	columns, err := resolveSubset(table, subset)
	if err != nil {
		return nil, domain.RemovalStats{}, err
	}

	n := table.NumRows()
	kept := make([]bool, n)
	seen := make(map[string]bool, n)
	visit := func(i int) {
		if len(columns) == 0 {
			kept[i] = true
			return
		}
		k := table.RowKey(i, columns)
		if !seen[k] {
			seen[k] = true
			kept[i] = true
		}
	}
	if keep == domain.KEEP_FIRST {
		for i := 0; i < n; i++ {
			visit(i)
		}
	} else {
		for i := n - 1; i >= 0; i-- {
			visit(i)
		}
	}

	indices := make([]int, 0, len(seen))
	for i, k := range kept {
		if k {
			indices = append(indices, i)
		}
	}

	stats := domain.RemovalStats{
		Subset:        columns,
		Keep:          keep,
		OriginalRows:  n,
		RemainingRows: len(indices),
		RemovedRows:   n - len(indices),
	}
	if n > 0 {
		stats.RemovedPct = 100 * float64(stats.RemovedRows) / float64(n)
	}
	return table.SelectRows(indices), stats, nil
}
