package deident

import (
	"fmt"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/pkg/phi"
)

// KAnonymity groups rows by their quasi-identifier tuple and measures the
// smallest group. Null is treated as a value of its own. When
// quasiIdentifiers is empty they are auto-detected from column names; when
// none exist the property cannot be assessed and is reported as satisfied
// with a warning.
func KAnonymity(table *domain.Table, quasiIdentifiers []string, k int) domain.KAnonymityResult {
	if k <= 0 {
		k = DefaultKThreshold
	}
	result := domain.KAnonymityResult{KThreshold: k}

	if len(quasiIdentifiers) == 0 {
		quasiIdentifiers = phi.QuasiIdentifierColumns(table.Columns())
		result.AutoDetected = true
	}

	var present, missing []string
	for _, c := range quasiIdentifiers {
		if table.HasColumn(c) {
			present = append(present, c)
		} else {
			missing = append(missing, c)
		}
	}
	result.QuasiIdentifiers = present

	switch {
	case len(present) == 0:
		result.Satisfied = true
		result.Warning = "no quasi-identifiers found; k-anonymity could not be assessed"
		if len(missing) > 0 {
			result.Warning = fmt.Sprintf("quasi-identifier columns %v not found; k-anonymity could not be assessed", missing)
		}
		return result
	case table.NumRows() == 0:
		result.Satisfied = true
		result.Warning = "table is empty; k-anonymity could not be assessed"
		return result
	}

	groups := make(map[string]int)
	for i := 0; i < table.NumRows(); i++ {
		groups[table.RowKey(i, present)]++
	}

	result.Assessed = true
	result.Groups = len(groups)
	result.MinK = table.NumRows()
	for _, size := range groups {
		if size < result.MinK {
			result.MinK = size
		}
		if size > result.MaxK {
			result.MaxK = size
		}
		if size < k {
			result.GroupsBelowK++
			result.RecordsAtRisk += size
		}
	}
	result.MeanK = float64(table.NumRows()) / float64(len(groups))
	result.RecordsAtRiskPct = 100 * float64(result.RecordsAtRisk) / float64(table.NumRows())
	result.Satisfied = result.MinK >= k

	if len(missing) > 0 {
		result.Warning = fmt.Sprintf("quasi-identifier columns %v not found and ignored", missing)
	}
	return result
}
