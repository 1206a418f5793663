package duplicates

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/biomed-dq-validator/internal/domain"
)

// FuzzyOptions bounds the pairwise comparison.
type FuzzyOptions struct {
	Threshold float64
	// SampleCap limits the comparison to the first SampleCap rows. This keeps
	// the O(n^2) cost bounded but biases detection towards early rows.
	SampleCap int
	TopN      int
	Timeout   time.Duration
}

// DefaultFuzzyOptions returns threshold 0.95, 1000 rows, top 20 and a 10s timeout.
func DefaultFuzzyOptions() FuzzyOptions {
	return FuzzyOptions{Threshold: 0.95, SampleCap: 1000, TopN: 20, Timeout: 10 * time.Second}
}

func (o FuzzyOptions) withDefaults() FuzzyOptions {
	d := DefaultFuzzyOptions()
	if o.Threshold <= 0 || o.Threshold > 1 {
		o.Threshold = d.Threshold
	}
	if o.SampleCap <= 0 {
		o.SampleCap = d.SampleCap
	}
	if o.TopN <= 0 {
		o.TopN = d.TopN
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	return o
}

// Fuzzy finds near-identical rows over numeric columns (all numeric columns
// when columns is empty). Each column is min-max normalized over the whole
// table; rows with a null in any compared column are skipped. Similarity is
// one minus the mean absolute normalized difference. When the timeout
// elapses the pairs found so far are returned with TimedOut set.
func Fuzzy(ctx context.Context, table *domain.Table, columns []string, opts FuzzyOptions) domain.FuzzyDuplicateResult {
	opts = opts.withDefaults()
	result := domain.FuzzyDuplicateResult{Threshold: opts.Threshold}

	if len(columns) == 0 {
		columns = table.NumericColumns()
	}
	for _, c := range columns {
		if !table.HasColumn(c) {
			result.Applicability = domain.NotApplicable(missingColumn("fuzzy comparison", c))
			return result
		}
	}
	if len(columns) == 0 {
		result.Applicability = domain.NotApplicable("no numeric columns to compare")
		return result
	}
	result.Applicability = domain.Applies()
	result.Columns = columns

	vectors, rows := normalizedSample(table, columns, opts.SampleCap)
	result.SampledRows = len(rows)
	result.Sampled = table.NumRows() > opts.SampleCap

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var pairs []domain.FuzzyPair
outer:
	for i := 0; i < len(vectors); i++ {
		select {
		case <-ctx.Done():
			result.TimedOut = true
			break outer
		default:
		}
		for j := i + 1; j < len(vectors); j++ {
			if sim := similarity(vectors[i], vectors[j]); sim >= opts.Threshold {
				pairs = append(pairs, domain.FuzzyPair{RowA: rows[i], RowB: rows[j], Similarity: sim})
			}
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		if pairs[a].Similarity != pairs[b].Similarity {
			return pairs[a].Similarity > pairs[b].Similarity
		}
		if pairs[a].RowA != pairs[b].RowA {
			return pairs[a].RowA < pairs[b].RowA
		}
		return pairs[a].RowB < pairs[b].RowB
	})
	result.PairsFound = len(pairs)
	if len(pairs) > opts.TopN {
		pairs = pairs[:opts.TopN]
	}
	result.Pairs = pairs
	return result
}

// normalizedSample min-max scales each column over the full table and
// returns the complete rows among the first sampleCap.
func normalizedSample(table *domain.Table, columns []string, sampleCap int) ([][]float64, []int) {
	lo := make([]float64, len(columns))
	span := make([]float64, len(columns))
	for c, col := range columns {
		mn, mx := math.Inf(1), math.Inf(-1)
		for i := 0; i < table.NumRows(); i++ {
			if v, ok := domain.ToFloat(table.Value(i, col)); ok {
				mn, mx = math.Min(mn, v), math.Max(mx, v)
			}
		}
		lo[c] = mn
		if mx > mn {
			span[c] = mx - mn
		}
	}

	limit := min(sampleCap, table.NumRows())
	var vectors [][]float64
	var rows []int
	for i := 0; i < limit; i++ {
		vec := make([]float64, len(columns))
		complete := true
		for c, col := range columns {
			v, ok := domain.ToFloat(table.Value(i, col))
			if !ok {
				complete = false
				break
			}
			if span[c] > 0 {
				vec[c] = (v - lo[c]) / span[c]
			}
		}
		if complete {
			vectors = append(vectors, vec)
			rows = append(rows, i)
		}
	}
	return vectors, rows
}

func similarity(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return 1 - sum/float64(len(a))
}
