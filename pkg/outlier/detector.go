// Package outlier flags numeric anomalies with the IQR rule, the Z-score and
// the robust modified Z-score.
package outlier

import (
	"fmt"
	"math"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/pkg/stats"
)

// madScale converts a MAD into a consistent estimate of the standard
// deviation for normal data (Iglewicz and Hoaglin).
const madScale = 0.6745

// MaxDensityPct is the outlier density at or below which the check passes.
const MaxDensityPct = 5.0

// Options tunes the detector. Zero values select the defaults.
type Options struct {
	Method             domain.OutlierMethod
	IQRMultiplier      float64
	ExtremeMultiplier  float64
	ZThreshold         float64
	ModifiedZThreshold float64
}

// DefaultOptions returns IQR 1.5, Z 3.0, modified Z 3.5 and extreme IQR 3.0
// with all methods enabled.
func DefaultOptions() Options {
	return Options{
		Method:             domain.METHOD_BOTH,
		IQRMultiplier:      1.5,
		ExtremeMultiplier:  3.0,
		ZThreshold:         3.0,
		ModifiedZThreshold: 3.5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if !o.Method.IsValid() {
		o.Method = d.Method
	}
	if o.IQRMultiplier <= 0 {
		o.IQRMultiplier = d.IQRMultiplier
	}
	if o.ExtremeMultiplier <= 0 {
		o.ExtremeMultiplier = d.ExtremeMultiplier
	}
	if o.ZThreshold <= 0 {
		o.ZThreshold = d.ZThreshold
	}
	if o.ModifiedZThreshold <= 0 {
		o.ModifiedZThreshold = d.ModifiedZThreshold
	}
	return o
}

// Detector runs outlier tests over the numeric columns of a table.
type Detector struct {
	opts Options
}

// NewDetector creates a detector. Invalid or zero options fall back to defaults.
func NewDetector(opts Options) *Detector {
	return &Detector{opts: opts.withDefaults()}
}

type sample struct {
	rows   []int
	values []float64
}

func numericSample(table *domain.Table, column string) sample {
	var s sample
	for i := 0; i < table.NumRows(); i++ {
		if f, ok := domain.ToFloat(table.Value(i, column)); ok {
			s.rows = append(s.rows, i)
			s.values = append(s.values, f)
		}
	}
	return s
}

// Detect tests every numeric column with the configured method. For METHOD_BOTH
// the IQR, Z-score and modified Z-score tests all run and the consensus
// (IQR and Z-score agree) is the flagged set.
func (d *Detector) Detect(table *domain.Table) *domain.OutlierReport {
	report := &domain.OutlierReport{Method: d.opts.Method}

	for _, column := range table.NumericColumns() {
		s := numericSample(table, column)
		if len(s.values) == 0 {
			continue
		}
		co := d.detectColumn(column, s)

		report.Columns = append(report.Columns, co)
		report.NumericColumns++
		report.NumericCells += co.Stats.N
		report.FlaggedCells += co.Flagged

		for _, m := range []*domain.MethodOutliers{co.IQR, co.ZScore, co.ModifiedZ} {
			if m != nil && m.Warning != "" {
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", column, m.Warning))
			}
		}

		if extreme := d.extremeTest(column, s); extreme.Count > 0 {
			report.Extreme = append(report.Extreme, extreme)
		}
	}

	if report.NumericCells > 0 {
		report.DensityPct = 100 * float64(report.FlaggedCells) / float64(report.NumericCells)
	}
	report.Passed = report.DensityPct <= MaxDensityPct
	return report
}

// extremeTest applies the IQR rule with the extreme multiplier, flagging
// values likely to be data-entry errors rather than clinical extremes.
func (d *Detector) extremeTest(column string, s sample) domain.MethodOutliers {
	m := iqrTest(column, s, d.opts.ExtremeMultiplier)
	m.Method = domain.METHOD_EXTREME
	return m
}

func (d *Detector) detectColumn(column string, s sample) domain.ColumnOutliers {
	sorted := stats.Sorted(s.values)
	co := domain.ColumnOutliers{
		Column: column,
		Stats: domain.ColumnStats{
			N:      len(s.values),
			Mean:   stats.Mean(s.values),
			Std:    stats.StdDev(s.values),
			Min:    sorted[0],
			Max:    sorted[len(sorted)-1],
			Median: stats.Median(sorted),
			Q1:     stats.Quantile(sorted, 0.25),
			Q3:     stats.Quantile(sorted, 0.75),
			MAD:    stats.MAD(sorted),
		},
	}

	switch d.opts.Method {
	case domain.METHOD_IQR:
		co.IQR = ptr(iqrTest(column, s, d.opts.IQRMultiplier))
		co.Flagged = co.IQR.Count
	case domain.METHOD_ZSCORE:
		co.ZScore = ptr(zTest(column, s, co.Stats, d.opts.ZThreshold))
		co.Flagged = co.ZScore.Count
	case domain.METHOD_MODIFIED_ZSCORE:
		co.ModifiedZ = ptr(modifiedZTest(column, s, co.Stats, d.opts.ModifiedZThreshold))
		co.Flagged = co.ModifiedZ.Count
	case domain.METHOD_BOTH:
		co.IQR = ptr(iqrTest(column, s, d.opts.IQRMultiplier))
		co.ZScore = ptr(zTest(column, s, co.Stats, d.opts.ZThreshold))
		co.ModifiedZ = ptr(modifiedZTest(column, s, co.Stats, d.opts.ModifiedZThreshold))
		co.Consensus = ptr(consensus(column, s, co.Stats, co.IQR, co.ZScore))
		co.Flagged = co.Consensus.Count
	}
	return co
}

// flagger decides whether a single value is an outlier.
type flagger func(v float64) bool

func runTest(column string, method domain.OutlierMethod, threshold float64, s sample, flag flagger) domain.MethodOutliers {
	m := domain.MethodOutliers{Column: column, Method: method, Threshold: threshold}
	for i, v := range s.values {
		if !flag(v) {
			continue
		}
		m.Count++
		if len(m.ExampleRows) < domain.MaxExampleRows {
			m.ExampleRows = append(m.ExampleRows, s.rows[i])
		}
	}
	m.Pct = 100 * float64(m.Count) / float64(len(s.values))
	return m
}

func iqrTest(column string, s sample, multiplier float64) domain.MethodOutliers {
	sorted := stats.Sorted(s.values)
	q1, q3 := stats.Quantile(sorted, 0.25), stats.Quantile(sorted, 0.75)
	iqr := q3 - q1
	lo, hi := q1-multiplier*iqr, q3+multiplier*iqr

	m := runTest(column, domain.METHOD_IQR, multiplier, s, func(v float64) bool {
		return v < lo || v > hi
	})
	m.LowerBound, m.UpperBound = &lo, &hi
	return m
}

func zTest(column string, s sample, st domain.ColumnStats, threshold float64) domain.MethodOutliers {
	if st.N < 2 || st.Std == 0 {
		return domain.MethodOutliers{
			Column: column, Method: domain.METHOD_ZSCORE, Threshold: threshold,
			Warning: "standard deviation is zero; z-score test skipped",
		}
	}
	return runTest(column, domain.METHOD_ZSCORE, threshold, s, func(v float64) bool {
		return math.Abs(v-st.Mean)/st.Std > threshold
	})
}

func modifiedZTest(column string, s sample, st domain.ColumnStats, threshold float64) domain.MethodOutliers {
	if st.MAD == 0 {
		return domain.MethodOutliers{
			Column: column, Method: domain.METHOD_MODIFIED_ZSCORE, Threshold: threshold,
			Warning: "median absolute deviation is zero; modified z-score test skipped",
		}
	}
	return runTest(column, domain.METHOD_MODIFIED_ZSCORE, threshold, s, func(v float64) bool {
		return math.Abs(madScale*(v-st.Median)/st.MAD) > threshold
	})
}

// consensus flags values outside the IQR bounds whose z-score also exceeds
// the threshold.
func consensus(column string, s sample, st domain.ColumnStats, iqr, z *domain.MethodOutliers) domain.MethodOutliers {
	if z.Warning != "" {
		return domain.MethodOutliers{Column: column, Method: domain.METHOD_CONSENSUS, Threshold: z.Threshold}
	}
	return runTest(column, domain.METHOD_CONSENSUS, z.Threshold, s, func(v float64) bool {
		outsideIQR := v < *iqr.LowerBound || v > *iqr.UpperBound
		return outsideIQR && math.Abs(v-st.Mean)/st.Std > z.Threshold
	})
}

func ptr(m domain.MethodOutliers) *domain.MethodOutliers {
	return &m
}
