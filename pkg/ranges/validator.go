package ranges

import (
	"math"
	"sync"

	"github.com/biomed-dq-validator/internal/domain"
)

// MaxExampleViolations bounds the example values kept per column.
const MaxExampleViolations = 5

// Validator checks tables against a registry. Custom specs can be added at
// runtime; each addition swaps in a new immutable registry so concurrent
// validations keep a consistent view.
type Validator struct {
	mu       sync.RWMutex
	registry *Registry
}

// NewValidator creates a validator. A nil registry selects DefaultRegistry.
func NewValidator(registry *Registry) *Validator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Validator{registry: registry}
}

// Registry returns the current registry snapshot.
func (v *Validator) Registry() *Registry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.registry
}

// AddSpec registers or replaces a spec without affecting validations
// already in flight.
func (v *Validator) AddSpec(spec domain.RangeSpec) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	next, err := v.registry.With(spec)
	if err != nil {
		return err
	}
	v.registry = next
	return nil
}

// Validate checks every column with a matching spec. Columns without a spec
// are skipped and listed as unmatched; non-numeric values in a matched
// column are counted but not validated.
func (v *Validator) Validate(table *domain.Table) *domain.RangeReport {
	registry := v.Registry()
	report := &domain.RangeReport{TotalColumns: table.NumColumns()}

	for _, column := range table.Columns() {
		spec, ok := registry.Lookup(column)
		if !ok {
			report.Unmatched = append(report.Unmatched, column)
			continue
		}

		cr := validateColumn(table, column, spec)
		report.Columns = append(report.Columns, cr)
		report.ValidatedColumns++
		report.TotalViolations += cr.Violations
		if cr.Violations > 0 {
			report.ColumnsWithViolations++
		}
	}

	if report.TotalColumns > 0 {
		report.CoveragePct = 100 * float64(report.ValidatedColumns) / float64(report.TotalColumns)
	}
	report.Passed = report.ColumnsWithViolations == 0
	return report
}

func validateColumn(table *domain.Table, column string, spec domain.RangeSpec) domain.RangeColumnResult {
	cr := domain.RangeColumnResult{Column: column, Spec: spec}
	lo, hi := math.Inf(1), math.Inf(-1)

	for i := 0; i < table.NumRows(); i++ {
		raw := table.Value(i, column)
		if raw == nil {
			continue
		}
		value, ok := domain.ToFloat(raw)
		if !ok {
			cr.NonNumeric++
			continue
		}
		cr.Checked++
		lo, hi = math.Min(lo, value), math.Max(hi, value)

		switch {
		case value < spec.Min:
			cr.BelowMin++
		case value > spec.Max:
			cr.AboveMax++
		default:
			continue
		}
		cr.Violations++
		if len(cr.Examples) < MaxExampleViolations {
			cr.Examples = append(cr.Examples, domain.RangeViolation{Row: i, Value: value})
		}
	}

	if cr.Checked > 0 {
		cr.ObservedMin, cr.ObservedMax = &lo, &hi
		cr.ViolationPct = 100 * float64(cr.Violations) / float64(cr.Checked)
	}
	return cr
}
