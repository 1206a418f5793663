package ranges

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomed-dq-validator/internal/domain"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.GreaterOrEqual(t, r.Len(), 30)
	assert.Same(t, r, DefaultRegistry())

	tests := []struct {
		column string
		field  string
	}{
		{"MMSE", "MMSE"},
		{"mmse", "MMSE"},
		{"CDR_SB", "CDRSB"},
		{"cdr-sb", "CDRSB"},
		{"CDGLOBAL", "CDR"},
		{"ravlt immediate", "RAVLT_immediate"},
		{"hippocampus", "Hippocampus"},
		{"VSBPSYS", "SYSTOLIC_BP"},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			spec, ok := r.Lookup(tt.column)
			require.True(t, ok)
			assert.Equal(t, tt.field, spec.FieldName)
		})
	}

	_, ok := r.Lookup("RID")
	assert.False(t, ok)
}

func TestValidateFlagsOutOfRange(t *testing.T) {
	rows := make([]domain.Row, 0, 20)
	for i := 0; i < 19; i++ {
		rows = append(rows, domain.Row{"RID": i, "MMSE": 20 + i%10})
	}
	rows = append(rows, domain.Row{"RID": 19, "MMSE": 45})
	tbl, err := domain.NewTable([]string{"RID", "MMSE"}, rows)
	require.NoError(t, err)

	report := NewValidator(nil).Validate(tbl)

	assert.False(t, report.Passed)
	assert.Equal(t, 1, report.ValidatedColumns)
	assert.Equal(t, 1, report.ColumnsWithViolations)
	assert.Equal(t, []string{"RID"}, report.Unmatched)
	assert.InDelta(t, 50.0, report.CoveragePct, 1e-9)

	require.Len(t, report.Columns, 1)
	col := report.Columns[0]
	assert.Equal(t, "MMSE", col.Column)
	assert.Equal(t, 1, col.Violations)
	assert.Equal(t, 1, col.AboveMax)
	assert.Zero(t, col.BelowMin)
	assert.InDelta(t, 5.0, col.ViolationPct, 1e-9)
	assert.Equal(t, 45.0, *col.ObservedMax)
	assert.Equal(t, 20.0, *col.ObservedMin)
	assert.Equal(t, []domain.RangeViolation{{Row: 19, Value: 45}}, col.Examples)
}

func TestValidateCapsExamples(t *testing.T) {
	rows := make([]domain.Row, 0, 12)
	for i := 0; i < 12; i++ {
		rows = append(rows, domain.Row{"PTAU": -1.0, "notes": "x"})
	}
	rows = append(rows, domain.Row{"PTAU": "n/a"})
	tbl, err := domain.NewTable([]string{"PTAU", "notes"}, rows)
	require.NoError(t, err)

	report := NewValidator(nil).Validate(tbl)

	col := report.Columns[0]
	assert.Equal(t, 12, col.Violations)
	assert.Equal(t, 12, col.BelowMin)
	assert.Equal(t, 1, col.NonNumeric)
	assert.Len(t, col.Examples, MaxExampleViolations)
}

func TestValidateNoMatches(t *testing.T) {
	tbl, err := domain.NewTable([]string{"RID"}, []domain.Row{{"RID": 1}})
	require.NoError(t, err)

	report := NewValidator(nil).Validate(tbl)

	assert.True(t, report.Passed)
	assert.Zero(t, report.ValidatedColumns)
	assert.Zero(t, report.CoveragePct)
}

func TestAddSpec(t *testing.T) {
	v := NewValidator(nil)
	before := v.Registry()

	require.NoError(t, v.AddSpec(domain.RangeSpec{FieldName: "NfL", Min: 0, Max: 200, Unit: "pg/mL", Category: CategoryCSF}))

	_, ok := before.Lookup("NFL")
	assert.False(t, ok, "earlier snapshot must not change")
	spec, ok := v.Registry().Lookup("nfl")
	require.True(t, ok)
	assert.Equal(t, 200.0, spec.Max)
	assert.Equal(t, before.Len()+1, v.Registry().Len())

	// Replacing a built-in keeps the count
	require.NoError(t, v.AddSpec(domain.RangeSpec{FieldName: "mmse", Min: 0, Max: 35}))
	spec, _ = v.Registry().Lookup("MMSE")
	assert.Equal(t, 35.0, spec.Max)
	assert.Equal(t, before.Len()+1, v.Registry().Len())

	err := v.AddSpec(domain.RangeSpec{FieldName: "bad", Min: 5, Max: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestAddSpecAliasClash(t *testing.T) {
	v := NewValidator(nil)
	before := v.Registry().Len()

	// TTAU is an alias of the built-in TAU spec
	err := v.AddSpec(domain.RangeSpec{FieldName: "TTAU", Min: 0, Max: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	err = v.AddSpec(domain.RangeSpec{FieldName: "TAU_CUSTOM", Min: 0, Max: 10, Aliases: []string{"ptau181"}})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	tau, ok := v.Registry().Lookup("TAU")
	require.True(t, ok)
	assert.Equal(t, "TAU", tau.FieldName)
	assert.Equal(t, 1300.0, tau.Max)
	ptau, ok := v.Registry().Lookup("PTAU181")
	require.True(t, ok)
	assert.Equal(t, "PTAU", ptau.FieldName)
	assert.Equal(t, before, v.Registry().Len())
}

func TestAddSpecReplacementKeepsAliases(t *testing.T) {
	v := NewValidator(nil)

	require.NoError(t, v.AddSpec(domain.RangeSpec{FieldName: "tau", Min: 50, Max: 1500, Unit: "pg/mL"}))
	spec, ok := v.Registry().Lookup("TTAU")
	require.True(t, ok)
	assert.Equal(t, 1500.0, spec.Max)

	require.NoError(t, v.AddSpec(domain.RangeSpec{FieldName: "TAU", Min: 50, Max: 1400, Aliases: []string{"T_TAU_CSF"}}))
	_, ok = v.Registry().Lookup("TTAU")
	assert.False(t, ok)
	spec, ok = v.Registry().Lookup("t-tau-csf")
	require.True(t, ok)
	assert.Equal(t, 1400.0, spec.Max)
	assert.Equal(t, DefaultRegistry().Len(), v.Registry().Len())
}

func TestAddSpecConcurrentWithValidate(t *testing.T) {
	v := NewValidator(nil)
	tbl, err := domain.NewTable([]string{"MMSE"}, []domain.Row{{"MMSE": 29}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = v.AddSpec(domain.RangeSpec{FieldName: "custom" + string(rune('a'+i)), Min: 0, Max: 1})
		}(i)
		go func() {
			defer wg.Done()
			assert.True(t, v.Validate(tbl).Passed)
		}()
	}
	wg.Wait()

	assert.Equal(t, DefaultRegistry().Len()+8, v.Registry().Len())
}

func TestLoadSpecsYAML(t *testing.T) {
	doc := `
specs:
  - field_name: NFL
    min: 0
    max: 200
    unit: pg/mL
    category: csf_biomarker
    aliases: [PLASMA_NFL]
  - field_name: GFAP
    min: 0
    max: 1000
    unit: pg/mL
    category: csf_biomarker
`
	specs, err := LoadSpecsYAML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "NFL", specs[0].FieldName)
	assert.Equal(t, []string{"PLASMA_NFL"}, specs[0].Aliases)

	reg, err := DefaultRegistry().With(specs...)
	require.NoError(t, err)
	_, ok := reg.Lookup("plasma_nfl")
	assert.True(t, ok)

	_, err = LoadSpecsYAML(strings.NewReader("specs:\n  - field_name: X\n    min: 3\n    max: 1\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = LoadSpecsYAML(strings.NewReader("specs:\n  - field: X\n"))
	assert.Error(t, err)
}

func TestLoadSpecsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ranges.yaml")
	require.NoError(t, os.WriteFile(path, []byte("specs:\n  - field_name: NFL\n    min: 0\n    max: 200\n"), 0o600))

	specs, err := LoadSpecsFile(path)
	require.NoError(t, err)
	assert.Len(t, specs, 1)

	_, err = LoadSpecsFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
