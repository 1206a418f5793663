package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/pkg/ranges"
)

func testConfig() *domain.Config {
	return &domain.Config{
		Validation: domain.DefaultValidationConfig(),
		Scoring:    domain.DefaultScoringConfig(),
	}
}

func TestNewEngineFromConfigBuiltinRanges(t *testing.T) {
	engine, err := NewEngineFromConfig(testConfig(), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, ranges.DefaultRegistry().Len(), engine.Ranges().Registry().Len())
}

func TestNewEngineFromConfigCustomRanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranges.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`specs:
  - field_name: NFL
    min: 0
    max: 200
    unit: pg/mL
    category: csf_biomarker
  - field_name: MMSE
    min: 0
    max: 35
    unit: points
    category: cognitive
`), 0o600))

	cfg := testConfig()
	cfg.Validation.RangeSpecsFile = path

	engine, err := NewEngineFromConfig(cfg, quietLogger())
	require.NoError(t, err)

	registry := engine.Ranges().Registry()
	assert.Equal(t, ranges.DefaultRegistry().Len()+1, registry.Len())

	nfl, ok := registry.Lookup("nfl")
	require.True(t, ok)
	assert.Equal(t, 200.0, nfl.Max)

	mmse, ok := registry.Lookup("MMSE")
	require.True(t, ok)
	assert.Equal(t, 35.0, mmse.Max)

	// the shared built-in registry is untouched
	builtin, ok := ranges.DefaultRegistry().Lookup("MMSE")
	require.True(t, ok)
	assert.Equal(t, 30.0, builtin.Max)
}

func TestNewEngineFromConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg := testConfig()
		cfg.Validation.RangeSpecsFile = filepath.Join(t.TempDir(), "absent.yaml")
		_, err := NewEngineFromConfig(cfg, quietLogger())
		assert.Error(t, err)
	})

	t.Run("invalid weights", func(t *testing.T) {
		cfg := testConfig()
		cfg.Scoring.PHIWeight = 90
		_, err := NewEngineFromConfig(cfg, quietLogger())
		assert.ErrorIs(t, err, domain.ErrInvalidWeights)
	})
}
