package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/pkg/ranges"
)

// NewEngineFromConfig builds an engine from the loaded configuration. Range
// specs from validation.range_specs_file are layered over the built-in
// registry, replacing built-in entries with the same field name.
func NewEngineFromConfig(cfg *domain.Config, logger *logrus.Logger) (*Engine, error) {
	if logger == nil {
		logger = logrus.New()
	}

	registry := ranges.DefaultRegistry()
	if path := cfg.Validation.RangeSpecsFile; path != "" {
		specs, err := ranges.LoadSpecsFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load range specs: %w", err)
		}
		registry, err = registry.With(specs...)
		if err != nil {
			return nil, fmt.Errorf("failed to register range specs: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"file":  path,
			"specs": len(specs),
		}).Info("Loaded custom range specs")
	}

	return NewEngine(logger, cfg.Validation, cfg.Scoring, ranges.NewValidator(registry))
}
