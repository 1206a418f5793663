package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/pkg/completeness"
	"github.com/biomed-dq-validator/pkg/deident"
	"github.com/biomed-dq-validator/pkg/duplicates"
	"github.com/biomed-dq-validator/pkg/outlier"
	"github.com/biomed-dq-validator/pkg/phi"
	"github.com/biomed-dq-validator/pkg/ranges"
	"github.com/biomed-dq-validator/pkg/temporal"
)

// EngineVersion is stamped into every report.
const EngineVersion = "1.0.0"

// Report modes
const (
	ModeFull  = "full"
	ModeQuick = "quick"
	ModeClean = "clean"
)

// ValidateOptions carries the per-run hints supplied by the caller.
type ValidateOptions struct {
	DatasetName      string
	Roles            domain.ColumnRoles
	QuasiIdentifiers []string
	// FuzzyColumns enables the fuzzy near-duplicate pass over these columns.
	FuzzyColumns   []string
	TrendColumn    string
	TrendDirection domain.TrendDirection
}

// Engine orchestrates the checkers and aggregates their results into a
// ValidationReport. It holds no per-run state and is safe for concurrent use.
type Engine struct {
	logger  *logrus.Logger
	cfg     domain.ValidationConfig
	scoring domain.ScoringConfig

	phi          *phi.Detector
	deident      *deident.Verifier
	completeness *completeness.Checker
	outliers     *outlier.Detector
	ranges       *ranges.Validator
	temporal     *temporal.Validator

	now func() time.Time
}

// NewEngine creates a validation engine. A nil range validator selects the
// builtin registry.
func NewEngine(
	logger *logrus.Logger,
	cfg domain.ValidationConfig,
	scoring domain.ScoringConfig,
	rangeValidator *ranges.Validator,
) (*Engine, error) {
	if err := scoring.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring configuration: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	if rangeValidator == nil {
		rangeValidator = ranges.NewValidator(nil)
	}
	if cfg.MaxParallelChecks <= 0 {
		cfg.MaxParallelChecks = 1
	}

	return &Engine{
		logger:       logger,
		cfg:          cfg,
		scoring:      scoring,
		phi:          phi.NewDetector(cfg.PHISampleSize),
		deident:      deident.NewVerifier(),
		completeness: completeness.NewChecker(cfg.CompletenessThreshold),
		outliers: outlier.NewDetector(outlier.Options{
			Method:             cfg.OutlierMethod,
			IQRMultiplier:      cfg.IQRMultiplier,
			ExtremeMultiplier:  cfg.ExtremeIQRMultiplier,
			ZThreshold:         cfg.ZScoreThreshold,
			ModifiedZThreshold: cfg.ModifiedZThreshold,
		}),
		ranges: rangeValidator,
		temporal: temporal.NewValidator(temporal.Options{
			MinIntervalDays:      cfg.MinIntervalDays,
			MaxIntervalDays:      cfg.MaxIntervalDays,
			MaxContradictionRate: cfg.TrendMaxContradiction,
		}),
		now: time.Now,
	}, nil
}

// Ranges returns the range validator shared by this engine.
func (e *Engine) Ranges() *ranges.Validator {
	return e.ranges
}

// Config returns the validation thresholds in effect.
func (e *Engine) Config() domain.ValidationConfig {
	return e.cfg
}

// Validate runs every checker against table and returns the scored report.
// Checker faults are isolated into SectionErrors; cancellation of ctx
// discards all partial results.
func (e *Engine) Validate(ctx context.Context, table *domain.Table, opts ValidateOptions) (*domain.ValidationReport, error) {
	if table == nil {
		return nil, domain.NewEngineError(domain.ErrInvalidInput, "table is required", "", "")
	}
	start := e.now()

	report := &domain.ValidationReport{
		Metadata:    e.metadata(opts.DatasetName, ModeFull, start),
		DatasetInfo: datasetInfo(table, opts.Roles),
	}
	logger := e.logger.WithFields(logrus.Fields{
		"report_id": report.Metadata.ReportID,
		"dataset":   opts.DatasetName,
		"rows":      table.NumRows(),
		"columns":   table.NumColumns(),
	})
	logger.Debug("Starting dataset validation")

	// Step 1: run the independent checkers
	if err := e.runChecks(ctx, table, opts, report); err != nil {
		logger.WithError(err).Warn("Validation cancelled")
		return nil, err
	}

	// Step 2: aggregate the weighted score
	report.QualityScore = e.score(report)

	// Step 3: derive the assessment
	report.Assessment = e.assess(report, table)

	report.Metadata.Duration = e.now().Sub(start)
	logger.WithFields(logrus.Fields{
		"score":    report.QualityScore.Overall,
		"grade":    report.QualityScore.Grade,
		"ready":    report.Assessment.ReadyForML,
		"duration": report.Metadata.Duration,
	}).Info("Dataset validation completed")

	return report, nil
}

func (e *Engine) metadata(dataset, mode string, start time.Time) domain.ReportMetadata {
	return domain.ReportMetadata{
		ReportID:      uuid.New().String(),
		DatasetName:   dataset,
		Mode:          mode,
		GeneratedAt:   start.UTC(),
		EngineVersion: EngineVersion,
		StrictMode:    e.cfg.StrictMode,
	}
}

func datasetInfo(table *domain.Table, roles domain.ColumnRoles) domain.DatasetInfo {
	info := domain.DatasetInfo{
		Rows:            table.NumRows(),
		Columns:         table.NumColumns(),
		ColumnNames:     table.Columns(),
		NumericColumns:  table.NumericColumns(),
		PatientIDColumn: roles.PatientIDColumn,
		VisitDateColumn: roles.VisitDateColumn,
	}
	if table.HasColumn(roles.PatientIDColumn) {
		seen := make(map[string]bool)
		for _, v := range table.Column(roles.PatientIDColumn) {
			if v != nil {
				seen[domain.Key(v)] = true
			}
		}
		info.Patients = len(seen)
	}
	return info
}

// sectionRecorder collects checker faults from concurrent goroutines.
type sectionRecorder struct {
	mu     sync.Mutex
	errors map[string]string
	logger *logrus.Logger
}

func (r *sectionRecorder) record(section string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errors == nil {
		r.errors = make(map[string]string)
	}
	r.errors[section] = err.Error()
	r.logger.WithFields(logrus.Fields{
		"section": section,
		"error":   err.Error(),
	}).Warn("Validation check failed")
}

// guard runs fn, converting a returned error or a panic into a section error.
func (r *sectionRecorder) guard(section string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.WithField("stack", string(debug.Stack())).Debug("Recovered checker panic")
			r.record(section, fmt.Errorf("panic: %v", p))
		}
	}()
	if err := fn(); err != nil {
		r.record(section, err)
	}
}

type check struct {
	section string
	run     func(ctx context.Context) error
}

func (e *Engine) runChecks(ctx context.Context, table *domain.Table, opts ValidateOptions, report *domain.ValidationReport) error {
	checks := []check{
		{domain.SectionPHI, func(context.Context) error {
			report.PHI = e.phi.Detect(table)
			return nil
		}},
		{domain.SectionDeidentify, func(context.Context) error {
			report.Deidentification = e.deident.Verify(table, e.deidentOptions(opts))
			return nil
		}},
		{domain.SectionCompleteness, func(context.Context) error {
			report.Completeness = e.completeness.Check(table)
			return nil
		}},
		{domain.SectionOutliers, func(context.Context) error {
			report.Outliers = e.outliers.Detect(table)
			return nil
		}},
		{domain.SectionRanges, func(context.Context) error {
			report.Ranges = e.ranges.Validate(table)
			return nil
		}},
		{domain.SectionDuplicates, func(ctx context.Context) error {
			dups, err := e.checkDuplicates(ctx, table, opts)
			if err != nil {
				return err
			}
			report.Duplicates = dups
			return nil
		}},
		{domain.SectionTemporal, func(context.Context) error {
			report.Temporal = e.checkTemporal(table, opts)
			return nil
		}},
	}

	recorder := &sectionRecorder{logger: e.logger}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxParallelChecks)
	for _, c := range checks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recorder.guard(c.section, func() error { return c.run(gctx) })
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	report.SectionErrors = recorder.errors
	return nil
}

func (e *Engine) deidentOptions(opts ValidateOptions) deident.Options {
	o := deident.Options{
		QuasiIdentifiers: opts.QuasiIdentifiers,
		KThreshold:       e.cfg.KThreshold,
	}
	if e.cfg.ExemptVisitDateColumn && opts.Roles.VisitDateColumn != "" {
		o.ExemptDateColumns = []string{opts.Roles.VisitDateColumn}
	}
	return o
}

func (e *Engine) checkDuplicates(ctx context.Context, table *domain.Table, opts ValidateOptions) (*domain.DuplicateReport, error) {
	exact, err := duplicates.Exact(table, nil)
	if err != nil {
		return nil, fmt.Errorf("exact duplicate check: %w", err)
	}

	report := &domain.DuplicateReport{
		Exact:   exact,
		Patient: duplicates.PatientLevel(table, opts.Roles.PatientIDColumn),
		Visit:   duplicates.VisitLevel(table, opts.Roles.PatientIDColumn, opts.Roles.VisitDateColumn),
	}
	if len(opts.FuzzyColumns) > 0 {
		fuzzy := duplicates.Fuzzy(ctx, table, opts.FuzzyColumns, duplicates.FuzzyOptions{
			Threshold: e.cfg.FuzzyThreshold,
			SampleCap: e.cfg.FuzzySampleCap,
			TopN:      e.cfg.FuzzyTopN,
			Timeout:   e.cfg.FuzzyTimeout,
		})
		report.Fuzzy = &fuzzy
	}
	report.Passed = exact.Passed && (!report.Visit.Applicable || report.Visit.Passed)
	return report, nil
}

func (e *Engine) checkTemporal(table *domain.Table, opts ValidateOptions) *domain.TemporalReport {
	report := e.temporal.Comprehensive(table, opts.Roles)
	if report.Applicable && opts.TrendColumn != "" {
		direction := opts.TrendDirection
		if direction == "" {
			direction = domain.INCREASING
		}
		trend := e.temporal.Trend(table, opts.Roles, opts.TrendColumn, direction)
		report.Trend = &trend
	}
	return report
}
