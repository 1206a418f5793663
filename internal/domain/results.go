package domain

import "time"

// MaxExampleRows bounds the example row indices carried by any result so that
// reports stay small and never re-leak offending values in bulk.
const MaxExampleRows = 10

// Applicability records whether a check could run. A check that cannot run
// is reported with the reason instead of being omitted.
type Applicability struct {
	Applicable bool   `json:"applicable"`
	Reason     string `json:"reason,omitempty"`
}

// Applies returns an applicable marker.
func Applies() Applicability { return Applicability{Applicable: true} }

// NotApplicable returns a marker explaining why a check was skipped.
func NotApplicable(reason string) Applicability {
	return Applicability{Applicable: false, Reason: reason}
}

// ColumnScan records how a single column was inspected for PHI.
type ColumnScan struct {
	Column        string        `json:"column"`
	NameChecked   bool          `json:"name_checked"`
	ValuesChecked bool          `json:"values_checked"`
	SampledValues int           `json:"sampled_values"`
	Categories    []PHICategory `json:"categories,omitempty"`
}

// PHIResult is the outcome of PHI detection. Categories maps each detected
// category to the columns that triggered it; it is empty when nothing was found.
type PHIResult struct {
	Passed      bool                     `json:"passed"`
	PHIDetected bool                     `json:"phi_detected"`
	Categories  map[PHICategory][]string `json:"categories"`
	Scans       []ColumnScan             `json:"scans"`
}

// FlaggedColumns returns every column that triggered at least one category.
func (r *PHIResult) FlaggedColumns() []string {
	var out []string
	for _, s := range r.Scans {
		if len(s.Categories) > 0 {
			out = append(out, s.Column)
		}
	}
	return out
}

// DirectIdentifierCheck reports columns whose names match direct identifiers.
type DirectIdentifierCheck struct {
	Passed  bool     `json:"passed"`
	Columns []string `json:"columns,omitempty"`
}

// DateGeneralizationCheck reports date-like columns holding full calendar dates.
type DateGeneralizationCheck struct {
	Passed          bool           `json:"passed"`
	CheckedColumns  []string       `json:"checked_columns,omitempty"`
	Violations      map[string]int `json:"violations,omitempty"`
	ExemptedColumns []string       `json:"exempted_columns,omitempty"`
}

// KAnonymityResult is the group-size analysis over quasi-identifiers.
type KAnonymityResult struct {
	Assessed         bool     `json:"assessed"`
	Satisfied        bool     `json:"satisfied"`
	KThreshold       int      `json:"k_threshold"`
	QuasiIdentifiers []string `json:"quasi_identifiers"`
	AutoDetected     bool     `json:"auto_detected"`
	MinK             int      `json:"min_k"`
	MaxK             int      `json:"max_k"`
	MeanK            float64  `json:"mean_k"`
	Groups           int      `json:"groups"`
	GroupsBelowK     int      `json:"groups_below_k"`
	RecordsAtRisk    int      `json:"records_at_risk"`
	RecordsAtRiskPct float64  `json:"records_at_risk_pct"`
	Warning          string   `json:"warning,omitempty"`
}

// ValueGeneralizationCheck reports per-column violations of a generalization
// rule such as age top-coding or ZIP truncation.
type ValueGeneralizationCheck struct {
	Passed      bool           `json:"passed"`
	Columns     []string       `json:"columns,omitempty"`
	Violations  map[string]int `json:"violations,omitempty"`
	ExampleRows []int          `json:"example_rows,omitempty"`
}

// DeidentResult composes the five de-identification sub-checks.
type DeidentResult struct {
	VerificationPassed bool                     `json:"verification_passed"`
	DirectIdentifiers  DirectIdentifierCheck    `json:"direct_identifiers"`
	DateGeneralization DateGeneralizationCheck  `json:"date_generalization"`
	KAnonymity         KAnonymityResult         `json:"k_anonymity"`
	AgeGeneralization  ValueGeneralizationCheck `json:"age_generalization"`
	ZipGeneralization  ValueGeneralizationCheck `json:"zip_generalization"`
	ChecksPassed       int                      `json:"checks_passed"`
	ChecksTotal        int                      `json:"checks_total"`
	// ResidualPHI counts quasi-identifier values matching a PHI pattern.
	// It is reported as a warning and does not affect ChecksPassed.
	ResidualPHI        map[string]int           `json:"residual_phi,omitempty"`
	Warnings           []string                 `json:"warnings,omitempty"`
}

// ColumnCompleteness is the null coverage of a single column.
type ColumnCompleteness struct {
	Column       string  `json:"column"`
	NonNull      int     `json:"non_null"`
	Null         int     `json:"null"`
	Completeness float64 `json:"completeness"`
}

// CompletenessResult is the outcome of the completeness check. Overall and
// per-column completeness are fractions in [0,1]; *Pct fields are in [0,100].
type CompletenessResult struct {
	Passed            bool                 `json:"passed"`
	Threshold         float64              `json:"threshold"`
	Overall           float64              `json:"overall"`
	OverallPct        float64              `json:"overall_pct"`
	TotalCells        int                  `json:"total_cells"`
	NonNullCells      int                  `json:"non_null_cells"`
	Columns           []ColumnCompleteness `json:"columns"`
	IncompleteColumns []string             `json:"incomplete_columns,omitempty"`
	EmptyColumns      []string             `json:"empty_columns,omitempty"`
	EmptyRows         int                  `json:"empty_rows"`
	RowsWithNulls     int                  `json:"rows_with_nulls"`
	RowsWithNullsPct  float64              `json:"rows_with_nulls_pct"`
	Message           string               `json:"message,omitempty"`
}

// MethodOutliers is the result of one outlier test on one column.
type MethodOutliers struct {
	Column      string        `json:"column"`
	Method      OutlierMethod `json:"method"`
	Count       int           `json:"count"`
	Pct         float64       `json:"pct"`
	Threshold   float64       `json:"threshold"`
	LowerBound  *float64      `json:"lower_bound,omitempty"`
	UpperBound  *float64      `json:"upper_bound,omitempty"`
	ExampleRows []int         `json:"example_rows,omitempty"`
	Warning     string        `json:"warning,omitempty"`
}

// ColumnStats summarises the non-null values of a numeric column.
type ColumnStats struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	MAD    float64 `json:"mad"`
}

// ColumnOutliers collects every requested test for one numeric column.
type ColumnOutliers struct {
	Column    string          `json:"column"`
	Stats     ColumnStats     `json:"stats"`
	IQR       *MethodOutliers `json:"iqr,omitempty"`
	ZScore    *MethodOutliers `json:"zscore,omitempty"`
	ModifiedZ *MethodOutliers `json:"modified_zscore,omitempty"`
	Consensus *MethodOutliers `json:"consensus,omitempty"`
	Flagged   int             `json:"flagged"`
}

// OutlierReport is the outcome of outlier detection across numeric columns.
type OutlierReport struct {
	Passed         bool             `json:"passed"`
	Method         OutlierMethod    `json:"method"`
	Columns        []ColumnOutliers `json:"columns"`
	Extreme        []MethodOutliers `json:"extreme,omitempty"`
	NumericColumns int              `json:"numeric_columns"`
	NumericCells   int              `json:"numeric_cells"`
	FlaggedCells   int              `json:"flagged_cells"`
	DensityPct     float64          `json:"density_pct"`
	Warnings       []string         `json:"warnings,omitempty"`
}

// RangeSpec is the plausible range of a known biomedical field.
type RangeSpec struct {
	FieldName   string   `json:"field_name" yaml:"field_name"`
	Min         float64  `json:"min" yaml:"min"`
	Max         float64  `json:"max" yaml:"max"`
	Unit        string   `json:"unit" yaml:"unit"`
	Category    string   `json:"category" yaml:"category"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Validate checks that the spec is well formed.
func (s RangeSpec) Validate() error {
	if s.FieldName == "" {
		return NewValidationError("field_name", "field name is required", s.FieldName)
	}
	if s.Min > s.Max {
		return NewValidationError("min", "min must not exceed max", s.Min)
	}
	return nil
}

// RangeViolation is one out-of-range example value.
type RangeViolation struct {
	Row   int     `json:"row"`
	Value float64 `json:"value"`
}

// RangeColumnResult is the range check of one column matched to a spec.
type RangeColumnResult struct {
	Column       string           `json:"column"`
	Spec         RangeSpec        `json:"spec"`
	Checked      int              `json:"checked"`
	NonNumeric   int              `json:"non_numeric"`
	Violations   int              `json:"violations"`
	ViolationPct float64          `json:"violation_pct"`
	BelowMin     int              `json:"below_min"`
	AboveMax     int              `json:"above_max"`
	ObservedMin  *float64         `json:"observed_min,omitempty"`
	ObservedMax  *float64         `json:"observed_max,omitempty"`
	Examples     []RangeViolation `json:"examples,omitempty"`
}

// RangeReport is the outcome of range validation.
type RangeReport struct {
	Passed                bool                `json:"passed"`
	Columns               []RangeColumnResult `json:"columns"`
	ValidatedColumns      int                 `json:"validated_columns"`
	ColumnsWithViolations int                 `json:"columns_with_violations"`
	TotalViolations       int                 `json:"total_violations"`
	TotalColumns          int                 `json:"total_columns"`
	CoveragePct           float64             `json:"coverage_pct"`
	Unmatched             []string            `json:"unmatched,omitempty"`
}

// ExactDuplicateResult reports rows identical across a column subset. Every
// occurrence of a duplicated row counts as a duplicate row.
type ExactDuplicateResult struct {
	Passed          bool     `json:"passed"`
	Subset          []string `json:"subset"`
	TotalRows       int      `json:"total_rows"`
	DuplicateRows   int      `json:"duplicate_rows"`
	UniqueRows      int      `json:"unique_rows"`
	DuplicatePct    float64  `json:"duplicate_pct"`
	DuplicateGroups int      `json:"duplicate_groups"`
	ExampleRows     []int    `json:"example_rows,omitempty"`
	Note            string   `json:"note,omitempty"`
}

// PatientDuplicateResult reports patients with more than one record.
type PatientDuplicateResult struct {
	Applicability
	PatientColumn         string  `json:"patient_column,omitempty"`
	Patients              int     `json:"patients"`
	PatientsWithMultiple  int     `json:"patients_with_multiple"`
	MaxRecordsPerPatient  int     `json:"max_records_per_patient"`
	MeanRecordsPerPatient float64 `json:"mean_records_per_patient"`
}

// VisitDuplicate is one (patient, day) pair recorded more than once.
type VisitDuplicate struct {
	PatientID string `json:"patient_id"`
	Date      string `json:"date"`
	Count     int    `json:"count"`
}

// VisitDuplicateResult reports repeated (patient, visit day) pairs.
type VisitDuplicateResult struct {
	Applicability
	Passed         bool             `json:"passed"`
	DuplicatePairs int              `json:"duplicate_pairs"`
	DuplicateRows  int              `json:"duplicate_rows"`
	Examples       []VisitDuplicate `json:"examples,omitempty"`
}

// FuzzyPair is a pair of near-identical rows.
type FuzzyPair struct {
	RowA       int     `json:"row_a"`
	RowB       int     `json:"row_b"`
	Similarity float64 `json:"similarity"`
}

// FuzzyDuplicateResult reports near-duplicate rows found in a bounded sample.
type FuzzyDuplicateResult struct {
	Applicability
	Columns     []string    `json:"columns,omitempty"`
	Threshold   float64     `json:"threshold"`
	SampledRows int         `json:"sampled_rows"`
	Sampled     bool        `json:"sampled"`
	PairsFound  int         `json:"pairs_found"`
	Pairs       []FuzzyPair `json:"pairs,omitempty"`
	TimedOut    bool        `json:"timed_out"`
}

// DuplicateReport aggregates the duplicate checks run by the engine.
type DuplicateReport struct {
	Passed  bool                   `json:"passed"`
	Exact   ExactDuplicateResult   `json:"exact"`
	Patient PatientDuplicateResult `json:"patient"`
	Visit   VisitDuplicateResult   `json:"visit"`
	Fuzzy   *FuzzyDuplicateResult  `json:"fuzzy,omitempty"`
}

// RemovalStats describes an exact duplicate removal.
type RemovalStats struct {
	Subset        []string   `json:"subset"`
	Keep          KeepPolicy `json:"keep"`
	OriginalRows  int        `json:"original_rows"`
	RemainingRows int        `json:"remaining_rows"`
	RemovedRows   int        `json:"removed_rows"`
	RemovedPct    float64    `json:"removed_pct"`
}

// SequenceViolation is a patient whose visits go backwards in time.
type SequenceViolation struct {
	PatientID string   `json:"patient_id"`
	Dates     []string `json:"dates"`
}

// DateSequenceResult reports patients with non-chronological visit order.
type DateSequenceResult struct {
	Applicability
	Passed            bool                `json:"passed"`
	PatientsChecked   int                 `json:"patients_checked"`
	ViolatingPatients int                 `json:"violating_patients"`
	Violations        []SequenceViolation `json:"violations,omitempty"`
}

// DateRangeResult reports visit dates outside a plausible window.
type DateRangeResult struct {
	Applicability
	Passed      bool      `json:"passed"`
	MinDate     time.Time `json:"min_date"`
	MaxDate     time.Time `json:"max_date"`
	Checked     int       `json:"checked"`
	BelowMin    int       `json:"below_min"`
	AboveMax    int       `json:"above_max"`
	Unparseable int       `json:"unparseable"`
	ExampleRows []int     `json:"example_rows,omitempty"`
}

// IntervalStats summarises gaps between consecutive visits, in days.
type IntervalStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Std    float64 `json:"std"`
}

// VisitIntervalResult reports consecutive-visit gaps outside the allowed bounds.
type VisitIntervalResult struct {
	Applicability
	Passed          bool          `json:"passed"`
	MinIntervalDays int           `json:"min_interval_days"`
	MaxIntervalDays int           `json:"max_interval_days"`
	TooShort        int           `json:"too_short"`
	TooLong         int           `json:"too_long"`
	Stats           IntervalStats `json:"stats"`
	ExamplePatients []string      `json:"example_patients,omitempty"`
}

// TrendFlag is a patient whose measurements mostly move the wrong way.
type TrendFlag struct {
	PatientID         string  `json:"patient_id"`
	Transitions       int     `json:"transitions"`
	Contradictions    int     `json:"contradictions"`
	ContradictionRate float64 `json:"contradiction_rate"`
}

// TrendResult is the directional trend heuristic over one value column.
type TrendResult struct {
	Applicability
	Passed          bool           `json:"passed"`
	Column          string         `json:"column,omitempty"`
	Direction       TrendDirection `json:"direction,omitempty"`
	MaxRate         float64        `json:"max_rate"`
	PatientsChecked int            `json:"patients_checked"`
	FlaggedCount    int            `json:"flagged_count"`
	Flagged         []TrendFlag    `json:"flagged,omitempty"`
}

// TemporalReport aggregates the temporal checks. Passed is the AND of the
// sequence, range and interval checks; the trend is reported separately.
type TemporalReport struct {
	Applicability
	Passed       bool                `json:"passed"`
	Sequence     DateSequenceResult  `json:"sequence"`
	Range        DateRangeResult     `json:"range"`
	Intervals    VisitIntervalResult `json:"intervals"`
	Trend        *TrendResult        `json:"trend,omitempty"`
	ChecksPassed int                 `json:"checks_passed"`
	ChecksTotal  int                 `json:"checks_total"`
}
