package domain

import "time"

// Section names used for scoring components and fault isolation.
const (
	SectionPHI          = "phi"
	SectionDeidentify   = "deidentification"
	SectionCompleteness = "completeness"
	SectionOutliers     = "outliers"
	SectionRanges       = "ranges"
	SectionDuplicates   = "duplicates"
	SectionTemporal     = "temporal"
)

// ColumnRoles are optional hints naming columns with a special meaning.
type ColumnRoles struct {
	PatientIDColumn string `json:"patient_id_column,omitempty"`
	VisitDateColumn string `json:"visit_date_column,omitempty"`
}

// ReportMetadata identifies a single validation run.
type ReportMetadata struct {
	ReportID      string        `json:"report_id"`
	DatasetName   string        `json:"dataset_name"`
	Mode          string        `json:"mode"`
	GeneratedAt   time.Time     `json:"generated_at"`
	Duration      time.Duration `json:"duration_ns"`
	EngineVersion string        `json:"engine_version"`
	StrictMode    bool          `json:"strict_mode"`
}

// DatasetInfo describes the shape of the validated table.
type DatasetInfo struct {
	Rows            int      `json:"rows"`
	Columns         int      `json:"columns"`
	ColumnNames     []string `json:"column_names"`
	NumericColumns  []string `json:"numeric_columns,omitempty"`
	PatientIDColumn string   `json:"patient_id_column,omitempty"`
	VisitDateColumn string   `json:"visit_date_column,omitempty"`
	Patients        int      `json:"patients,omitempty"`
}

// ComponentScore is one weighted slice of the overall quality score.
type ComponentScore struct {
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
	Points     float64 `json:"points"`
	Applicable bool    `json:"applicable"`
	Note       string  `json:"note,omitempty"`
}

// QualityScore is the weighted 0-100 score with its breakdown.
type QualityScore struct {
	Overall    float64          `json:"overall"`
	MaxScore   float64          `json:"max_score"`
	Grade      Grade            `json:"grade"`
	Components []ComponentScore `json:"components"`
}

// Component returns the named component, if present.
func (q QualityScore) Component(name string) (ComponentScore, bool) {
	for _, c := range q.Components {
		if c.Name == name {
			return c, true
		}
	}
	return ComponentScore{}, false
}

// Assessment is the verdict derived from the score and the sub-checks.
type Assessment struct {
	Status          Status   `json:"status"`
	Issues          []string `json:"issues"`
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`
	ReadyForML      bool     `json:"ready_for_ml"`
}

// ValidationReport is the complete output of a validation run. A section is
// nil only when its checker failed, in which case SectionErrors explains why.
type ValidationReport struct {
	Metadata         ReportMetadata      `json:"metadata"`
	DatasetInfo      DatasetInfo         `json:"dataset_info"`
	PHI              *PHIResult          `json:"phi_detection,omitempty"`
	Deidentification *DeidentResult      `json:"deidentification,omitempty"`
	Completeness     *CompletenessResult `json:"completeness,omitempty"`
	Outliers         *OutlierReport      `json:"outliers,omitempty"`
	Ranges           *RangeReport        `json:"range_validation,omitempty"`
	Duplicates       *DuplicateReport    `json:"duplicates,omitempty"`
	Temporal         *TemporalReport     `json:"temporal,omitempty"`
	QualityScore     QualityScore        `json:"quality_score"`
	Assessment       Assessment          `json:"overall_assessment"`
	SectionErrors    map[string]string   `json:"section_errors,omitempty"`
}

// PHIDetected reports whether the PHI section found identifiers. A failed
// PHI section counts as detected so the ready-for-ML gate stays closed.
func (r *ValidationReport) PHIDetected() bool {
	if r.PHI == nil {
		return true
	}
	return r.PHI.PHIDetected
}

// QuickReport is the result of the fast pre-screen: PHI, completeness and
// exact duplicates only.
type QuickReport struct {
	Metadata     ReportMetadata        `json:"metadata"`
	DatasetInfo  DatasetInfo           `json:"dataset_info"`
	PHI          *PHIResult            `json:"phi_detection"`
	Completeness *CompletenessResult   `json:"completeness"`
	Duplicates   *ExactDuplicateResult `json:"duplicates"`
	Passed       bool                  `json:"passed"`
	Issues       []string              `json:"issues"`
}

// CleanOperation records one step performed by validate-and-clean.
type CleanOperation struct {
	Operation      string   `json:"operation"`
	Details        string   `json:"details"`
	RowsBefore     int      `json:"rows_before"`
	RowsAfter      int      `json:"rows_after"`
	ColumnsRemoved []string `json:"columns_removed,omitempty"`
}

// CleanOptions selects the opt-in cleaning steps.
type CleanOptions struct {
	RemoveDuplicates    bool       `json:"remove_duplicates"`
	DuplicateSubset     []string   `json:"duplicate_subset,omitempty"`
	Keep                KeepPolicy `json:"keep,omitempty"`
	DropLowCompleteness bool       `json:"drop_low_completeness"`
	DropThreshold       float64    `json:"drop_threshold,omitempty"`
}

// CleanResult is the outcome of validate-and-clean. Table is nil when the
// run was refused because PHI was detected.
type CleanResult struct {
	Refused    bool              `json:"refused"`
	Reason     string            `json:"reason,omitempty"`
	PHI        *PHIResult        `json:"phi_detection"`
	Operations []CleanOperation  `json:"operations"`
	Table      *Table            `json:"-"`
	Report     *ValidationReport `json:"report,omitempty"`
}
