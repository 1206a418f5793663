// Package domain contains the core entities of the biomedical data quality
// and de-identification engine: the Table under test, the typed results each
// checker produces, and the aggregated ValidationReport.
//
// Privacy rules follow the HIPAA Safe Harbor method (45 CFR 164.514(b)(2)),
// which lists 18 categories of identifiers that must be removed or
// generalized before a dataset can be considered de-identified.
package domain

import (
	"errors"
	"fmt"
)

// PHICategory names one of the HIPAA Safe Harbor identifier categories the
// detector can recognise.
type PHICategory string

const (
	PHI_NAMES       PHICategory = "names"
	PHI_DATES       PHICategory = "dates"
	PHI_PHONE       PHICategory = "phone_numbers"
	PHI_FAX         PHICategory = "fax_numbers"
	PHI_EMAIL       PHICategory = "email_addresses"
	PHI_SSN         PHICategory = "ssn"
	PHI_MRN         PHICategory = "medical_record_numbers"
	PHI_ACCOUNT     PHICategory = "account_numbers"
	PHI_LICENSE     PHICategory = "certificate_license_numbers"
	PHI_VEHICLE     PHICategory = "vehicle_identifiers"
	PHI_URL         PHICategory = "urls"
	PHI_IP          PHICategory = "ip_addresses"
	PHI_ZIP         PHICategory = "zip_codes"
	PHI_HEALTH_PLAN PHICategory = "health_plan_numbers"
	PHI_DEVICE      PHICategory = "device_identifiers"
	PHI_BIOMETRIC   PHICategory = "biometric_identifiers"
	PHI_PHOTO       PHICategory = "full_face_photos"
	PHI_GEOGRAPHIC  PHICategory = "geographic_subdivisions"
)

// AllPHICategories lists every category in report order.
func AllPHICategories() []PHICategory {
	return []PHICategory{
		PHI_NAMES, PHI_DATES, PHI_PHONE, PHI_FAX, PHI_EMAIL, PHI_SSN, PHI_MRN,
		PHI_ACCOUNT, PHI_LICENSE, PHI_VEHICLE, PHI_URL, PHI_IP, PHI_ZIP,
		PHI_HEALTH_PLAN, PHI_DEVICE, PHI_BIOMETRIC, PHI_PHOTO, PHI_GEOGRAPHIC,
	}
}

// IsValid reports whether the category is known.
func (c PHICategory) IsValid() bool {
	for _, k := range AllPHICategories() {
		if k == c {
			return true
		}
	}
	return false
}

// String returns the string representation of the category.
func (c PHICategory) String() string {
	return string(c)
}

// OutlierMethod selects the statistical test used by the outlier detector.
type OutlierMethod string

const (
	METHOD_IQR             OutlierMethod = "iqr"
	METHOD_ZSCORE          OutlierMethod = "zscore"
	METHOD_MODIFIED_ZSCORE OutlierMethod = "modified_zscore"
	METHOD_BOTH            OutlierMethod = "both"
	METHOD_CONSENSUS       OutlierMethod = "consensus"
	METHOD_EXTREME         OutlierMethod = "extreme"
)

// IsValid reports whether the method can be requested by a caller.
func (m OutlierMethod) IsValid() bool {
	switch m {
	case METHOD_IQR, METHOD_ZSCORE, METHOD_MODIFIED_ZSCORE, METHOD_BOTH:
		return true
	default:
		return false
	}
}

// KeepPolicy decides which occurrence survives exact duplicate removal.
type KeepPolicy string

const (
	KEEP_FIRST KeepPolicy = "first"
	KEEP_LAST  KeepPolicy = "last"
)

// IsValid reports whether the policy is known.
func (k KeepPolicy) IsValid() bool {
	return k == KEEP_FIRST || k == KEEP_LAST
}

// TrendDirection is the expected monotonic direction of a longitudinal measure.
type TrendDirection string

const (
	INCREASING TrendDirection = "increasing"
	DECREASING TrendDirection = "decreasing"
)

// IsValid reports whether the direction is known.
func (d TrendDirection) IsValid() bool {
	return d == INCREASING || d == DECREASING
}

// Grade is the letter grade derived from the overall quality score.
type Grade string

const (
	GRADE_A Grade = "A"
	GRADE_B Grade = "B"
	GRADE_C Grade = "C"
	GRADE_D Grade = "D"
	GRADE_F Grade = "F"
)

// GradeFor maps an overall score in [0,100] to a letter grade.
func GradeFor(score float64) Grade {
	switch {
	case score >= 90:
		return GRADE_A
	case score >= 80:
		return GRADE_B
	case score >= 70:
		return GRADE_C
	case score >= 60:
		return GRADE_D
	default:
		return GRADE_F
	}
}

// Status is the headline label of an assessment.
type Status string

const (
	STATUS_PHI_DETECTED      Status = "PHI_DETECTED"
	STATUS_EXCELLENT         Status = "EXCELLENT"
	STATUS_GOOD              Status = "GOOD"
	STATUS_ACCEPTABLE        Status = "ACCEPTABLE"
	STATUS_NEEDS_IMPROVEMENT Status = "NEEDS_IMPROVEMENT"
	STATUS_POOR              Status = "POOR"
)

// StatusFor derives the status label. Detected PHI overrides the score.
func StatusFor(score float64, phiDetected bool) Status {
	switch {
	case phiDetected:
		return STATUS_PHI_DETECTED
	case score >= 90:
		return STATUS_EXCELLENT
	case score >= 80:
		return STATUS_GOOD
	case score >= 70:
		return STATUS_ACCEPTABLE
	case score >= 60:
		return STATUS_NEEDS_IMPROVEMENT
	default:
		return STATUS_POOR
	}
}

// Sentinel errors
var (
	ErrNotFound       = errors.New("not found")
	ErrEmptyTable     = errors.New("table has no rows")
	ErrUnknownColumn  = errors.New("unknown column")
	ErrInvalidKeep    = errors.New("invalid keep policy")
	ErrInvalidMethod  = errors.New("invalid outlier method")
	ErrInvalidRange   = errors.New("invalid range spec")
	ErrInvalidWeights = errors.New("scoring weights must sum to 100")
	ErrPHIDetected    = errors.New("protected health information detected")
)

// ParseOutlierMethod converts a caller-supplied string into an OutlierMethod.
func ParseOutlierMethod(s string) (OutlierMethod, error) {
	m := OutlierMethod(s)
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, s)
	}
	return m, nil
}

// ParseKeepPolicy converts a caller-supplied string into a KeepPolicy.
// An empty string selects KEEP_FIRST.
func ParseKeepPolicy(s string) (KeepPolicy, error) {
	if s == "" {
		return KEEP_FIRST, nil
	}
	k := KeepPolicy(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKeep, s)
	}
	return k, nil
}
