package service

import (
	"fmt"
	"math"

	"github.com/biomed-dq-validator/internal/domain"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// temporalApplicable reports whether the temporal component is scored. A
// faulted temporal section still counts as applicable so it earns nothing.
func temporalApplicable(report *domain.ValidationReport) bool {
	if report.Temporal == nil {
		_, faulted := report.SectionErrors[domain.SectionTemporal]
		return faulted
	}
	return report.Temporal.Applicable
}

// score computes the weighted quality score. Every component earns a share
// of its weight in [0,1]; a section that failed to run earns nothing.
func (e *Engine) score(report *domain.ValidationReport) domain.QualityScore {
	w := e.scoring
	completenessWeight, rangeWeight, temporalWeight := w.CompletenessWeight, w.RangeWeight, w.TemporalWeight
	temporalNote := ""
	if !temporalApplicable(report) {
		completenessWeight += w.TemporalToCompleteness
		rangeWeight += w.TemporalToRange
		temporalWeight = 0
		temporalNote = fmt.Sprintf("not applicable; %.0f points moved to completeness and %.0f to range validation",
			w.TemporalToCompleteness, w.TemporalToRange)
		if report.Temporal != nil && report.Temporal.Reason != "" {
			temporalNote = report.Temporal.Reason + "; " + temporalNote
		}
	}

	components := []domain.ComponentScore{
		e.component(report, domain.SectionPHI, w.PHIWeight, phiShare(report.PHI)),
		e.component(report, domain.SectionDeidentify, w.DeidentificationWeight, deidentShare(report.Deidentification)),
		e.component(report, domain.SectionCompleteness, completenessWeight, completenessShare(report.Completeness)),
		e.component(report, domain.SectionOutliers, w.OutlierWeight, outlierShare(report.Outliers, w.OutlierDensityCeilingPct)),
		e.component(report, domain.SectionRanges, rangeWeight, rangeShare(report.Ranges)),
		e.component(report, domain.SectionDuplicates, w.DuplicateWeight, duplicateShare(report.Duplicates, w.DuplicatePenaltyFactor)),
	}
	temporalComponent := e.component(report, domain.SectionTemporal, temporalWeight, temporalShare(report.Temporal))
	if temporalNote != "" {
		temporalComponent.Applicable = false
		temporalComponent.Note = temporalNote
	}
	components = append(components, temporalComponent)

	total, maxScore := 0.0, 0.0
	for _, c := range components {
		total += c.Points
		maxScore += c.Weight
	}
	overall := round2(math.Max(0, math.Min(maxScore, total)))
	return domain.QualityScore{
		Overall:    overall,
		MaxScore:   maxScore,
		Grade:      domain.GradeFor(overall),
		Components: components,
	}
}

func (e *Engine) component(report *domain.ValidationReport, name string, weight, share float64) domain.ComponentScore {
	c := domain.ComponentScore{Name: name, Weight: weight, Applicable: true}
	if msg, faulted := report.SectionErrors[name]; faulted {
		c.Note = "check failed: " + msg
		return c
	}
	c.Points = round2(weight * clamp01(share))
	return c
}

func phiShare(r *domain.PHIResult) float64 {
	if r == nil || r.PHIDetected {
		return 0
	}
	return 1
}

func deidentShare(r *domain.DeidentResult) float64 {
	if r == nil || r.ChecksTotal == 0 {
		return 0
	}
	return float64(r.ChecksPassed) / float64(r.ChecksTotal)
}

func completenessShare(r *domain.CompletenessResult) float64 {
	if r == nil {
		return 0
	}
	return r.Overall
}

// outlierShare decays linearly from full credit at zero density to nothing
// at the density ceiling.
func outlierShare(r *domain.OutlierReport, ceilingPct float64) float64 {
	if r == nil {
		return 0
	}
	if ceilingPct <= 0 {
		ceilingPct = 10
	}
	return 1 - r.DensityPct/ceilingPct
}

// rangeShare is the fraction of validated columns without violations. A
// table with no recognised columns is not penalised.
func rangeShare(r *domain.RangeReport) float64 {
	if r == nil {
		return 0
	}
	if r.ValidatedColumns == 0 {
		return 1
	}
	return float64(r.ValidatedColumns-r.ColumnsWithViolations) / float64(r.ValidatedColumns)
}

func duplicateShare(r *domain.DuplicateReport, factor float64) float64 {
	if r == nil {
		return 0
	}
	if factor <= 0 {
		factor = 5
	}
	return 1 - factor*r.Exact.DuplicatePct/100
}

func temporalShare(r *domain.TemporalReport) float64 {
	if r == nil || r.ChecksTotal == 0 {
		return 0
	}
	return float64(r.ChecksPassed) / float64(r.ChecksTotal)
}
