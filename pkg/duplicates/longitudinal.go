package duplicates

import (
	"fmt"

	"github.com/biomed-dq-validator/internal/domain"
)

// PatientLevel counts patients with more than one record.
func PatientLevel(table *domain.Table, patientColumn string) domain.PatientDuplicateResult {
	if !table.HasColumn(patientColumn) {
		return domain.PatientDuplicateResult{
			Applicability: domain.NotApplicable(missingColumn("patient id", patientColumn)),
		}
	}

	result := domain.PatientDuplicateResult{
		Applicability: domain.Applies(),
		PatientColumn: patientColumn,
	}
	counts := make(map[string]int)
	records := 0
	for i := 0; i < table.NumRows(); i++ {
		v := table.Value(i, patientColumn)
		if v == nil {
			continue
		}
		counts[domain.Key(v)]++
		records++
	}

	result.Patients = len(counts)
	for _, c := range counts {
		if c > 1 {
			result.PatientsWithMultiple++
		}
		if c > result.MaxRecordsPerPatient {
			result.MaxRecordsPerPatient = c
		}
	}
	if result.Patients > 0 {
		result.MeanRecordsPerPatient = float64(records) / float64(result.Patients)
	}
	return result
}

// VisitLevel reports (patient, visit day) pairs recorded more than once.
// Visit times are compared at day granularity.
func VisitLevel(table *domain.Table, patientColumn, dateColumn string) domain.VisitDuplicateResult {
	switch {
	case !table.HasColumn(patientColumn):
		return domain.VisitDuplicateResult{Applicability: domain.NotApplicable(missingColumn("patient id", patientColumn))}
	case !table.HasColumn(dateColumn):
		return domain.VisitDuplicateResult{Applicability: domain.NotApplicable(missingColumn("visit date", dateColumn))}
	}

	type visitKey struct{ patient, day string }
	counts := make(map[visitKey]int)
	var order []visitKey

	for i := 0; i < table.NumRows(); i++ {
		p := table.Value(i, patientColumn)
		d, ok := domain.ParseTime(table.Value(i, dateColumn))
		if p == nil || !ok {
			continue
		}
		k := visitKey{domain.FormatValue(p), d.Format(domain.DateLayout)}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}

	result := domain.VisitDuplicateResult{Applicability: domain.Applies()}
	for _, k := range order {
		c := counts[k]
		if c < 2 {
			continue
		}
		result.DuplicatePairs++
		result.DuplicateRows += c
		if len(result.Examples) < domain.MaxExampleRows {
			result.Examples = append(result.Examples, domain.VisitDuplicate{PatientID: k.patient, Date: k.day, Count: c})
		}
	}
	result.Passed = result.DuplicatePairs == 0
	return result
}

func missingColumn(role, column string) string {
	if column == "" {
		return fmt.Sprintf("no %s column provided", role)
	}
	return fmt.Sprintf("%s column %q not found", role, column)
}
