// Package ranges validates numeric columns against plausible ranges for
// known biomedical fields.
package ranges

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/biomed-dq-validator/internal/domain"
)

// Range spec categories
const (
	CategoryCognitive    = "cognitive"
	CategoryCSF          = "csf_biomarker"
	CategoryImaging      = "imaging"
	CategoryPET          = "pet"
	CategoryDemographics = "demographics"
	CategoryGenetics     = "genetics"
	CategoryVitals       = "vitals"
	CategoryLabs         = "labs"
)

var nameStripper = strings.NewReplacer("_", "", " ", "", "-", "", ".", "")

// NormalizeFieldName folds case and drops underscores, spaces, hyphens and
// dots, so "CDR_SB", "cdr-sb" and "CDRSB" compare equal.
func NormalizeFieldName(name string) string {
	return strings.ToLower(nameStripper.Replace(name))
}

// Registry is an immutable set of range specs indexed by normalized field
// name and aliases. It is safe to share between goroutines.
type Registry struct {
	specs  []domain.RangeSpec
	byName map[string]int
}

// NewRegistry builds a registry. A later spec replaces an earlier one with
// the same normalized field name; a spec whose name or aliases resolve to a
// different spec is rejected with domain.ErrInvalidRange.
func NewRegistry(specs []domain.RangeSpec) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(specs)*2)}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRange, err)
		}
		if err := r.put(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// put adds s or replaces the spec with the same field name. A replacement
// without aliases keeps the aliases of the spec it replaces.
func (r *Registry) put(s domain.RangeSpec) error {
	key := NormalizeFieldName(s.FieldName)
	idx, exists := r.byName[key]
	if exists && NormalizeFieldName(r.specs[idx].FieldName) != key {
		return fmt.Errorf("%w: %q is an alias of %s", domain.ErrInvalidRange, s.FieldName, r.specs[idx].FieldName)
	}
	for _, alias := range s.Aliases {
		other, ok := r.byName[NormalizeFieldName(alias)]
		if ok && (!exists || other != idx) {
			return fmt.Errorf("%w: alias %q already belongs to %s", domain.ErrInvalidRange, alias, r.specs[other].FieldName)
		}
	}

	if exists {
		previous := r.specs[idx]
		if len(s.Aliases) == 0 {
			s.Aliases = previous.Aliases
		}
		for _, alias := range previous.Aliases {
			delete(r.byName, NormalizeFieldName(alias))
		}
		r.specs[idx] = s
	} else {
		r.specs = append(r.specs, s)
		idx = len(r.specs) - 1
	}

	r.byName[key] = idx
	for _, alias := range s.Aliases {
		r.byName[NormalizeFieldName(alias)] = idx
	}
	return nil
}

// Lookup finds the spec matching a column name.
func (r *Registry) Lookup(column string) (domain.RangeSpec, bool) {
	idx, ok := r.byName[NormalizeFieldName(column)]
	if !ok {
		return domain.RangeSpec{}, false
	}
	return r.specs[idx], true
}

// Specs returns a copy of the registered specs sorted by category then name.
func (r *Registry) Specs() []domain.RangeSpec {
	out := make([]domain.RangeSpec, len(r.specs))
	copy(out, r.specs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].FieldName < out[j].FieldName
	})
	return out
}

// Len returns the number of registered specs.
func (r *Registry) Len() int { return len(r.specs) }

// With returns a new registry that also holds spec. The receiver is unchanged.
func (r *Registry) With(specs ...domain.RangeSpec) (*Registry, error) {
	all := make([]domain.RangeSpec, 0, len(r.specs)+len(specs))
	all = append(all, r.specs...)
	all = append(all, specs...)
	return NewRegistry(all)
}

// DefaultRegistry returns the built-in registry, constructed once.
var DefaultRegistry = sync.OnceValue(func() *Registry {
	r, err := NewRegistry(builtinSpecs())
	if err != nil {
		panic(err)
	}
	return r
})

func builtinSpecs() []domain.RangeSpec {
	return []domain.RangeSpec{
		// Cognitive and functional assessments
		{FieldName: "MMSE", Min: 0, Max: 30, Unit: "points", Category: CategoryCognitive, Description: "Mini-Mental State Examination"},
		{FieldName: "MOCA", Min: 0, Max: 30, Unit: "points", Category: CategoryCognitive, Description: "Montreal Cognitive Assessment"},
		{FieldName: "CDRSB", Min: 0, Max: 18, Unit: "points", Category: CategoryCognitive, Description: "Clinical Dementia Rating, sum of boxes", Aliases: []string{"CDR_SUM_BOXES"}},
		{FieldName: "CDR", Min: 0, Max: 3, Unit: "points", Category: CategoryCognitive, Description: "Clinical Dementia Rating, global", Aliases: []string{"CDGLOBAL", "CDR_GLOBAL"}},
		{FieldName: "ADAS11", Min: 0, Max: 70, Unit: "points", Category: CategoryCognitive, Description: "ADAS-Cog 11-item total"},
		{FieldName: "ADAS13", Min: 0, Max: 85, Unit: "points", Category: CategoryCognitive, Description: "ADAS-Cog 13-item total", Aliases: []string{"TOTAL13"}},
		{FieldName: "ADASQ4", Min: 0, Max: 10, Unit: "points", Category: CategoryCognitive, Description: "ADAS-Cog delayed word recall"},
		{FieldName: "FAQ", Min: 0, Max: 30, Unit: "points", Category: CategoryCognitive, Description: "Functional Activities Questionnaire", Aliases: []string{"FAQTOTAL"}},
		{FieldName: "RAVLT_immediate", Min: 0, Max: 75, Unit: "words", Category: CategoryCognitive, Description: "Rey Auditory Verbal Learning Test, sum of trials 1-5"},
		{FieldName: "RAVLT_learning", Min: -15, Max: 15, Unit: "words", Category: CategoryCognitive},
		{FieldName: "RAVLT_forgetting", Min: -15, Max: 15, Unit: "words", Category: CategoryCognitive},
		{FieldName: "RAVLT_perc_forgetting", Min: -100, Max: 100, Unit: "%", Category: CategoryCognitive},
		{FieldName: "LDELTOTAL", Min: 0, Max: 25, Unit: "points", Category: CategoryCognitive, Description: "Logical Memory delayed recall"},
		{FieldName: "GDS", Min: 0, Max: 15, Unit: "points", Category: CategoryCognitive, Description: "Geriatric Depression Scale", Aliases: []string{"GDTOTAL"}},
		{FieldName: "TRABSCOR", Min: 0, Max: 300, Unit: "seconds", Category: CategoryCognitive, Description: "Trail Making Test part B"},

		// CSF biomarkers
		{FieldName: "ABETA", Min: 200, Max: 1700, Unit: "pg/mL", Category: CategoryCSF, Description: "CSF amyloid beta 1-42", Aliases: []string{"ABETA42"}},
		{FieldName: "TAU", Min: 80, Max: 1300, Unit: "pg/mL", Category: CategoryCSF, Description: "CSF total tau", Aliases: []string{"TTAU"}},
		{FieldName: "PTAU", Min: 8, Max: 120, Unit: "pg/mL", Category: CategoryCSF, Description: "CSF phosphorylated tau 181", Aliases: []string{"PTAU181"}},

		// Volumetric MRI
		{FieldName: "Hippocampus", Min: 2000, Max: 12000, Unit: "mm3", Category: CategoryImaging},
		{FieldName: "Ventricles", Min: 5000, Max: 250000, Unit: "mm3", Category: CategoryImaging},
		{FieldName: "WholeBrain", Min: 600000, Max: 1600000, Unit: "mm3", Category: CategoryImaging},
		{FieldName: "Entorhinal", Min: 1000, Max: 6500, Unit: "mm3", Category: CategoryImaging},
		{FieldName: "Fusiform", Min: 7000, Max: 30000, Unit: "mm3", Category: CategoryImaging},
		{FieldName: "MidTemp", Min: 8000, Max: 33000, Unit: "mm3", Category: CategoryImaging},
		{FieldName: "ICV", Min: 900000, Max: 2200000, Unit: "mm3", Category: CategoryImaging, Description: "Intracranial volume"},

		// PET
		{FieldName: "FDG", Min: 0.5, Max: 2.5, Unit: "SUVR", Category: CategoryPET},
		{FieldName: "AV45", Min: 0.5, Max: 2.5, Unit: "SUVR", Category: CategoryPET, Description: "Florbetapir amyloid PET"},
		{FieldName: "PIB", Min: 0.5, Max: 3.5, Unit: "SUVR", Category: CategoryPET},

		// Demographics and genetics
		{FieldName: "AGE", Min: 18, Max: 120, Unit: "years", Category: CategoryDemographics, Aliases: []string{"PTAGE", "AGE_AT_VISIT"}},
		{FieldName: "PTEDUCAT", Min: 0, Max: 30, Unit: "years", Category: CategoryDemographics, Aliases: []string{"EDUCATION_YEARS"}},
		{FieldName: "APOE4", Min: 0, Max: 2, Unit: "alleles", Category: CategoryGenetics},

		// Vitals
		{FieldName: "BMI", Min: 10, Max: 80, Unit: "kg/m2", Category: CategoryVitals},
		{FieldName: "WEIGHT", Min: 20, Max: 300, Unit: "kg", Category: CategoryVitals, Aliases: []string{"VSWEIGHT"}},
		{FieldName: "HEIGHT", Min: 100, Max: 250, Unit: "cm", Category: CategoryVitals, Aliases: []string{"VSHEIGHT"}},
		{FieldName: "SYSTOLIC_BP", Min: 60, Max: 260, Unit: "mmHg", Category: CategoryVitals, Aliases: []string{"SBP", "VSBPSYS"}},
		{FieldName: "DIASTOLIC_BP", Min: 30, Max: 160, Unit: "mmHg", Category: CategoryVitals, Aliases: []string{"DBP", "VSBPDIA"}},
		{FieldName: "HEART_RATE", Min: 30, Max: 220, Unit: "bpm", Category: CategoryVitals, Aliases: []string{"PULSE", "VSPULSE"}},
		{FieldName: "TEMPERATURE", Min: 32, Max: 43, Unit: "C", Category: CategoryVitals, Aliases: []string{"VSTEMP"}},
		{FieldName: "RESPIRATORY_RATE", Min: 5, Max: 60, Unit: "breaths/min", Category: CategoryVitals, Aliases: []string{"VSRESP"}},

		// Laboratory
		{FieldName: "GLUCOSE", Min: 20, Max: 1000, Unit: "mg/dL", Category: CategoryLabs},
		{FieldName: "CHOLESTEROL", Min: 50, Max: 500, Unit: "mg/dL", Category: CategoryLabs},
		{FieldName: "HBA1C", Min: 3, Max: 20, Unit: "%", Category: CategoryLabs},
		{FieldName: "CREATININE", Min: 0.1, Max: 20, Unit: "mg/dL", Category: CategoryLabs},
	}
}
