package ranges

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/biomed-dq-validator/internal/domain"
)

// specFile is the YAML layout of a custom range spec file:
//
//	specs:
//	  - field_name: NFL
//	    min: 0
//	    max: 200
//	    unit: pg/mL
//	    category: csf_biomarker
type specFile struct {
	Specs []domain.RangeSpec `yaml:"specs"`
}

// LoadSpecsYAML decodes and validates range specs from YAML.
func LoadSpecsYAML(r io.Reader) ([]domain.RangeSpec, error) {
	var f specFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding range specs: %w", err)
	}
	for i, s := range f.Specs {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("range spec %d: %w: %v", i, domain.ErrInvalidRange, err)
		}
	}
	return f.Specs, nil
}

// LoadSpecsFile reads range specs from a YAML file.
func LoadSpecsFile(path string) ([]domain.RangeSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening range specs file: %w", err)
	}
	defer f.Close()
	return LoadSpecsYAML(f)
}
