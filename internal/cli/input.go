package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/internal/service"
)

// tableFile is the JSON layout of a dataset file. The cleaned table written
// by the clean command uses the same layout.
type tableFile struct {
	Columns []string         `json:"columns,omitempty"`
	Rows    []map[string]any `json:"rows"`
}

// datasetFlags are the role hints shared by the validation commands.
type datasetFlags struct {
	name             string
	patientID        string
	visitDate        string
	dateColumns      []string
	quasiIdentifiers []string
	fuzzyColumns     []string
	trendColumn      string
	trendDirection   string
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.name, "name", "", "dataset name recorded in the report (default: file name)")
	flags.StringVar(&f.patientID, "patient-id", "", "column holding the patient identifier")
	flags.StringVar(&f.visitDate, "visit-date", "", "column holding the visit date")
	flags.StringSliceVar(&f.dateColumns, "date-columns", nil, "additional columns to parse as dates")
	flags.StringSliceVar(&f.quasiIdentifiers, "quasi-identifiers", nil, "columns used for k-anonymity grouping")
	flags.StringSliceVar(&f.fuzzyColumns, "fuzzy-columns", nil, "columns compared for near-duplicate rows")
	flags.StringVar(&f.trendColumn, "trend-column", "", "column checked for a monotonic trend per patient")
	flags.StringVar(&f.trendDirection, "trend-direction", "", "expected trend: increasing or decreasing")
}

// readDataset loads the dataset file at path, or stdin for "-", and applies
// the role hints.
func (f *datasetFlags) readDataset(path string, stdin io.Reader) (*service.ValidateRequest, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}

	file, err := decodeTableFile(raw)
	if err != nil {
		return nil, err
	}

	name := f.name
	if name == "" && path != "-" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &service.ValidateRequest{
		DatasetName:      name,
		Columns:          file.Columns,
		Rows:             file.Rows,
		PatientIDColumn:  f.patientID,
		VisitDateColumn:  f.visitDate,
		DateColumns:      f.dateColumns,
		QuasiIdentifiers: f.quasiIdentifiers,
		FuzzyColumns:     f.fuzzyColumns,
		TrendColumn:      f.trendColumn,
		TrendDirection:   f.trendDirection,
	}, nil
}

// decodeTableFile accepts either the columns/rows object or a bare array of
// row objects.
func decodeTableFile(raw []byte) (*tableFile, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, domain.NewValidationError("dataset", "file is empty", nil)
	}

	var file tableFile
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &file.Rows); err != nil {
			return nil, domain.NewValidationError("dataset", err.Error(), nil)
		}
		return &file, nil
	}
	if err := json.Unmarshal(trimmed, &file); err != nil {
		return nil, domain.NewValidationError("dataset", err.Error(), nil)
	}
	return &file, nil
}

// writeTable writes a table in the dataset file layout.
func writeTable(w io.Writer, table *domain.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tableFile{Columns: table.Columns(), Rows: table.Records()})
}

// openOutput returns stdout for "" and "-", or creates the named file.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}
