package service

import (
	"fmt"

	"github.com/biomed-dq-validator/internal/domain"
)

// ValidateRequest represents a dataset submitted over the API, the MCP tools
// or the CLI. When Columns is empty the column order is derived from the
// rows themselves.
type ValidateRequest struct {
	DatasetName      string           `json:"dataset_name"`
	Columns          []string         `json:"columns,omitempty"`
	Rows             []map[string]any `json:"rows"`
	PatientIDColumn  string           `json:"patient_id_column,omitempty"`
	VisitDateColumn  string           `json:"visit_date_column,omitempty"`
	DateColumns      []string         `json:"date_columns,omitempty"`
	QuasiIdentifiers []string         `json:"quasi_identifiers,omitempty"`
	FuzzyColumns     []string         `json:"fuzzy_columns,omitempty"`
	TrendColumn      string           `json:"trend_column,omitempty"`
	TrendDirection   string           `json:"trend_direction,omitempty"`
}

// CleanRequest adds the cleaning steps to a ValidateRequest.
type CleanRequest struct {
	ValidateRequest
	Clean domain.CleanOptions `json:"clean"`
}

// Table builds the dataset, converting every parseable value in the visit
// date column and the declared date columns into a time.Time. Values that do
// not parse are kept as they are so the temporal checks can count them.
func (r *ValidateRequest) Table() (*domain.Table, error) {
	if len(r.Rows) == 0 && len(r.Columns) == 0 {
		return nil, domain.NewValidationError("rows", "dataset must contain at least one row or column", nil)
	}

	dateColumns := r.dateColumns()
	rows := make([]domain.Row, len(r.Rows))
	for i, rec := range r.Rows {
		row := make(domain.Row, len(rec))
		for k, v := range rec {
			if dateColumns[k] {
				if t, ok := domain.ParseTime(v); ok {
					v = t
				}
			}
			row[k] = v
		}
		rows[i] = row
	}

	var table *domain.Table
	if len(r.Columns) > 0 {
		t, err := domain.NewTable(r.Columns, rows)
		if err != nil {
			return nil, err
		}
		table = t
	} else {
		records := make([]map[string]any, len(rows))
		for i, row := range rows {
			records[i] = row
		}
		table = domain.TableFromRecords(records)
	}

	for _, column := range r.DateColumns {
		if column != "" && !table.HasColumn(column) {
			return nil, fmt.Errorf("date column %q: %w", column, domain.ErrUnknownColumn)
		}
	}
	return table, nil
}

func (r *ValidateRequest) dateColumns() map[string]bool {
	out := make(map[string]bool, len(r.DateColumns)+1)
	if r.VisitDateColumn != "" {
		out[r.VisitDateColumn] = true
	}
	for _, c := range r.DateColumns {
		if c != "" {
			out[c] = true
		}
	}
	return out
}

// Options converts the request hints into engine options.
func (r *ValidateRequest) Options() (ValidateOptions, error) {
	opts := ValidateOptions{
		DatasetName: r.DatasetName,
		Roles: domain.ColumnRoles{
			PatientIDColumn: r.PatientIDColumn,
			VisitDateColumn: r.VisitDateColumn,
		},
		QuasiIdentifiers: r.QuasiIdentifiers,
		FuzzyColumns:     r.FuzzyColumns,
		TrendColumn:      r.TrendColumn,
	}
	if r.TrendDirection != "" {
		direction := domain.TrendDirection(r.TrendDirection)
		if !direction.IsValid() {
			return ValidateOptions{}, domain.NewValidationError("trend_direction", "must be increasing or decreasing", r.TrendDirection)
		}
		opts.TrendDirection = direction
	}
	return opts, nil
}
