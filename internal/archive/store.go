// Package archive persists validation reports so they can be listed,
// re-rendered and exported after the run that produced them.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/biomed-dq-validator/internal/domain"
)

// Store defines the interface for report archive operations.
type Store interface {
	// Save stores a report, replacing any report with the same ID.
	Save(ctx context.Context, report *domain.ValidationReport) error

	// Get returns the report with the given ID or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.ValidationReport, error)

	// List returns report summaries, newest first.
	List(ctx context.Context, limit, offset int) ([]*ReportSummary, error)

	// Count returns the total number of archived reports.
	Count(ctx context.Context) (int64, error)

	// Delete removes a report. Deleting an unknown ID returns domain.ErrNotFound.
	Delete(ctx context.Context, id string) error

	// ExportJSON writes every archived report as one JSON document.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON loads an export document, skipping IDs already present.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close releases the underlying connection pool.
	Close() error
}

// ReportSummary represents the indexed columns stored next to each report.
type ReportSummary struct {
	ID          string        `json:"id"`
	DatasetName string        `json:"dataset_name"`
	Mode        string        `json:"mode"`
	Score       float64       `json:"score"`
	Grade       domain.Grade  `json:"grade"`
	Status      domain.Status `json:"status"`
	ReadyForML  bool          `json:"ready_for_ml"`
	PHIDetected bool          `json:"phi_detected"`
	Rows        int           `json:"rows"`
	Columns     int           `json:"columns"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ReportExport represents the JSON export format.
type ReportExport struct {
	Version    string                     `json:"version"`
	ExportedAt time.Time                  `json:"exported_at"`
	Count      int                        `json:"count"`
	Reports    []*domain.ValidationReport `json:"reports"`
}

// exportVersion is bumped when the export layout changes.
const exportVersion = "1.0"

// maxExportLimit is the maximum number of reports exported at once.
const maxExportLimit = 1000000

// Summarize extracts the indexed columns of a report.
func Summarize(r *domain.ValidationReport) *ReportSummary {
	return &ReportSummary{
		ID:          r.Metadata.ReportID,
		DatasetName: r.Metadata.DatasetName,
		Mode:        r.Metadata.Mode,
		Score:       r.QualityScore.Overall,
		Grade:       r.QualityScore.Grade,
		Status:      r.Assessment.Status,
		ReadyForML:  r.Assessment.ReadyForML,
		PHIDetected: r.PHIDetected(),
		Rows:        r.DatasetInfo.Rows,
		Columns:     r.DatasetInfo.Columns,
		CreatedAt:   r.Metadata.GeneratedAt,
	}
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSummary(s scanner) (*ReportSummary, error) {
	sum := &ReportSummary{}
	var grade, status string
	err := s.Scan(
		&sum.ID, &sum.DatasetName, &sum.Mode, &sum.Score, &grade, &status,
		&sum.ReadyForML, &sum.PHIDetected, &sum.Rows, &sum.Columns, &sum.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sum.Grade = domain.Grade(grade)
	sum.Status = domain.Status(status)
	return sum, nil
}

func decodeReport(raw []byte) (*domain.ValidationReport, error) {
	var report domain.ValidationReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

// sqlStore holds the queries shared by the SQLite and Postgres stores. The
// two dialects differ only in their placeholder syntax.
type sqlStore struct {
	db          *sql.DB
	placeholder func(n int) string
	now         func() time.Time
}

func (s *sqlStore) bind(n int) string {
	return s.placeholder(n)
}

func (s *sqlStore) save(ctx context.Context, report *domain.ValidationReport) error {
	if report == nil || report.Metadata.ReportID == "" {
		return domain.NewValidationError("report_id", "report must carry an ID", nil)
	}

	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	sum := Summarize(report)
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = s.now()
	}

	query := fmt.Sprintf(`
		INSERT INTO reports (
			id, dataset_name, mode, overall_score, grade, status,
			ready_for_ml, phi_detected, row_count, column_count, created_at, report_json
		) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		ON CONFLICT (id) DO UPDATE SET
			dataset_name = excluded.dataset_name,
			mode = excluded.mode,
			overall_score = excluded.overall_score,
			grade = excluded.grade,
			status = excluded.status,
			ready_for_ml = excluded.ready_for_ml,
			phi_detected = excluded.phi_detected,
			row_count = excluded.row_count,
			column_count = excluded.column_count,
			report_json = excluded.report_json`,
		s.bind(1), s.bind(2), s.bind(3), s.bind(4), s.bind(5), s.bind(6),
		s.bind(7), s.bind(8), s.bind(9), s.bind(10), s.bind(11), s.bind(12))

	_, err = s.db.ExecContext(ctx, query,
		sum.ID, sum.DatasetName, sum.Mode, sum.Score, string(sum.Grade), string(sum.Status),
		sum.ReadyForML, sum.PHIDetected, sum.Rows, sum.Columns, sum.CreatedAt.UTC(), string(raw),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *sqlStore) get(ctx context.Context, id string) (*domain.ValidationReport, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT report_json FROM reports WHERE id = "+s.bind(1), id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s not found: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return decodeReport(raw)
}

func (s *sqlStore) list(ctx context.Context, limit, offset int) ([]*ReportSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, dataset_name, mode, overall_score, grade, status,
			ready_for_ml, phi_detected, row_count, column_count, created_at
		FROM reports
		ORDER BY created_at DESC
		LIMIT %s OFFSET %s`, s.bind(1), s.bind(2)), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	result := []*ReportSummary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, sum)
	}
	return result, rows.Err()
}

func (s *sqlStore) count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&count)
	return count, err
}

func (s *sqlStore) delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE id = "+s.bind(1), id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("report %s not found: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *sqlStore) exportJSON(ctx context.Context, writer io.Writer) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT report_json FROM reports
		ORDER BY created_at DESC
		LIMIT %s`, s.bind(1)), maxExportLimit)
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	reports := []*domain.ValidationReport{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		report, err := decodeReport(raw)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	export := &ReportExport{
		Version:    exportVersion,
		ExportedAt: s.now().UTC(),
		Count:      len(reports),
		Reports:    reports,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func (s *sqlStore) importJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export ReportExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, report := range export.Reports {
		if report == nil {
			continue
		}
		_, err := s.get(ctx, report.Metadata.ReportID)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if err := s.save(ctx, report); err != nil {
			return imported, skipped, err
		}
		imported++
	}

	return imported, skipped, nil
}
