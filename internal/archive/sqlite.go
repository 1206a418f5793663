package archive

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/biomed-dq-validator/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using an embedded SQLite file.
type SQLiteStore struct {
	*sqlStore
	dbPath string
}

// NewSQLiteStore creates a new SQLite report store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		sqlStore: &sqlStore{
			db:          db,
			placeholder: func(int) string { return "?" },
			now:         time.Now,
		},
		dbPath: dbPath,
	}, nil
}

// createSQLiteSchema creates the reports table and its indexes.
func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		dataset_name TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL DEFAULT '',
		overall_score REAL NOT NULL DEFAULT 0,
		grade TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		ready_for_ml INTEGER NOT NULL DEFAULT 0,
		phi_detected INTEGER NOT NULL DEFAULT 0,
		row_count INTEGER NOT NULL DEFAULT 0,
		column_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_dataset ON reports(dataset_name);
	CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Save stores a report, replacing any report with the same ID.
func (s *SQLiteStore) Save(ctx context.Context, report *domain.ValidationReport) error {
	return s.save(ctx, report)
}

// Get returns the report with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.ValidationReport, error) {
	return s.get(ctx, id)
}

// List returns report summaries with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*ReportSummary, error) {
	return s.list(ctx, limit, offset)
}

// Count returns the total number of archived reports.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	return s.count(ctx)
}

// Delete removes a report by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

// ExportJSON exports all reports to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return s.exportJSON(ctx, writer)
}

// ImportJSON imports reports from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return s.importJSON(ctx, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
