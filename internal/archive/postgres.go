package archive

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/biomed-dq-validator/internal/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// Supported database/sql driver names for the Postgres archive.
const (
	DRIVER_PGX = "pgx"
	DRIVER_PQ  = "postgres"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore creates a store over an existing connection. The schema
// must already exist, see MigrationRunner.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{
		sqlStore: &sqlStore{
			db:          db,
			placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
			now:         time.Now,
		},
	}, nil
}

// OpenPostgres connects to the configured database, optionally migrating the
// schema first.
func OpenPostgres(ctx context.Context, cfg domain.ArchiveConfig, logger *logrus.Logger) (*PostgresStore, error) {
	driver := cfg.SQLDriver
	if driver == "" {
		driver = DRIVER_PGX
	}
	if driver != DRIVER_PGX && driver != DRIVER_PQ {
		return nil, domain.NewValidationError("archive.sql_driver", "must be pgx or postgres", driver)
	}

	if cfg.RunMigrations {
		runner, err := NewMigrationRunner(cfg.URL, logger)
		if err != nil {
			return nil, err
		}
		upErr := runner.Up(ctx)
		if err := runner.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close migration runner")
		}
		if upErr != nil {
			return nil, upErr
		}
	}

	db, err := sql.Open(driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"driver":         driver,
		"max_open_conns": cfg.MaxOpenConns,
		"run_migrations": cfg.RunMigrations,
	}).Info("Report archive connected to PostgreSQL")

	return store, nil
}

// Save stores a report, replacing any report with the same ID.
func (s *PostgresStore) Save(ctx context.Context, report *domain.ValidationReport) error {
	return s.save(ctx, report)
}

// Get returns the report with the given ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.ValidationReport, error) {
	return s.get(ctx, id)
}

// List returns report summaries with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*ReportSummary, error) {
	return s.list(ctx, limit, offset)
}

// Count returns the total number of archived reports.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	return s.count(ctx)
}

// Delete removes a report by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

// ExportJSON exports all reports to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return s.exportJSON(ctx, writer)
}

// ImportJSON imports reports from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return s.importJSON(ctx, reader)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
