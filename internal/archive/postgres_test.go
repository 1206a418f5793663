package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomed-dq-validator/internal/domain"
)

var summaryColumns = []string{
	"id", "dataset_name", "mode", "overall_score", "grade", "status",
	"ready_for_ml", "phi_detected", "row_count", "column_count", "created_at",
}

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return store, mock
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reports")).
		WithArgs("r-1", "adni", "full", 92.5, "A", "EXCELLENT", true, false, 500, 6, at, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), sampleReport("r-1", "adni", 92.5, at)))
}

func TestPostgresStore_SaveUsesNumberedPlaceholders(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), sampleReport("r-1", "adni", 50, time.Now())))
}

func TestPostgresStore_SaveError(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reports")).
		WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), sampleReport("r-1", "adni", 50, time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	raw, err := json.Marshal(sampleReport("r-1", "adni", 81, time.Now()))
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT report_json FROM reports WHERE id = $1")).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{"report_json"}).AddRow(raw))

	got, err := store.Get(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.GRADE_B, got.QualityScore.Grade)
	assert.Equal(t, "adni", got.Metadata.DatasetName)
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT report_json FROM reports WHERE id = $1")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"report_json"}))

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.ErrReportNotFound, domain.CodeFor(err))
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(summaryColumns).
		AddRow("r-2", "ppmi", "quick", 64.0, "D", "NEEDS_IMPROVEMENT", false, true, 20, 4, at).
		AddRow("r-1", "adni", "full", 95.0, "A", "EXCELLENT", true, false, 500, 6, at.Add(-time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1 OFFSET $2")).
		WithArgs(50, 0).
		WillReturnRows(rows)

	got, err := store.List(context.Background(), 0, -3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r-2", got[0].ID)
	assert.Equal(t, domain.STATUS_NEEDS_IMPROVEMENT, got[0].Status)
	assert.True(t, got[0].PHIDetected)
	assert.Equal(t, domain.GRADE_A, got[1].Grade)
	assert.True(t, got[1].ReadyForML)
	assert.Equal(t, at.Add(-time.Hour), got[1].CreatedAt)
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reports")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reports WHERE id = $1")).
		WithArgs("r-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reports WHERE id = $1")).
		WithArgs("r-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Delete(context.Background(), "r-1"))
	assert.ErrorIs(t, store.Delete(context.Background(), "r-1"), domain.ErrNotFound)
}

func TestPostgresStore_ExportJSON(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	fixed := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	raw, err := json.Marshal(sampleReport("r-1", "adni", 90, fixed))
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT report_json FROM reports")).
		WithArgs(maxExportLimit).
		WillReturnRows(sqlmock.NewRows([]string{"report_json"}).AddRow(raw))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(context.Background(), &buf))

	var export ReportExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, exportVersion, export.Version)
	assert.Equal(t, 1, export.Count)
	assert.True(t, fixed.Equal(export.ExportedAt))
	require.Len(t, export.Reports, 1)
	assert.Equal(t, "r-1", export.Reports[0].Metadata.ReportID)
}

func TestPostgresStore_Close(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	mock.ExpectClose()

	assert.NoError(t, store.Close())
}
