package archive

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomed-dq-validator/internal/domain"
)

func sampleReport(id, dataset string, score float64, at time.Time) *domain.ValidationReport {
	return &domain.ValidationReport{
		Metadata: domain.ReportMetadata{
			ReportID:      id,
			DatasetName:   dataset,
			Mode:          "full",
			GeneratedAt:   at,
			Duration:      15 * time.Millisecond,
			EngineVersion: "1.0.0",
		},
		DatasetInfo: domain.DatasetInfo{
			Rows:        500,
			Columns:     6,
			ColumnNames: []string{"RID", "EXAMDATE", "AGE", "PTGENDER", "MMSE", "ABETA"},
		},
		PHI: &domain.PHIResult{PHIDetected: false},
		QualityScore: domain.QualityScore{
			Overall:  score,
			MaxScore: 100,
			Grade:    domain.GradeFor(score),
		},
		Assessment: domain.Assessment{
			Status:          domain.StatusFor(score, false),
			Issues:          []string{},
			Warnings:        []string{},
			Recommendations: []string{},
			ReadyForML:      score >= 80,
		},
	}
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	store := newTestSQLiteStore(t)

	assert.FileExists(t, store.Path())

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, sampleReport("r-1", "adni", 92.5, at)))

	got, err := store.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "adni", got.Metadata.DatasetName)
	assert.Equal(t, 92.5, got.QualityScore.Overall)
	assert.Equal(t, domain.GRADE_A, got.QualityScore.Grade)
	assert.True(t, got.Assessment.ReadyForML)
	assert.Equal(t, 15*time.Millisecond, got.Metadata.Duration)
	assert.True(t, at.Equal(got.Metadata.GeneratedAt))
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, sampleReport("r-1", "adni", 55, at)))
	require.NoError(t, store.Save(ctx, sampleReport("r-1", "adni-v2", 85, at)))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "adni-v2", got.Metadata.DatasetName)
	assert.Equal(t, 85.0, got.QualityScore.Overall)
}

func TestSQLiteStore_SaveRequiresID(t *testing.T) {
	store := newTestSQLiteStore(t)

	err := store.Save(context.Background(), sampleReport("", "adni", 90, time.Now()))
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "report_id", validationErr.Field)

	assert.Error(t, store.Save(context.Background(), nil))
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_List(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, sampleReport("old", "a", 40, base)))
	require.NoError(t, store.Save(ctx, sampleReport("mid", "b", 75, base.Add(time.Hour))))
	require.NoError(t, store.Save(ctx, sampleReport("new", "c", 95, base.Add(2*time.Hour))))

	all, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "mid", all[1].ID)
	assert.Equal(t, "old", all[2].ID)

	assert.Equal(t, domain.GRADE_A, all[0].Grade)
	assert.Equal(t, domain.STATUS_EXCELLENT, all[0].Status)
	assert.True(t, all[0].ReadyForML)
	assert.False(t, all[2].ReadyForML)
	assert.Equal(t, 500, all[0].Rows)
	assert.Equal(t, 6, all[0].Columns)

	page, err := store.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "mid", page[0].ID)

	empty, err := store.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleReport("r-1", "adni", 90, time.Now())))
	require.NoError(t, store.Delete(ctx, "r-1"))

	_, err := store.Get(ctx, "r-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "r-1"), domain.ErrNotFound)
}

func TestSQLiteStore_ExportImport(t *testing.T) {
	source := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, source.Save(ctx, sampleReport("r-1", "a", 90, base)))
	require.NoError(t, source.Save(ctx, sampleReport("r-2", "b", 65, base.Add(time.Minute))))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), `"version": "1.0"`)
	assert.Contains(t, buf.String(), `"count": 2`)

	target := newTestSQLiteStore(t)
	require.NoError(t, target.Save(ctx, sampleReport("r-1", "a", 90, base)))

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	got, err := target.Get(ctx, "r-2")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Metadata.DatasetName)
}

func TestSQLiteStore_ImportRejectsGarbage(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, _, err := store.ImportJSON(context.Background(), bytes.NewReader([]byte("not json")))
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	r := sampleReport("r-9", "ppmi", 72, time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC))
	r.PHI = nil

	sum := Summarize(r)
	assert.Equal(t, "r-9", sum.ID)
	assert.Equal(t, "ppmi", sum.DatasetName)
	assert.Equal(t, domain.GRADE_C, sum.Grade)
	assert.True(t, sum.PHIDetected, "a missing PHI section counts as detected")
}

func TestOpen(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		store, err := Open(ctx, domain.ArchiveConfig{Driver: ARCHIVE_NONE}, logger)
		require.NoError(t, err)
		assert.Nil(t, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reports.db")
		store, err := Open(ctx, domain.ArchiveConfig{Driver: ARCHIVE_SQLITE, Path: path}, logger)
		require.NoError(t, err)
		require.NotNil(t, store)
		defer store.Close()
		assert.IsType(t, &SQLiteStore{}, store)
	})

	t.Run("unknown driver", func(t *testing.T) {
		store, err := Open(ctx, domain.ArchiveConfig{Driver: "mongo"}, logger)
		assert.Error(t, err)
		assert.Nil(t, store)
	})

	t.Run("bad sql driver", func(t *testing.T) {
		store, err := Open(ctx, domain.ArchiveConfig{Driver: ARCHIVE_POSTGRES, SQLDriver: "mysql"}, logger)
		assert.Error(t, err)
		assert.Nil(t, store)
	})
}
