package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/example/recall/internal/database"
	"github.com/example/recall/pkg/models"
)

func newRecords(t *testing.T) *database.ReviewRecordRepository {
	t.Helper()
	db, err := database.Open(database.Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewReviewRecordRepository(db)
}

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	for n, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, n+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "exposures.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestImportExposuresFromExcel(t *testing.T) {
	records := newRecords(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	path := writeWorkbook(t, [][]interface{}{
		{"learner_id", "item_id"},
		{"learner-1", "item-1"},
		{"learner-1", "item-2"},
		{"learner-2", "item-1"},
		{"", "item-9"}, // bad row
	})

	importer := NewImporter(records, nil)
	result, err := importer.ImportExposures(ctx, DefaultConfig(path), now)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 0, result.Existing)
	assert.Len(t, result.Errors, 1)

	rec, err := records.Get(ctx, "learner-1", "item-2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, rec.Status)
	assert.True(t, rec.DueAt.Equal(now), "imported exposures are immediately due")
}

func TestImportExposuresIsIdempotent(t *testing.T) {
	records := newRecords(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	path := writeWorkbook(t, [][]interface{}{
		{"learner_id", "item_id"},
		{"learner-1", "item-1"},
	})

	importer := NewImporter(records, nil)
	_, err := importer.ImportExposures(ctx, DefaultConfig(path), now)
	require.NoError(t, err)

	again, err := importer.ImportExposures(ctx, DefaultConfig(path), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 1, again.Existing)
}

func TestImportExposuresFromCSV(t *testing.T) {
	records := newRecords(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	path := filepath.Join(t.TempDir(), "exposures.csv")
	require.NoError(t, os.WriteFile(path, []byte("learner_id,item_id\nlearner-1,item-1\nlearner-1,item-2\n"), 0o644))

	importer := NewImporter(records, nil)
	result, err := importer.ImportExposures(ctx, DefaultConfig(path), now)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
}

func TestImportExposuresRejectsUnknownFormat(t *testing.T) {
	importer := NewImporter(newRecords(t), nil)
	_, err := importer.ImportExposures(context.Background(), DefaultConfig("exposures.txt"), time.Now())
	assert.Error(t, err)
}
