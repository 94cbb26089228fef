package excel

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/anbuselvan/assetsync/internal/apperr"
)

type sheetFixture struct {
	name string
	rows [][]interface{}
}

func writeWorkbook(t *testing.T, path string, sheets []sheetFixture) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet.name))
		} else {
			_, err := f.NewSheet(sheet.name)
			require.NoError(t, err)
		}
		for r := range sheet.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet.name, cell, &sheet.rows[r]))
		}
	}

	require.NoError(t, f.SaveAs(path))
}

func assetSheet() sheetFixture {
	return sheetFixture{
		name: "Assets",
		rows: [][]interface{}{
			{"Asset Tag", "User Name", "Department", "Location"},
			{"A123", "Priya", "Finance", "Chennai"},
			{"B456", "Ravi", "HR", "Madurai"},
		},
	}
}

func newTestSynchronizer(t *testing.T, sheets []sheetFixture) *Synchronizer {
	t.Helper()

	dir := t.TempDir()
	excelPath := filepath.Join(dir, "assets.xlsx")
	writeWorkbook(t, excelPath, sheets)

	s, err := NewSynchronizer(excelPath,
		filepath.Join(dir, "assets.db"), filepath.Join(dir, "backups"))
	require.NoError(t, err)
	return s
}

func openAssetsDB(t *testing.T, s *Synchronizer) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite", s.dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNormalizeColumn(t *testing.T) {
	tests := []struct {
		header   string
		position int
		want     string
	}{
		{"Asset Tag (New)", 0, "asset_tag_new"},
		{"", 3, "col_3"},
		{"Cost %", 0, "cost_percent"},
		{"  User ID  ", 1, "user_id"},
		{"Date-of-Return", 0, "date_of_return"},
		{"Serial No.", 0, "serial_no_"},
		{"Dept/Team", 0, "dept_team"},
		{"Price $", 0, "price_"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, normalizeColumn(tt.header, tt.position),
			"header %q at position %d", tt.header, tt.position)
	}
}

func TestTableNameForSheet(t *testing.T) {
	require.Equal(t, "assets", tableNameForSheet("Assets"))
	require.Equal(t, "spare_laptops", tableNameForSheet("Spare Laptops"))
}

func TestImportCreatesNormalizedTables(t *testing.T) {
	s := newTestSynchronizer(t, []sheetFixture{assetSheet()})
	db := openAssetsDB(t, s)

	rows, err := db.Queryx(`SELECT * FROM assets`)
	require.NoError(t, err)
	defer rows.Close()

	columns, err := rows.Columns()
	require.NoError(t, err)
	require.Equal(t, []string{"asset_tag", "user_name", "department", "location"}, columns)

	count := 0
	for rows.Next() {
		count++
	}
	require.NoError(t, rows.Err())
	require.Equal(t, 2, count)
}

func TestImportIsIdempotent(t *testing.T) {
	s := newTestSynchronizer(t, []sheetFixture{assetSheet()})

	result, err := s.ImportSpreadsheet(context.Background())
	require.NoError(t, err)

	// The database existed after the initial import, so the re-import must
	// have backed it up.
	require.NotEmpty(t, result.BackupPath)
	_, err = os.Stat(result.BackupPath)
	require.NoError(t, err)

	db := openAssetsDB(t, s)
	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM assets`))
	require.Equal(t, 2, count)
}

func TestImportMissingSpreadsheet(t *testing.T) {
	dir := t.TempDir()
	_, err := NewSynchronizer(filepath.Join(dir, "absent.xlsx"),
		filepath.Join(dir, "assets.db"), filepath.Join(dir, "backups"))
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFindAssetByTag(t *testing.T) {
	s := newTestSynchronizer(t, []sheetFixture{
		assetSheet(),
		{
			name: "Sites",
			rows: [][]interface{}{
				{"Location", "Region"},
				{"Chennai", "South"},
			},
		},
	})

	records, err := s.FindAssetByTag(context.Background(), "A123")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "A123", records[0].AssetTag)
	require.Equal(t, "assets", records[0].SourceTable)
	require.Equal(t, "Finance", records[0].Department)

	records, err = s.FindAssetByTag(context.Background(), "ZZZ")
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestFindAssetAcrossTables(t *testing.T) {
	spares := sheetFixture{
		name: "Spares",
		rows: [][]interface{}{
			{"Asset Tag", "Department"},
			{"A123", "Storage"},
		},
	}
	s := newTestSynchronizer(t, []sheetFixture{assetSheet(), spares})

	records, err := s.FindAssetByTag(context.Background(), "A123")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "assets", records[0].SourceTable)
	require.Equal(t, "spares", records[1].SourceTable)
}

func TestFindAssetKeepsBlankCells(t *testing.T) {
	s := newTestSynchronizer(t, []sheetFixture{{
		name: "Assets",
		rows: [][]interface{}{
			{"Asset Tag", "User Name", "Department", "Location"},
			{"C789", "Meena", "", "Trichy"},
		},
	}})

	records, err := s.FindAssetByTag(context.Background(), "C789")
	require.NoError(t, err)
	require.Len(t, records, 1)

	data, err := json.Marshal(records[0])
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal(data, &out))
	require.Contains(t, out, "department")
	require.Equal(t, "", out["department"])
}

func TestReassignAsset(t *testing.T) {
	s := newTestSynchronizer(t, []sheetFixture{assetSheet()})
	ctx := context.Background()

	updated, err := s.ReassignAsset(ctx, "A123", map[string]string{"department": "Engineering"})
	require.NoError(t, err)
	require.True(t, updated)

	records, err := s.FindAssetByTag(ctx, "A123")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Engineering", records[0].Department)

	// The other row is untouched.
	records, err = s.FindAssetByTag(ctx, "B456")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "HR", records[0].Department)
}

func TestReassignAssetNoMatch(t *testing.T) {
	s := newTestSynchronizer(t, []sheetFixture{assetSheet()})

	updated, err := s.ReassignAsset(context.Background(), "ZZZ",
		map[string]string{"department": "Engineering"})
	require.NoError(t, err)
	require.False(t, updated)
}

func TestReassignAssetValidation(t *testing.T) {
	s := newTestSynchronizer(t, []sheetFixture{assetSheet()})
	ctx := context.Background()

	_, err := s.ReassignAsset(ctx, "A123", map[string]string{})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.ReassignAsset(ctx, "A123", map[string]string{"asset_tag": "A999"})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestReassignFirstTableWins(t *testing.T) {
	spares := sheetFixture{
		name: "Spares",
		rows: [][]interface{}{
			{"Asset Tag", "Department"},
			{"A123", "Storage"},
		},
	}
	s := newTestSynchronizer(t, []sheetFixture{assetSheet(), spares})
	ctx := context.Background()

	updated, err := s.ReassignAsset(ctx, "A123", map[string]string{"department": "Engineering"})
	require.NoError(t, err)
	require.True(t, updated)

	records, err := s.FindAssetByTag(ctx, "A123")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Engineering", records[0].Department)
	require.Equal(t, "Storage", records[1].Department)
}

func TestExportRoundTrip(t *testing.T) {
	s := newTestSynchronizer(t, []sheetFixture{assetSheet()})
	ctx := context.Background()

	_, err := s.ReassignAsset(ctx, "A123", map[string]string{"department": "Engineering"})
	require.NoError(t, err)

	result, err := s.ExportDatabase(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, result.BackupPath)

	f, err := excelize.OpenFile(s.excelPath)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"assets"}, f.GetSheetList())
	rows, err := f.GetRows("assets")
	require.NoError(t, err)
	require.Equal(t, []string{"asset_tag", "user_name", "department", "location"}, rows[0])
	require.Equal(t, []string{"A123", "Priya", "Engineering", "Chennai"}, rows[1])

	// Re-importing the exported spreadsheet yields the same shape.
	_, err = s.ImportSpreadsheet(ctx)
	require.NoError(t, err)

	records, err := s.FindAssetByTag(ctx, "A123")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Engineering", records[0].Department)
}

func TestExportUnwritableSpreadsheet(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}

	s := newTestSynchronizer(t, []sheetFixture{assetSheet()})
	require.NoError(t, os.Chmod(s.excelPath, 0o444))
	t.Cleanup(func() { os.Chmod(s.excelPath, 0o644) })

	_, err := s.ExportDatabase(context.Background())
	require.ErrorIs(t, err, apperr.ErrPermissionDenied)
}

func TestExportCreatesPlaceholderWhenSpreadsheetMissing(t *testing.T) {
	s := newTestSynchronizer(t, []sheetFixture{assetSheet()})
	require.NoError(t, os.Remove(s.excelPath))

	result, err := s.ExportDatabase(context.Background())
	require.NoError(t, err)

	// Nothing to back up, but the export target now exists.
	require.NotEmpty(t, result.BackupPath) // placeholder is created before the backup runs
	_, statErr := os.Stat(s.excelPath)
	require.NoError(t, statErr)
}

func TestImportErrorKind(t *testing.T) {
	s := newTestSynchronizer(t, []sheetFixture{assetSheet()})
	require.NoError(t, os.Remove(s.excelPath))

	_, err := s.ImportSpreadsheet(context.Background())
	require.True(t, errors.Is(err, apperr.ErrNotFound))
}
