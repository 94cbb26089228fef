// Package excel keeps the assets database synchronized with a spreadsheet
// file: sheets become tables on import, tables become sheets on export, and
// keyed lookup/reassignment runs against whichever tables carry an
// asset_tag column.
package excel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite" // cgo-free SQLite driver

	"github.com/anbuselvan/assetsync/internal/apperr"
	"github.com/anbuselvan/assetsync/internal/models"
	"github.com/anbuselvan/assetsync/internal/utils"
)

// Tables discovered for asset lookup are those whose creation SQL mentions
// the asset_tag column. Internal sqlite_* tables are skipped.
const assetTablesQuery = `
	SELECT name FROM sqlite_master
	WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND sql LIKE '%asset_tag%'
`

const allTablesQuery = `
	SELECT name FROM sqlite_master
	WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
`

// Result reports the outcome of one synchronization direction. BackupPath
// is empty when there was no prior file to back up.
type Result struct {
	Message    string `json:"message"`
	BackupPath string `json:"backup_path"`
}

// Synchronizer moves data between one spreadsheet file and one SQLite
// database file, taking a timestamped backup before each destructive
// direction. Every operation opens its own scoped connection: an import
// replaces the database file, so no handle may outlive a call.
type Synchronizer struct {
	excelPath string
	dbPath    string
	backupDir string
	logger    *utils.Logger
}

// NewSynchronizer resolves the three paths, creates the database and backup
// directories, and eagerly performs the initial spreadsheet import.
func NewSynchronizer(excelPath, dbPath, backupDir string) (*Synchronizer, error) {
	var err error
	if excelPath, err = filepath.Abs(excelPath); err != nil {
		return nil, err
	}
	if dbPath, err = filepath.Abs(dbPath); err != nil {
		return nil, err
	}
	if backupDir, err = filepath.Abs(backupDir); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, err
	}

	s := &Synchronizer{
		excelPath: excelPath,
		dbPath:    dbPath,
		backupDir: backupDir,
		logger:    utils.NewLogger("sync"),
	}

	if _, err := s.ImportSpreadsheet(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// ImportSpreadsheet replaces the database contents with the spreadsheet's:
// one table per sheet, drop-then-create, all columns TEXT. The current
// database file is backed up first.
func (s *Synchronizer) ImportSpreadsheet(ctx context.Context) (*Result, error) {
	if _, err := os.Stat(s.excelPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: spreadsheet file %s", apperr.ErrNotFound, s.excelPath)
		}
		return nil, err
	}

	backupPath, err := s.createBackup(s.dbPath)
	if err != nil {
		s.logger.Error("spreadsheet import failed: %v", err)
		return nil, fmt.Errorf("spreadsheet import failed: %w", err)
	}

	f, err := excelize.OpenFile(s.excelPath)
	if err != nil {
		s.logger.Error("spreadsheet import failed: %v", err)
		return nil, fmt.Errorf("spreadsheet import failed: %w", err)
	}
	defer f.Close()

	db, err := s.openDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet import failed: %w", err)
	}
	defer db.Close()

	for _, sheet := range f.GetSheetList() {
		if err := s.importSheet(ctx, db, f, sheet); err != nil {
			s.logger.Error("failed to import sheet %s: %v", sheet, err)
			return nil, fmt.Errorf("spreadsheet import failed: %w", err)
		}
		s.logger.Info("imported sheet %s", sheet)
	}

	return &Result{
		Message:    "Spreadsheet data imported with standardized column names",
		BackupPath: backupPath,
	}, nil
}

func (s *Synchronizer) importSheet(ctx context.Context, db *sqlx.DB, f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil // sheet has no header row, nothing to import
	}

	columns := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		columns[i] = normalizeColumn(header, i)
	}

	table := tableNameForSheet(sheet)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	columnDefs := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		columnDefs[i] = fmt.Sprintf("%q TEXT", col)
		placeholders[i] = "?"
	}

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", table)); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		fmt.Sprintf("CREATE TABLE %q (%s)", table, strings.Join(columnDefs, ", "))); err != nil {
		return err
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = fmt.Sprintf("%q", col)
	}
	insert := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	for _, row := range rows[1:] {
		args := make([]interface{}, len(columns))
		for i := range columns {
			// Trailing empty cells are truncated by the reader; pad them.
			if i < len(row) {
				args[i] = row[i]
			} else {
				args[i] = ""
			}
		}
		if _, err = tx.ExecContext(ctx, insert, args...); err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}

// ExportDatabase writes every table back to the spreadsheet, one sheet per
// table in catalog order (implementation-defined, not sorted). The current
// spreadsheet file is backed up first.
func (s *Synchronizer) ExportDatabase(ctx context.Context) (*Result, error) {
	if err := s.ensureWritable(s.excelPath); err != nil {
		s.logger.Error("spreadsheet export failed: %v", err)
		return nil, err
	}

	backupPath, err := s.createBackup(s.excelPath)
	if err != nil {
		s.logger.Error("spreadsheet export failed: %v", err)
		return nil, fmt.Errorf("spreadsheet export failed: %w", err)
	}

	db, err := s.openDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet export failed: %w", err)
	}
	defer db.Close()

	var tables []string
	if err := db.SelectContext(ctx, &tables, allTablesQuery); err != nil {
		return nil, fmt.Errorf("spreadsheet export failed: %w", err)
	}

	out := excelize.NewFile()
	defer out.Close()

	for i, table := range tables {
		if i == 0 {
			if err := out.SetSheetName(out.GetSheetName(0), table); err != nil {
				return nil, fmt.Errorf("spreadsheet export failed: %w", err)
			}
		} else if _, err := out.NewSheet(table); err != nil {
			return nil, fmt.Errorf("spreadsheet export failed: %w", err)
		}

		if err := s.exportTable(ctx, db, out, table); err != nil {
			s.logger.Error("failed to export table %s: %v", table, err)
			return nil, fmt.Errorf("spreadsheet export failed: %w", err)
		}
		s.logger.Info("exported table %s", table)
	}

	if err := out.SaveAs(s.excelPath); err != nil {
		return nil, fmt.Errorf("spreadsheet export failed: %w", err)
	}

	return &Result{
		Message:    "Database exported to spreadsheet",
		BackupPath: backupPath,
	}, nil
}

func (s *Synchronizer) exportTable(ctx context.Context, db *sqlx.DB, out *excelize.File, table string) error {
	rows, err := db.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %q", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := out.SetSheetRow(table, "A1", &header); err != nil {
		return err
	}

	rowNum := 2
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = valueToString(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		if err := out.SetSheetRow(table, cell, &cells); err != nil {
			return err
		}
		rowNum++
	}

	return rows.Err()
}

// FindAssetByTag scans every table that carries an asset_tag column for an
// exact match, taking at most one row per table. A tag with no matches
// yields an empty slice, not an error.
func (s *Synchronizer) FindAssetByTag(ctx context.Context, tag string) ([]models.AssetRecord, error) {
	db, err := s.openDB(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var tables []string
	if err := db.SelectContext(ctx, &tables, assetTablesQuery); err != nil {
		return nil, err
	}

	records := make([]models.AssetRecord, 0, len(tables))
	for _, table := range tables {
		row := db.QueryRowxContext(ctx,
			fmt.Sprintf("SELECT * FROM %q WHERE asset_tag = ? LIMIT 1", table), tag)

		data := make(map[string]interface{})
		if err := row.MapScan(data); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}

		record := models.AssetRecord{SourceTable: table}
		for column, value := range data {
			record.SetColumn(column, valueToString(value))
		}
		records = append(records, record)
	}

	return records, nil
}

// ReassignAsset applies the updates to the matching row(s) in the first
// table, in catalog order, where the update takes effect; later tables are
// left untouched. Discovery and update share one transaction.
func (s *Synchronizer) ReassignAsset(ctx context.Context, tag string, updates map[string]string) (bool, error) {
	if len(updates) == 0 {
		return false, fmt.Errorf("%w: no fields to update", apperr.ErrValidation)
	}
	if _, ok := updates[models.ColumnAssetTag]; ok {
		return false, fmt.Errorf("%w: asset_tag cannot be reassigned", apperr.ErrValidation)
	}

	db, err := s.openDB(ctx)
	if err != nil {
		return false, err
	}
	defer db.Close()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	var tables []string
	if err = tx.SelectContext(ctx, &tables, assetTablesQuery); err != nil {
		return false, err
	}

	// Deterministic SET ordering for a map-typed update set.
	columns := make([]string, 0, len(updates))
	for col := range updates {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	setClauses := make([]string, len(columns))
	args := make([]interface{}, 0, len(columns)+1)
	for i, col := range columns {
		setClauses[i] = fmt.Sprintf("%q = ?", col)
		args = append(args, updates[col])
	}
	args = append(args, tag)

	updated := false
	for _, table := range tables {
		query := fmt.Sprintf("UPDATE %q SET %s WHERE asset_tag = ?",
			table, strings.Join(setClauses, ", "))

		var result sql.Result
		if result, err = tx.ExecContext(ctx, query, args...); err != nil {
			return false, err
		}

		var affected int64
		if affected, err = result.RowsAffected(); err != nil {
			return false, err
		}

		if affected > 0 {
			updated = true
			break
		}
	}

	err = tx.Commit()
	return updated, err
}

// openDB opens a scoped connection to the assets database; the caller
// closes it on every exit path.
func (s *Synchronizer) openDB(ctx context.Context) (*sqlx.DB, error) {
	return sqlx.ConnectContext(ctx, "sqlite", s.dbPath)
}

// createBackup copies the file into the backup directory with a timestamp
// suffix, returning the backup's path or "" when the file does not exist.
func (s *Synchronizer) createBackup(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	stamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(s.backupDir, fmt.Sprintf("%s.bak_%s", filepath.Base(path), stamp))

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	s.logger.Info("created backup at %s", backupPath)
	return backupPath, nil
}

// ensureWritable creates an empty placeholder when the file is absent and
// fails when it exists but cannot be written.
func (s *Synchronizer) ensureWritable(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: no write permission for %s", apperr.ErrPermissionDenied, path)
		}
		return err
	}
	return f.Close()
}

func valueToString(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []byte:
		return string(value)
	default:
		return fmt.Sprint(value)
	}
}
