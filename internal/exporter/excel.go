package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"datrascli/internal/table"
)

// ExcelWriter exports tables as XLSX workbooks
type ExcelWriter struct {
	baseDir string
}

// NewExcelWriter creates an Excel writer rooted at the given directory
func NewExcelWriter(baseDir string) *ExcelWriter {
	return &ExcelWriter{baseDir: baseDir}
}

// WriteTable writes a table to an XLSX workbook with a single sheet named
// after the dataset type
func (w *ExcelWriter) WriteTable(filename, sheetName string, tbl *table.Table) (string, error) {
	fullPath := w.resolvePath(filename)

	slog.Info("writing Excel file",
		slog.String("path", fullPath),
		slog.String("sheet", sheetName),
		slog.Int("rows", tbl.Len()))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return "", fmt.Errorf("failed to name sheet: %w", err)
	}

	// Stream rows: header first, then records
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return "", fmt.Errorf("failed to create stream writer: %w", err)
	}

	if cols := tbl.Columns(); len(cols) > 0 {
		header := make([]interface{}, len(cols))
		for i, col := range cols {
			header[i] = col
		}
		cell, _ := excelize.CoordinatesToCellName(1, 1)
		if err := sw.SetRow(cell, header); err != nil {
			return "", fmt.Errorf("failed to write header row: %w", err)
		}
	}

	for i, record := range tbl.Records() {
		row := make([]interface{}, len(record))
		for j, val := range record {
			row[j] = val
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush stream writer: %w", err)
	}

	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return fullPath, nil
}

func (w *ExcelWriter) resolvePath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(w.baseDir, filename)
}
