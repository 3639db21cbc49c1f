package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"datrascli/internal/table"
)

// CSVWriter exports tables as CSV files
type CSVWriter struct {
	baseDir string
}

// NewCSVWriter creates a CSV writer rooted at the given directory
func NewCSVWriter(baseDir string) *CSVWriter {
	return &CSVWriter{baseDir: baseDir}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	// BOMPrefix adds a UTF-8 BOM so Excel recognizes the encoding
	BOMPrefix bool
}

// WriteTable writes a table to a CSV file under the writer's base
// directory, creating intermediate directories as needed
func (w *CSVWriter) WriteTable(filename string, tbl *table.Table, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(filename)

	slog.Info("writing CSV file",
		slog.String("path", fullPath),
		slog.Int("rows", tbl.Len()))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return "", fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if cols := tbl.Columns(); len(cols) > 0 {
		if err := writer.Write(cols); err != nil {
			return "", fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range tbl.Records() {
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return fullPath, nil
}

func (w *CSVWriter) resolvePath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(w.baseDir, filename)
}
