package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"datrascli/internal/config"
)

// ExportFile describes one previously exported file
type ExportFile struct {
	Name     string    `json:"name"`
	Format   string    `json:"format"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// ExportService lists and resolves files under the exports directory
type ExportService struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewExportService creates a new export service
func NewExportService(paths *config.Paths, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{paths: paths, logger: logger}
}

// ListExports returns the exported files, newest first
func (s *ExportService) ListExports(ctx context.Context) ([]ExportFile, error) {
	exportsDir := s.paths.ExportsDir

	s.logger.DebugContext(ctx, "scanning exports directory",
		slog.String("exports_dir", exportsDir))

	var files []ExportFile
	err := filepath.Walk(exportsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Log but continue with other files
			s.logger.DebugContext(ctx, "error accessing path",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}
		if info.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(info.Name()))
		if ext != ".csv" && ext != ".xlsx" {
			return nil
		}

		relPath, err := filepath.Rel(exportsDir, path)
		if err != nil {
			return nil
		}
		relPath = strings.ReplaceAll(relPath, "\\", "/")

		files = append(files, ExportFile{
			Name:     relPath,
			Format:   strings.TrimPrefix(ext, "."),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
		return nil
	})
	if os.IsNotExist(err) {
		return []ExportFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan exports directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// ResolveExport validates a filename and returns its absolute path.
// Only files inside the exports directory can be resolved.
func (s *ExportService) ResolveExport(ctx context.Context, filename string) (string, error) {
	if filename == "" || strings.Contains(filename, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".csv" && ext != ".xlsx" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	fullPath := filepath.Join(s.paths.ExportsDir, filepath.FromSlash(filename))
	rel, err := filepath.Rel(s.paths.ExportsDir, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	info, err := os.Stat(fullPath)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %q", ErrExportNotFound, filename)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat export: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %q", ErrExportNotFound, filename)
	}
	return fullPath, nil
}
