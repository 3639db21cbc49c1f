package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for file paths in the application.
type Paths struct {
	ExecutableDir string
	DataDir       string
	ExportsDir    string
	LogsDir       string
}

// GetPaths returns the application paths relative to the executable location.
// All paths are relative to the executable directory, never the current
// working directory, so binaries behave the same regardless of where they
// are launched from.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	exeDir := filepath.Dir(exe)
	return GetPathsWithBase(exeDir), nil
}

// GetPathsWithBase returns paths rooted at an explicit base directory.
// Used by tests and by callers that override the data location.
func GetPathsWithBase(baseDir string) *Paths {
	return &Paths{
		ExecutableDir: baseDir,
		DataDir:       filepath.Join(baseDir, "data"),
		ExportsDir:    filepath.Join(baseDir, "data", "exports"),
		LogsDir:       filepath.Join(baseDir, "logs"),
	}
}

// EnsureDirectories creates all required directories if they do not exist
func (p *Paths) EnsureDirectories() error {
	dirs := []string{p.DataDir, p.ExportsDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetLogPath returns the full path for a log file in the logs directory
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetExportPath returns the full path for an exported dataset file
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// LogPathResolution logs all resolved paths at startup for debugging
func (p *Paths) LogPathResolution() {
	slog.Info("Resolved application paths",
		slog.String("executable_dir", p.ExecutableDir),
		slog.String("data_dir", p.DataDir),
		slog.String("exports_dir", p.ExportsDir),
		slog.String("logs_dir", p.LogsDir))
}

// FileExists reports whether the given path exists and is a regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
