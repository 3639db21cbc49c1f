package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datrascli/internal/config"
)

func newTestExportService(t *testing.T) (*ExportService, *config.Paths) {
	t.Helper()
	paths := config.GetPathsWithBase(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())
	return NewExportService(paths, slog.Default()), paths
}

func writeExport(t *testing.T, paths *config.Paths, name, content string) string {
	t.Helper()
	path := filepath.Join(paths.ExportsDir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestListExports(t *testing.T) {
	svc, paths := newTestExportService(t)

	writeExport(t, paths, "old.csv", "a,b\n")
	older := filepath.Join(paths.ExportsDir, "old.csv")
	require.NoError(t, os.Chtimes(older, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))
	writeExport(t, paths, "new.xlsx", "xlsx-bytes")
	writeExport(t, paths, "notes.txt", "ignored")

	files, err := svc.ListExports(context.Background())
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, "new.xlsx", files[0].Name)
	assert.Equal(t, "xlsx", files[0].Format)
	assert.Equal(t, "old.csv", files[1].Name)
	assert.Equal(t, "csv", files[1].Format)
}

func TestListExports_EmptyDirectory(t *testing.T) {
	svc, _ := newTestExportService(t)

	files, err := svc.ListExports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestListExports_NestedDirectories(t *testing.T) {
	svc, paths := newTestExportService(t)
	writeExport(t, paths, filepath.Join("2022", "hh.csv"), "a\n")

	files, err := svc.ListExports(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "2022/hh.csv", files[0].Name)
}

func TestResolveExport(t *testing.T) {
	svc, paths := newTestExportService(t)
	path := writeExport(t, paths, "hh.csv", "a\n")

	resolved, err := svc.ResolveExport(context.Background(), "hh.csv")
	require.NoError(t, err)
	assert.Equal(t, path, resolved)
}

func TestResolveExport_NotFound(t *testing.T) {
	svc, _ := newTestExportService(t)

	_, err := svc.ResolveExport(context.Background(), "missing.csv")
	assert.ErrorIs(t, err, ErrExportNotFound)
}

func TestResolveExport_RejectsTraversal(t *testing.T) {
	svc, _ := newTestExportService(t)

	for _, name := range []string{"../secret.csv", "a/../../b.csv", ""} {
		_, err := svc.ResolveExport(context.Background(), name)
		assert.ErrorIs(t, err, ErrInvalidFilename, "filename %q", name)
	}
}

func TestResolveExport_RejectsWrongExtension(t *testing.T) {
	svc, paths := newTestExportService(t)
	writeExport(t, paths, "notes.txt", "x")

	_, err := svc.ResolveExport(context.Background(), "notes.txt")
	assert.ErrorIs(t, err, ErrInvalidFilename)
}
