package http

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "datrascli/internal/errors"
)

// ExportHandler lists and serves exported dataset files
type ExportHandler struct {
	service      ExportServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExportHandler creates a new export handler
func NewExportHandler(service ExportServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	return &ExportHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "export_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the export routes
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListExports)
	// Nested paths are allowed so exports organized in subdirectories
	// stay reachable
	r.Get("/{filename:.*}", h.DownloadExport)

	return r
}

// ListExports handles GET /api/exports
func (h *ExportHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	files, err := h.service.ListExports(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, mapFetchError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   files,
		"count":  len(files),
	})
}

// DownloadExport handles GET /api/exports/{filename}
func (h *ExportHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	path, err := h.service.ResolveExport(r.Context(), filename)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapFetchError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "serving export",
		slog.String("filename", filename),
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		w.Header().Set("Content-Type", "text/csv")
	case ".xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(path)+"\"")

	http.ServeFile(w, r, path)
}
