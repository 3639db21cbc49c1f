package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "datrascli/internal/errors"
	"datrascli/internal/middleware"
	"datrascli/internal/services"
)

// DatasetHandler handles dataset download requests with RFC 7807 compliance
type DatasetHandler struct {
	service      DatasetServiceInterface
	validation   *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DatasetServiceInterface, validation *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		validation:   validation,
		logger:       logger.With(slog.String("component", "dataset_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/{type}", h.FetchDataset)

	return r
}

// IndicesRoutes returns the abundance indices routes
func (h *DatasetHandler) IndicesRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.FetchIndices)

	return r
}

// LengthAgeRoutes returns the length-age summary routes
func (h *DatasetHandler) LengthAgeRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.FetchLengthAgeSummary)

	return r
}

// LitterRoutes returns the litter assessment routes
func (h *DatasetHandler) LitterRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.FetchLitter)
	r.Post("/by-date", h.FetchLitterByDate)
	r.Get("/dates", h.ListDatesOfCalculation)

	return r
}

// ExportSpec is the optional export block on download request bodies
type ExportSpec struct {
	Format   string `json:"format" validate:"omitempty,oneof=csv xlsx"`
	Filename string `json:"filename" validate:"omitempty,filename"`
}

func (e *ExportSpec) toService() *services.ExportRequest {
	if e == nil {
		return nil
	}
	return &services.ExportRequest{Format: e.Format, Filename: e.Filename}
}

// FetchDatasetRequest is the POST /api/datasets/{type} body
type FetchDatasetRequest struct {
	Surveys  []string `json:"surveys" validate:"required,min=1,dive,survey"`
	Years    []int    `json:"years" validate:"required,min=1,dive,gte=1965,lte=2100"`
	Quarters []int    `json:"quarters" validate:"required,min=1,dive,gte=1,lte=4"`

	TranslateSpecies bool        `json:"translate_species"`
	IgnoreLimit      bool        `json:"ignore_limit"`
	Export           *ExportSpec `json:"export"`
}

// FetchDataset handles POST /api/datasets/{type}
func (h *DatasetHandler) FetchDataset(w http.ResponseWriter, r *http.Request) {
	datasetType := services.DatasetType(chi.URLParam(r, "type"))
	switch datasetType {
	case services.DatasetHH, services.DatasetHL, services.DatasetCA:
	default:
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("type", "Dataset type must be one of: hh, hl, ca"))
		return
	}

	var req FetchDatasetRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset download requested",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("type", string(datasetType)),
		slog.Int("surveys", len(req.Surveys)),
		slog.Int("years", len(req.Years)),
		slog.Int("quarters", len(req.Quarters)),
		slog.Bool("ignore_limit", req.IgnoreLimit),
	)

	summary, err := h.service.FetchDataset(r.Context(), datasetType, services.FetchRequest{
		Surveys:          req.Surveys,
		Years:            req.Years,
		Quarters:         req.Quarters,
		TranslateSpecies: req.TranslateSpecies,
		IgnoreLimit:      req.IgnoreLimit,
		Export:           req.Export.toService(),
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "dataset download failed",
			slog.String("type", string(datasetType)),
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, mapFetchError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// FetchIndicesRequest is the POST /api/indices body
type FetchIndicesRequest struct {
	Surveys  []string `json:"surveys" validate:"required,min=1,dive,survey"`
	Years    []int    `json:"years" validate:"required,min=1,dive,gte=1965,lte=2100"`
	Quarters []int    `json:"quarters" validate:"required,min=1,dive,gte=1,lte=4"`
	Species  []int    `json:"species" validate:"required,min=1,dive,gt=0"`

	IgnoreLimit bool        `json:"ignore_limit"`
	Export      *ExportSpec `json:"export"`
}

// FetchIndices handles POST /api/indices
func (h *DatasetHandler) FetchIndices(w http.ResponseWriter, r *http.Request) {
	var req FetchIndicesRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.FetchIndices(r.Context(), services.IndicesRequest{
		Surveys:     req.Surveys,
		Years:       req.Years,
		Quarters:    req.Quarters,
		Species:     req.Species,
		IgnoreLimit: req.IgnoreLimit,
		Export:      req.Export.toService(),
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, mapFetchError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// FetchLengthAgeRequest is the POST /api/length-age body
type FetchLengthAgeRequest struct {
	Countries []string `json:"countries" validate:"required,min=1,dive,len=3,alpha"`
	Years     []int    `json:"years" validate:"required,min=1,dive,gte=1965,lte=2100"`

	IgnoreLimit bool        `json:"ignore_limit"`
	Export      *ExportSpec `json:"export"`
}

// FetchLengthAgeSummary handles POST /api/length-age
func (h *DatasetHandler) FetchLengthAgeSummary(w http.ResponseWriter, r *http.Request) {
	var req FetchLengthAgeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.FetchLengthAgeSummary(r.Context(), services.LengthAgeRequest{
		Countries:   req.Countries,
		Years:       req.Years,
		IgnoreLimit: req.IgnoreLimit,
		Export:      req.Export.toService(),
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, mapFetchError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// FetchLitterRequest is the POST /api/litter body
type FetchLitterRequest struct {
	Surveys  []string `json:"surveys" validate:"required,min=1,dive,survey"`
	Years    []int    `json:"years" validate:"required,min=1,dive,gte=1965,lte=2100"`
	Quarters []int    `json:"quarters" validate:"required,min=1,dive,gte=1,lte=4"`

	IgnoreLimit bool        `json:"ignore_limit"`
	Export      *ExportSpec `json:"export"`
}

// FetchLitter handles POST /api/litter
func (h *DatasetHandler) FetchLitter(w http.ResponseWriter, r *http.Request) {
	var req FetchLitterRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.FetchLitter(r.Context(), services.LitterRequest{
		Surveys:     req.Surveys,
		Years:       req.Years,
		Quarters:    req.Quarters,
		IgnoreLimit: req.IgnoreLimit,
		Export:      req.Export.toService(),
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, mapFetchError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// FetchLitterByDateRequest is the POST /api/litter/by-date body
type FetchLitterByDateRequest struct {
	DateOfCalculation string      `json:"date_of_calculation" validate:"required,iso8601"`
	Export            *ExportSpec `json:"export"`
}

// FetchLitterByDate handles POST /api/litter/by-date
func (h *DatasetHandler) FetchLitterByDate(w http.ResponseWriter, r *http.Request) {
	var req FetchLitterByDateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.FetchLitterByUpdateDate(r.Context(), req.DateOfCalculation, req.Export.toService())
	if err != nil {
		h.errorHandler.HandleError(w, r, mapFetchError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// ListDatesOfCalculation handles GET /api/litter/dates
func (h *DatasetHandler) ListDatesOfCalculation(w http.ResponseWriter, r *http.Request) {
	dates, err := h.service.ListDatesOfCalculation(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, mapFetchError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   dates,
		"count":  dates.Len(),
	})
}
