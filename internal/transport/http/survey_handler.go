package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "datrascli/internal/errors"
	"datrascli/internal/middleware"
	"datrascli/internal/services"
)

// SurveyHandler handles survey catalogue requests with RFC 7807 compliance
type SurveyHandler struct {
	service      SurveyServiceInterface
	validation   *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(service SurveyServiceInterface, validation *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SurveyHandler {
	return &SurveyHandler{
		service:      service,
		validation:   validation,
		logger:       logger.With(slog.String("component", "survey_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the survey routes
func (h *SurveyHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListSurveys)
	r.Post("/insert-dates", h.InsertDates)

	r.Route("/{survey}", func(r chi.Router) {
		r.Use(h.SurveyCtx)
		r.Get("/years", h.ListYears)
		r.Get("/years/{year}/quarters", h.ListQuarters)
	})

	return r
}

// SurveyCtx validates the survey URL parameter
func (h *SurveyHandler) SurveyCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		survey := chi.URLParam(r, "survey")
		if survey == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("survey", "Survey acronym is required"))
			return
		}
		if len(survey) < 2 || len(survey) > 20 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("survey", "Invalid survey acronym format"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListSurveys handles GET /api/surveys
func (h *SurveyHandler) ListSurveys(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "listing surveys",
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	surveys, err := h.service.Surveys(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, mapFetchError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   surveys,
		"count":  surveys.Len(),
	})
}

// ListYears handles GET /api/surveys/{survey}/years
func (h *SurveyHandler) ListYears(w http.ResponseWriter, r *http.Request) {
	survey := chi.URLParam(r, "survey")

	years, err := h.service.Years(r.Context(), survey)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list years",
			slog.String("survey", survey),
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, mapFetchError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"survey": survey,
		"data":   years,
		"count":  years.Len(),
	})
}

// ListQuarters handles GET /api/surveys/{survey}/years/{year}/quarters
func (h *SurveyHandler) ListQuarters(w http.ResponseWriter, r *http.Request) {
	survey := chi.URLParam(r, "survey")

	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("year", "Year must be an integer"))
		return
	}

	quarters, err := h.service.Quarters(r.Context(), survey, year)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list quarters",
			slog.String("survey", survey),
			slog.Int("year", year),
			slog.String("error", err.Error()),
		)
		h.errorHandler.HandleError(w, r, mapFetchError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"survey": survey,
		"year":   year,
		"data":   quarters,
		"count":  quarters.Len(),
	})
}

// InsertDateRequest is the POST /api/surveys/insert-dates body
type InsertDateRequest struct {
	Surveys   []string `json:"surveys" validate:"required,min=1,dive,survey"`
	Years     []int    `json:"years" validate:"required,min=1,dive,gte=1965,lte=2100"`
	Quarters  []int    `json:"quarters" validate:"required,min=1,dive,gte=1,lte=4"`
	Ships     []string `json:"ships" validate:"required,min=1"`
	Countries []string `json:"countries" validate:"required,min=1"`

	IgnoreLimit bool `json:"ignore_limit"`
}

// InsertDates handles POST /api/surveys/insert-dates
func (h *SurveyHandler) InsertDates(w http.ResponseWriter, r *http.Request) {
	var req InsertDateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.InsertDates(r.Context(), services.InsertDateRequest{
		Surveys:     req.Surveys,
		Years:       req.Years,
		Quarters:    req.Quarters,
		Ships:       req.Ships,
		Countries:   req.Countries,
		IgnoreLimit: req.IgnoreLimit,
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
