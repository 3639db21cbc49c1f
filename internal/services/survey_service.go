package services

import (
	"context"
	"log/slog"

	"datrascli/internal/datras"
	"datrascli/internal/table"
)

// SurveyService exposes the DATRAS survey catalogue lookups
type SurveyService struct {
	datras *datras.Client
	logger *slog.Logger
}

// NewSurveyService creates a new survey service
func NewSurveyService(dc *datras.Client, logger *slog.Logger) *SurveyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SurveyService{datras: dc, logger: logger}
}

// Surveys returns the full survey acronym list
func (s *SurveyService) Surveys(ctx context.Context) (*table.Table, error) {
	return s.datras.GetSurveyList(ctx)
}

// Years returns the years with data for one survey
func (s *SurveyService) Years(ctx context.Context, survey string) (*table.Table, error) {
	result, err := s.datras.GetSurveyYearList(ctx, []string{survey})
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// Quarters returns the quarters with data for one survey and year
func (s *SurveyService) Quarters(ctx context.Context, survey string, year int) (*table.Table, error) {
	result, err := s.datras.GetSurveyYearQuarterList(ctx, []string{survey}, []int{year}, datras.FetchOptions{IgnoreLimit: true})
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// InsertDates returns upload dates for the requested survey, year,
// quarter, ship and country combinations
func (s *SurveyService) InsertDates(ctx context.Context, req InsertDateRequest) (*FetchSummary, error) {
	result, err := s.datras.GetSurveyInsertDate(ctx, req.Surveys, req.Years, req.Quarters, req.Ships, req.Countries, datras.FetchOptions{IgnoreLimit: req.IgnoreLimit})
	if err != nil {
		return nil, err
	}
	return &FetchSummary{
		Dataset:    "insert-dates",
		Requested:  result.Requested,
		Downloaded: result.Downloaded,
		Rows:       result.Data.Len(),
		Data:       result.Data,
	}, nil
}
