package http

import (
	"context"

	"datrascli/internal/services"
	"datrascli/internal/table"
)

// SurveyServiceInterface defines the survey catalogue operations the
// handlers need. Allows mocking in tests.
type SurveyServiceInterface interface {
	Surveys(ctx context.Context) (*table.Table, error)
	Years(ctx context.Context, survey string) (*table.Table, error)
	Quarters(ctx context.Context, survey string, year int) (*table.Table, error)
	InsertDates(ctx context.Context, req services.InsertDateRequest) (*services.FetchSummary, error)
}

// DatasetServiceInterface defines the dataset download operations
type DatasetServiceInterface interface {
	FetchDataset(ctx context.Context, typ services.DatasetType, req services.FetchRequest) (*services.FetchSummary, error)
	FetchIndices(ctx context.Context, req services.IndicesRequest) (*services.FetchSummary, error)
	FetchLengthAgeSummary(ctx context.Context, req services.LengthAgeRequest) (*services.FetchSummary, error)
	FetchLitter(ctx context.Context, req services.LitterRequest) (*services.FetchSummary, error)
	FetchLitterByUpdateDate(ctx context.Context, dateOfCalculation string, export *services.ExportRequest) (*services.FetchSummary, error)
	ListDatesOfCalculation(ctx context.Context) (*table.Table, error)
}

// ExportServiceInterface defines the export listing operations
type ExportServiceInterface interface {
	ListExports(ctx context.Context) ([]services.ExportFile, error)
	ResolveExport(ctx context.Context, filename string) (string, error)
}
