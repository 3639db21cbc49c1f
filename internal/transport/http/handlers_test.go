package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datrascli/internal/datras"
	apierrors "datrascli/internal/errors"
	"datrascli/internal/middleware"
	"datrascli/internal/services"
	"datrascli/internal/soap"
	"datrascli/internal/table"
)

type mockSurveyService struct {
	surveys     func(ctx context.Context) (*table.Table, error)
	years       func(ctx context.Context, survey string) (*table.Table, error)
	quarters    func(ctx context.Context, survey string, year int) (*table.Table, error)
	insertDates func(ctx context.Context, req services.InsertDateRequest) (*services.FetchSummary, error)
}

func (m *mockSurveyService) Surveys(ctx context.Context) (*table.Table, error) {
	return m.surveys(ctx)
}

func (m *mockSurveyService) Years(ctx context.Context, survey string) (*table.Table, error) {
	return m.years(ctx, survey)
}

func (m *mockSurveyService) Quarters(ctx context.Context, survey string, year int) (*table.Table, error) {
	return m.quarters(ctx, survey, year)
}

func (m *mockSurveyService) InsertDates(ctx context.Context, req services.InsertDateRequest) (*services.FetchSummary, error) {
	return m.insertDates(ctx, req)
}

type mockDatasetService struct {
	fetchDataset func(ctx context.Context, typ services.DatasetType, req services.FetchRequest) (*services.FetchSummary, error)
	fetchIndices   func(ctx context.Context, req services.IndicesRequest) (*services.FetchSummary, error)
	fetchLengthAge func(ctx context.Context, req services.LengthAgeRequest) (*services.FetchSummary, error)
	fetchLitter    func(ctx context.Context, req services.LitterRequest) (*services.FetchSummary, error)
	litterByDate   func(ctx context.Context, date string, export *services.ExportRequest) (*services.FetchSummary, error)
	listDates      func(ctx context.Context) (*table.Table, error)
}

func (m *mockDatasetService) FetchDataset(ctx context.Context, typ services.DatasetType, req services.FetchRequest) (*services.FetchSummary, error) {
	return m.fetchDataset(ctx, typ, req)
}

func (m *mockDatasetService) FetchIndices(ctx context.Context, req services.IndicesRequest) (*services.FetchSummary, error) {
	return m.fetchIndices(ctx, req)
}

func (m *mockDatasetService) FetchLengthAgeSummary(ctx context.Context, req services.LengthAgeRequest) (*services.FetchSummary, error) {
	return m.fetchLengthAge(ctx, req)
}

func (m *mockDatasetService) FetchLitter(ctx context.Context, req services.LitterRequest) (*services.FetchSummary, error) {
	return m.fetchLitter(ctx, req)
}

func (m *mockDatasetService) FetchLitterByUpdateDate(ctx context.Context, date string, export *services.ExportRequest) (*services.FetchSummary, error) {
	return m.litterByDate(ctx, date, export)
}

func (m *mockDatasetService) ListDatesOfCalculation(ctx context.Context) (*table.Table, error) {
	return m.listDates(ctx)
}

type mockExportService struct {
	list    func(ctx context.Context) ([]services.ExportFile, error)
	resolve func(ctx context.Context, filename string) (string, error)
}

func (m *mockExportService) ListExports(ctx context.Context) ([]services.ExportFile, error) {
	return m.list(ctx)
}

func (m *mockExportService) ResolveExport(ctx context.Context, filename string) (string, error) {
	return m.resolve(ctx, filename)
}

func testDeps(t *testing.T) (*middleware.ValidationMiddleware, *apierrors.ErrorHandler) {
	t.Helper()
	errorHandler := apierrors.NewErrorHandler(slog.Default(), false)
	return middleware.NewValidationMiddleware(slog.Default(), errorHandler), errorHandler
}

func surveyTable(values ...string) *table.Table {
	tbl := table.New()
	for _, v := range values {
		tbl.Append(table.Row{"Survey": v})
	}
	return tbl
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestListSurveys(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockSurveyService{
		surveys: func(ctx context.Context) (*table.Table, error) {
			return surveyTable("NS-IBTS", "BITS"), nil
		},
	}
	handler := NewSurveyHandler(svc, validation, slog.Default(), errorHandler)

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(2), body["count"])

	data := body["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"Survey"}, data["columns"])
}

func TestListSurveys_UpstreamFault(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockSurveyService{
		surveys: func(ctx context.Context) (*table.Table, error) {
			return nil, &soap.FaultError{Operation: "getSurveyList", Code: "soap:Server", Reason: "boom"}
		},
	}
	handler := NewSurveyHandler(svc, validation, slog.Default(), errorHandler)

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "/errors/upstream/fault", body["type"])
}

func TestListSurveys_UpstreamUnreachable(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockSurveyService{
		surveys: func(ctx context.Context) (*table.Table, error) {
			wrapped := &url.Error{Op: "Post", URL: "https://datras.ices.dk", Err: errors.New("connection refused")}
			return nil, fmt.Errorf("getSurveyList request failed: %w", wrapped)
		},
	}
	handler := NewSurveyHandler(svc, validation, slog.Default(), errorHandler)

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "/errors/upstream/unavailable", body["type"])
}

func TestListYears_UpstreamFault(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockSurveyService{
		years: func(ctx context.Context, survey string) (*table.Table, error) {
			return nil, &soap.FaultError{Operation: "getSurveyYearList", Code: "soap:Server", Reason: "boom"}
		},
	}
	handler := NewSurveyHandler(svc, validation, slog.Default(), errorHandler)

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/NS-IBTS/years", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "/errors/upstream/fault", body["type"])
}

func TestListYears(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockSurveyService{
		years: func(ctx context.Context, survey string) (*table.Table, error) {
			assert.Equal(t, "NS-IBTS", survey)
			tbl := table.New()
			tbl.Append(table.Row{"Year": "2022"})
			return tbl, nil
		},
	}
	handler := NewSurveyHandler(svc, validation, slog.Default(), errorHandler)

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/NS-IBTS/years", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "NS-IBTS", body["survey"])
	assert.Equal(t, float64(1), body["count"])
}

func TestListQuarters_InvalidYear(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockSurveyService{
		quarters: func(ctx context.Context, survey string, year int) (*table.Table, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	handler := NewSurveyHandler(svc, validation, slog.Default(), errorHandler)

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/NS-IBTS/years/notayear/quarters", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestFetchDataset(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockDatasetService{
		fetchDataset: func(ctx context.Context, typ services.DatasetType, req services.FetchRequest) (*services.FetchSummary, error) {
			assert.Equal(t, services.DatasetHH, typ)
			assert.Equal(t, []string{"NS-IBTS"}, req.Surveys)
			assert.True(t, req.TranslateSpecies)
			tbl := table.New()
			tbl.Append(table.Row{"Survey": "NS-IBTS"})
			return &services.FetchSummary{Dataset: "hh", Requested: 1, Downloaded: 1, Rows: 1, Data: tbl}, nil
		},
	}
	handler := NewDatasetHandler(svc, validation, slog.Default(), errorHandler)

	reqBody := `{"surveys":["NS-IBTS"],"years":[2022],"quarters":[1],"translate_species":true}`
	req := httptest.NewRequest(http.MethodPost, "/hh", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "hh", data["dataset"])
	assert.Equal(t, float64(1), data["downloaded"])
}

func TestFetchDataset_UnknownType(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockDatasetService{}
	handler := NewDatasetHandler(svc, validation, slog.Default(), errorHandler)

	req := httptest.NewRequest(http.MethodPost, "/bogus", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "hh, hl, ca")
}

func TestFetchDataset_ValidationFailure(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockDatasetService{
		fetchDataset: func(ctx context.Context, typ services.DatasetType, req services.FetchRequest) (*services.FetchSummary, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	handler := NewDatasetHandler(svc, validation, slog.Default(), errorHandler)

	// Missing quarters, quarter out of range
	reqBody := `{"surveys":["NS-IBTS"],"years":[2022],"quarters":[7]}`
	req := httptest.NewRequest(http.MethodPost, "/hh", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestFetchDataset_DownloadLimit(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockDatasetService{
		fetchDataset: func(ctx context.Context, typ services.DatasetType, req services.FetchRequest) (*services.FetchSummary, error) {
			return nil, &datras.DownloadLimitError{Limit: 5, Requested: 8}
		},
	}
	handler := NewDatasetHandler(svc, validation, slog.Default(), errorHandler)

	reqBody := `{"surveys":["NS-IBTS","BITS"],"years":[2020,2021],"quarters":[1,2]}`
	req := httptest.NewRequest(http.MethodPost, "/hh", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "/errors/datasets/download-limit", body["type"])
}

func TestFetchDataset_UpstreamFault(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockDatasetService{
		fetchDataset: func(ctx context.Context, typ services.DatasetType, req services.FetchRequest) (*services.FetchSummary, error) {
			return nil, &soap.FaultError{Operation: "getHHdata", Code: "soap:Server", Reason: "boom"}
		},
	}
	handler := NewDatasetHandler(svc, validation, slog.Default(), errorHandler)

	reqBody := `{"surveys":["NS-IBTS"],"years":[2022],"quarters":[1]}`
	req := httptest.NewRequest(http.MethodPost, "/hh", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestFetchIndices(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockDatasetService{
		fetchIndices: func(ctx context.Context, req services.IndicesRequest) (*services.FetchSummary, error) {
			assert.Equal(t, []int{126436}, req.Species)
			tbl := table.New()
			return &services.FetchSummary{Dataset: "indices", Data: tbl}, nil
		},
	}
	handler := NewDatasetHandler(svc, validation, slog.Default(), errorHandler)

	reqBody := `{"surveys":["NS-IBTS"],"years":[2022],"quarters":[1],"species":[126436]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()
	handler.IndicesRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFetchLengthAgeSummary(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockDatasetService{
		fetchLengthAge: func(ctx context.Context, req services.LengthAgeRequest) (*services.FetchSummary, error) {
			assert.Equal(t, []string{"ESP"}, req.Countries)
			assert.Equal(t, []int{2010, 2011}, req.Years)
			return &services.FetchSummary{Dataset: "length-age", Data: table.New()}, nil
		},
	}
	handler := NewDatasetHandler(svc, validation, slog.Default(), errorHandler)

	reqBody := `{"countries":["ESP"],"years":[2010,2011]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()
	handler.LengthAgeRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFetchLengthAgeSummary_InvalidCountry(t *testing.T) {
	validation, errorHandler := testDeps(t)
	handler := NewDatasetHandler(&mockDatasetService{}, validation, slog.Default(), errorHandler)

	reqBody := `{"countries":["Espana"],"years":[2010]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()
	handler.LengthAgeRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFetchLitterByDate(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockDatasetService{
		litterByDate: func(ctx context.Context, date string, export *services.ExportRequest) (*services.FetchSummary, error) {
			assert.Equal(t, "2022-03-01", date)
			return &services.FetchSummary{Dataset: "litter", Data: table.New()}, nil
		},
	}
	handler := NewDatasetHandler(svc, validation, slog.Default(), errorHandler)

	reqBody := `{"date_of_calculation":"2022-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/by-date", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()
	handler.LitterRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFetchLitterByDate_CompactDate(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockDatasetService{
		litterByDate: func(ctx context.Context, date string, export *services.ExportRequest) (*services.FetchSummary, error) {
			assert.Equal(t, "20170204", date)
			return &services.FetchSummary{Dataset: "litter", Data: table.New()}, nil
		},
	}
	handler := NewDatasetHandler(svc, validation, slog.Default(), errorHandler)

	reqBody := `{"date_of_calculation":"20170204"}`
	req := httptest.NewRequest(http.MethodPost, "/by-date", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()
	handler.LitterRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFetchLitterByDate_InvalidDate(t *testing.T) {
	validation, errorHandler := testDeps(t)
	handler := NewDatasetHandler(&mockDatasetService{}, validation, slog.Default(), errorHandler)

	reqBody := `{"date_of_calculation":"04/02/2017"}`
	req := httptest.NewRequest(http.MethodPost, "/by-date", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()
	handler.LitterRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "/errors/validation", body["type"])
}

func TestListExports(t *testing.T) {
	_, errorHandler := testDeps(t)
	svc := &mockExportService{
		list: func(ctx context.Context) ([]services.ExportFile, error) {
			return []services.ExportFile{{Name: "hh.csv", Format: "csv", Size: 10}}, nil
		},
	}
	handler := NewExportHandler(svc, slog.Default(), errorHandler)

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])
}

func TestDownloadExport(t *testing.T) {
	_, errorHandler := testDeps(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "hh.csv")
	require.NoError(t, os.WriteFile(path, []byte("Survey\nNS-IBTS\n"), 0644))

	svc := &mockExportService{
		resolve: func(ctx context.Context, filename string) (string, error) {
			assert.Equal(t, "hh.csv", filename)
			return path, nil
		},
	}
	handler := NewExportHandler(svc, slog.Default(), errorHandler)

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hh.csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "hh.csv")
	assert.Contains(t, rec.Body.String(), "NS-IBTS")
}

func TestDownloadExport_NotFound(t *testing.T) {
	_, errorHandler := testDeps(t)
	svc := &mockExportService{
		resolve: func(ctx context.Context, filename string) (string, error) {
			return "", services.ErrExportNotFound
		},
	}
	handler := NewExportHandler(svc, slog.Default(), errorHandler)

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing.csv", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInsertDates(t *testing.T) {
	validation, errorHandler := testDeps(t)
	svc := &mockSurveyService{
		insertDates: func(ctx context.Context, req services.InsertDateRequest) (*services.FetchSummary, error) {
			assert.Equal(t, []string{"DANA"}, req.Ships)
			return &services.FetchSummary{Dataset: "insert-dates", Data: table.New()}, nil
		},
	}
	handler := NewSurveyHandler(svc, validation, slog.Default(), errorHandler)

	reqBody := `{"surveys":["NS-IBTS"],"years":[2022],"quarters":[1],"ships":["DANA"],"countries":["DK"]}`
	req := httptest.NewRequest(http.MethodPost, "/insert-dates", strings.NewReader(reqBody))
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouteMounting(t *testing.T) {
	validation, errorHandler := testDeps(t)
	surveySvc := &mockSurveyService{
		surveys: func(ctx context.Context) (*table.Table, error) { return table.New(), nil },
	}

	r := chi.NewRouter()
	r.Mount("/api/surveys", NewSurveyHandler(surveySvc, validation, slog.Default(), errorHandler).Routes())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/surveys", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
