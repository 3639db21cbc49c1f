package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"datrascli/internal/config"
	"datrascli/internal/datras"
	"datrascli/internal/exporter"
	"datrascli/internal/table"
	"datrascli/internal/worms"
	ws "datrascli/internal/websocket"
)

// DatasetType identifies one of the DATRAS record exchange formats
type DatasetType string

const (
	DatasetHH DatasetType = "hh"
	DatasetHL DatasetType = "hl"
	DatasetCA DatasetType = "ca"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// FetchRequest describes a dataset download across survey, year and
// quarter dimensions
type FetchRequest struct {
	Surveys          []string
	Years            []int
	Quarters         []int
	TranslateSpecies bool
	IgnoreLimit      bool
	Export           *ExportRequest
}

// IndicesRequest describes an abundance indices download
type IndicesRequest struct {
	Surveys     []string
	Years       []int
	Quarters    []int
	Species     []int
	IgnoreLimit bool
	Export      *ExportRequest
}

// LengthAgeRequest describes a length-age summary download across
// country and year dimensions
type LengthAgeRequest struct {
	Countries   []string
	Years       []int
	IgnoreLimit bool
	Export      *ExportRequest
}

// LitterRequest describes a litter assessment output download
type LitterRequest struct {
	Surveys     []string
	Years       []int
	Quarters    []int
	IgnoreLimit bool
	Export      *ExportRequest
}

// InsertDateRequest describes a survey insert date lookup
type InsertDateRequest struct {
	Surveys     []string
	Years       []int
	Quarters    []int
	Ships       []string
	Countries   []string
	IgnoreLimit bool
}

// ExportRequest asks for the downloaded table to be written to disk
type ExportRequest struct {
	Format   string
	Filename string
}

// FetchSummary is the result of a dataset download
type FetchSummary struct {
	Dataset    string       `json:"dataset"`
	Requested  int          `json:"requested"`
	Downloaded int          `json:"downloaded"`
	Rows       int          `json:"rows"`
	ExportPath string       `json:"export_path,omitempty"`
	Data       *table.Table `json:"data"`
}

// DatasetService orchestrates DATRAS downloads, species name enrichment
// and export
type DatasetService struct {
	datras *datras.Client
	worms  *worms.Client
	csv    *exporter.CSVWriter
	excel  *exporter.ExcelWriter
	hub    *ws.Hub
	logger *slog.Logger
}

// NewDatasetService creates a new dataset service with injected dependencies.
// The hub may be nil when no progress broadcasting is wanted.
func NewDatasetService(dc *datras.Client, wc *worms.Client, paths *config.Paths, hub *ws.Hub, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetService{
		datras: dc,
		worms:  wc,
		csv:    exporter.NewCSVWriter(paths.ExportsDir),
		excel:  exporter.NewExcelWriter(paths.ExportsDir),
		hub:    hub,
		logger: logger,
	}
}

// FetchDataset downloads one of the HH, HL or CA datasets for every
// combination of the requested surveys, years and quarters
func (s *DatasetService) FetchDataset(ctx context.Context, typ DatasetType, req FetchRequest) (*FetchSummary, error) {
	var fetch func(context.Context, []string, []int, []int, datras.FetchOptions) (*datras.FetchResult, error)
	switch typ {
	case DatasetHH:
		fetch = s.datras.GetHHData
	case DatasetHL:
		fetch = s.datras.GetHLData
	case DatasetCA:
		fetch = s.datras.GetCAData
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDatasetType, typ)
	}

	dataset := string(typ)
	result, err := fetch(ctx, req.Surveys, req.Years, req.Quarters, s.fetchOptions(dataset, req.IgnoreLimit))
	if err != nil {
		s.broadcastError(dataset, err)
		return nil, err
	}

	data := result.Data
	if req.TranslateSpecies && s.worms != nil {
		data = s.worms.Enrich(ctx, data)
	}

	return s.finish(ctx, dataset, data, result, req.Export)
}

// FetchIndices downloads abundance indices, optionally filtered by
// species Aphia codes
func (s *DatasetService) FetchIndices(ctx context.Context, req IndicesRequest) (*FetchSummary, error) {
	result, err := s.datras.GetIndices(ctx, req.Surveys, req.Years, req.Quarters, req.Species, s.fetchOptions("indices", req.IgnoreLimit))
	if err != nil {
		s.broadcastError("indices", err)
		return nil, err
	}
	return s.finish(ctx, "indices", result.Data, result, req.Export)
}

// FetchLengthAgeSummary downloads the length-age summary for every
// combination of the requested countries and years
func (s *DatasetService) FetchLengthAgeSummary(ctx context.Context, req LengthAgeRequest) (*FetchSummary, error) {
	result, err := s.datras.GetLengthAgeSummary(ctx, req.Countries, req.Years, s.fetchOptions("length-age", req.IgnoreLimit))
	if err != nil {
		s.broadcastError("length-age", err)
		return nil, err
	}
	return s.finish(ctx, "length-age", result.Data, result, req.Export)
}

// FetchLitter downloads litter assessment output
func (s *DatasetService) FetchLitter(ctx context.Context, req LitterRequest) (*FetchSummary, error) {
	result, err := s.datras.GetLitterAssessmentOutput(ctx, req.Surveys, req.Years, req.Quarters, s.fetchOptions("litter", req.IgnoreLimit))
	if err != nil {
		s.broadcastError("litter", err)
		return nil, err
	}
	return s.finish(ctx, "litter", result.Data, result, req.Export)
}

// FetchLitterByUpdateDate downloads litter assessment output for one
// date of calculation
func (s *DatasetService) FetchLitterByUpdateDate(ctx context.Context, dateOfCalculation string, export *ExportRequest) (*FetchSummary, error) {
	tbl, err := s.datras.GetLitterAssessmentOutputByUpdateDate(ctx, dateOfCalculation)
	if err != nil {
		s.broadcastError("litter", err)
		return nil, err
	}
	result := &datras.FetchResult{Data: tbl, Requested: 1, Downloaded: 1}
	if tbl.Len() == 0 {
		result.Downloaded = 0
	}
	return s.finish(ctx, "litter", tbl, result, export)
}

// ListDatesOfCalculation returns the available litter assessment
// calculation dates
func (s *DatasetService) ListDatesOfCalculation(ctx context.Context) (*table.Table, error) {
	return s.datras.GetListOfDatesOfCalculation(ctx)
}

// fetchOptions wires websocket progress broadcasting into the download loop
func (s *DatasetService) fetchOptions(dataset string, ignoreLimit bool) datras.FetchOptions {
	opts := datras.FetchOptions{IgnoreLimit: ignoreLimit}
	if s.hub != nil {
		opts.Progress = func(done, total int, combo datras.Combination, err error) {
			s.hub.BroadcastFetchProgress(dataset, done, total, combo.String(), err != nil)
		}
	}
	return opts
}

func (s *DatasetService) broadcastError(dataset string, err error) {
	if s.hub != nil {
		s.hub.BroadcastError(dataset, err.Error())
	}
}

// finish assembles the summary, runs the optional export and announces
// completion
func (s *DatasetService) finish(ctx context.Context, dataset string, data *table.Table, result *datras.FetchResult, export *ExportRequest) (*FetchSummary, error) {
	summary := &FetchSummary{
		Dataset:    dataset,
		Requested:  result.Requested,
		Downloaded: result.Downloaded,
		Rows:       data.Len(),
		Data:       data,
	}

	if export != nil && data.Len() > 0 {
		path, err := s.export(dataset, data, export)
		if err != nil {
			s.logger.ErrorContext(ctx, "export failed",
				slog.String("dataset", dataset),
				slog.String("error", err.Error()))
			s.broadcastError(dataset, err)
			return nil, err
		}
		summary.ExportPath = path
	}

	if s.hub != nil {
		s.hub.BroadcastFetchComplete(dataset, summary.Requested, summary.Downloaded, summary.Rows)
	}

	s.logger.InfoContext(ctx, "dataset fetch finished",
		slog.String("dataset", dataset),
		slog.Int("requested", summary.Requested),
		slog.Int("downloaded", summary.Downloaded),
		slog.Int("rows", summary.Rows))

	return summary, nil
}

func (s *DatasetService) export(dataset string, data *table.Table, export *ExportRequest) (string, error) {
	filename := export.Filename
	switch export.Format {
	case FormatCSV, "":
		if filename == "" {
			filename = defaultExportName(dataset, FormatCSV)
		}
		return s.csv.WriteTable(filename, data, exporter.WriteOptions{BOMPrefix: true})
	case FormatXLSX:
		if filename == "" {
			filename = defaultExportName(dataset, FormatXLSX)
		}
		return s.excel.WriteTable(filename, dataset, data)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidExportFormat, export.Format)
	}
}

func defaultExportName(dataset, format string) string {
	return fmt.Sprintf("%s_%s.%s", dataset, time.Now().Format("20060102_150405"), format)
}
