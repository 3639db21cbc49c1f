package datras

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"datrascli/internal/config"
	"datrascli/internal/infrastructure"
	"datrascli/internal/soap"
	"datrascli/internal/table"
)

// Namespace is the DATRAS web service XML namespace
const Namespace = "ices.dk.local/DATRAS"

// DefaultDownloadLimit caps multi-dataset downloads unless overridden
const DefaultDownloadLimit = 5

// ProgressFunc receives one callback per attempted combination. done is the
// number of combinations attempted so far including this one.
type ProgressFunc func(done, total int, combo Combination, err error)

// FetchOptions adjusts the behavior of a single multi-dataset fetch
type FetchOptions struct {
	// IgnoreLimit disables the download-count limit for this call
	IgnoreLimit bool
	// Progress, when set, is invoked after each combination is attempted
	Progress ProgressFunc
}

// FetchResult is the outcome of a multi-dataset fetch: the concatenated
// table plus how many of the requested combinations actually produced data
type FetchResult struct {
	Data       *table.Table
	Requested  int
	Downloaded int
}

// Client talks to the ICES/CIEM DATRAS web service
type Client struct {
	endpoint      string
	httpClient    *http.Client
	downloadLimit int
	logger        *slog.Logger
	metrics       *infrastructure.FetchMetrics
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client, mainly for tests
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithDownloadLimit sets the maximum number of combinations a single fetch
// may expand to
func WithDownloadLimit(limit int) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.downloadLimit = limit
		}
	}
}

// WithMetrics attaches fetch instruments to the client
func WithMetrics(m *infrastructure.FetchMetrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a DATRAS client for the configured endpoint
func NewClient(cfg config.DatrasConfig, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	c := &Client{
		endpoint:      cfg.BaseURL,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		downloadLimit: DefaultDownloadLimit,
		logger:        logger.With(slog.String("component", "datras_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DownloadLimit returns the configured combination cap
func (c *Client) DownloadLimit() int {
	return c.downloadLimit
}

// GetHHData downloads haul metadata for every combination of the given
// surveys, years, and quarters
func (c *Client) GetHHData(ctx context.Context, surveys []string, years, quarters []int, opts FetchOptions) (*FetchResult, error) {
	combos := expandSurveyYearQuarter(surveys, years, quarters)
	return c.fetchCombinations(ctx, "getHHdata", combos, opts)
}

// GetHLData downloads length-frequency records for every combination of
// the given surveys, years, and quarters. HL datasets are the bulkiest the
// service offers, so the download limit matters most here.
func (c *Client) GetHLData(ctx context.Context, surveys []string, years, quarters []int, opts FetchOptions) (*FetchResult, error) {
	combos := expandSurveyYearQuarter(surveys, years, quarters)
	return c.fetchCombinations(ctx, "getHLdata", combos, opts)
}

// GetCAData downloads age-based records for every combination of the given
// surveys, years, and quarters
func (c *Client) GetCAData(ctx context.Context, surveys []string, years, quarters []int, opts FetchOptions) (*FetchResult, error) {
	combos := expandSurveyYearQuarter(surveys, years, quarters)
	return c.fetchCombinations(ctx, "getCAdata", combos, opts)
}

// GetSurveyInsertDate reports when datasets matching the given surveys,
// years, quarters, ships, and countries were loaded into DATRAS
func (c *Client) GetSurveyInsertDate(ctx context.Context, surveys []string, years, quarters []int, ships, countries []string, opts FetchOptions) (*FetchResult, error) {
	combos := expandInsertDate(surveys, years, quarters, ships, countries)
	return c.fetchCombinations(ctx, "getSurveyInsertDate", combos, opts)
}

// GetIndices downloads abundance indices for every combination of the
// given surveys, years, quarters, and Aphia species codes
func (c *Client) GetIndices(ctx context.Context, surveys []string, years, quarters, species []int, opts FetchOptions) (*FetchResult, error) {
	combos := expandIndices(surveys, years, quarters, species)
	return c.fetchCombinations(ctx, "getIndices", combos, opts)
}

// GetLitterAssessmentOutput downloads litter assessment units for every
// combination of the given surveys, years, and quarters
func (c *Client) GetLitterAssessmentOutput(ctx context.Context, surveys []string, years, quarters []int, opts FetchOptions) (*FetchResult, error) {
	combos := expandSurveyYearQuarter(surveys, years, quarters)
	return c.fetchCombinations(ctx, "getLitterAssessmentOutput", combos, opts)
}

// GetLengthAgeSummary downloads the length-age summary for every
// combination of the given countries and years
func (c *Client) GetLengthAgeSummary(ctx context.Context, countries []string, years []int, opts FetchOptions) (*FetchResult, error) {
	combos := expandCountryYear(countries, years)
	return c.fetchCombinations(ctx, "getLengthAgeSummary", combos, opts)
}

// GetSurveyYearQuarterList reports which quarters hold data for every
// combination of the given surveys and years
func (c *Client) GetSurveyYearQuarterList(ctx context.Context, surveys []string, years []int, opts FetchOptions) (*FetchResult, error) {
	combos := expandSurveyYear(surveys, years)
	return c.fetchCombinations(ctx, "getSurveyYearQuarterList", combos, opts)
}

// GetSurveyYearList reports which years hold data for each of the given
// surveys. The per-survey inventory is small, so no download limit applies.
func (c *Client) GetSurveyYearList(ctx context.Context, surveys []string) (*FetchResult, error) {
	combos := make([]Combination, 0, len(surveys))
	for _, survey := range surveys {
		combos = append(combos, Combination{
			Survey: survey,
			dims:   []soap.Param{{Name: "survey", Value: survey}},
		})
	}
	return c.fetchCombinations(ctx, "getSurveyYearList", combos, FetchOptions{IgnoreLimit: true})
}

// GetSurveyList downloads the names of all surveys held in DATRAS
func (c *Client) GetSurveyList(ctx context.Context) (*table.Table, error) {
	return c.single(ctx, "getSurveyList", nil)
}

// GetListOfDatesOfCalculation downloads the dates on which data products
// were calculated
func (c *Client) GetListOfDatesOfCalculation(ctx context.Context) (*table.Table, error) {
	return c.single(ctx, "getListofDateofCalculation", nil)
}

// GetLitterAssessmentOutputByUpdateDate downloads litter assessment units
// calculated on the given date (YYYYMMDD)
func (c *Client) GetLitterAssessmentOutputByUpdateDate(ctx context.Context, dateOfCalculation string) (*table.Table, error) {
	return c.single(ctx, "getLitterAssessmentOutputByUpdateDate", []soap.Param{
		{Name: "dateofcalculation", Value: dateOfCalculation},
	})
}

// single issues one call and returns its trimmed table
func (c *Client) single(ctx context.Context, operation string, params []soap.Param) (*table.Table, error) {
	tbl, err := c.callTimed(ctx, operation, params)
	if err != nil {
		return nil, err
	}
	tbl.TrimStrings()

	c.logger.InfoContext(ctx, "dataset downloaded",
		slog.String("operation", operation),
		slog.Int("rows", tbl.Len()))
	return tbl, nil
}

// fetchCombinations runs the sequential best-effort download loop. Each
// combination is independently failable: an error is logged and counted
// but never aborts the remaining combinations. Only context cancellation
// stops the loop early.
func (c *Client) fetchCombinations(ctx context.Context, operation string, combos []Combination, opts FetchOptions) (*FetchResult, error) {
	requested := len(combos)

	if !opts.IgnoreLimit && requested > c.downloadLimit {
		c.logger.WarnContext(ctx, "download limit exceeded",
			slog.String("operation", operation),
			slog.Int("requested", requested),
			slog.Int("limit", c.downloadLimit))
		return nil, &DownloadLimitError{Limit: c.downloadLimit, Requested: requested}
	}

	if c.metrics != nil {
		c.metrics.CombinationsExpanded.Add(ctx, int64(requested))
	}

	result := &FetchResult{Data: table.New(), Requested: requested}

	for i, combo := range combos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tbl, err := c.callTimed(ctx, operation, combo.Params())
		if err != nil {
			c.logger.WarnContext(ctx, "dataset download failed",
				slog.String("operation", operation),
				slog.String("combination", combo.String()),
				slog.String("error", err.Error()))
		} else if tbl.Len() > 0 {
			result.Data.AppendTable(tbl)
			result.Downloaded++
		}

		if opts.Progress != nil {
			opts.Progress(i+1, requested, combo, err)
		}
	}

	result.Data.TrimStrings()

	c.logger.InfoContext(ctx, "datasets downloaded",
		slog.String("operation", operation),
		slog.Int("downloaded", result.Downloaded),
		slog.Int("requested", requested),
		slog.Int("rows", result.Data.Len()))

	return result, nil
}

// callTimed wraps call with duration metrics
func (c *Client) callTimed(ctx context.Context, operation string, params []soap.Param) (*table.Table, error) {
	start := time.Now()
	tbl, err := c.call(ctx, operation, params)

	rows := 0
	if tbl != nil {
		rows = tbl.Len()
	}
	c.metrics.RecordFetch(ctx, operation, time.Since(start), rows, err)
	return tbl, err
}

func (c *Client) call(ctx context.Context, operation string, params []soap.Param) (*table.Table, error) {
	data, err := soap.Call(ctx, c.httpClient, c.endpoint, Namespace, operation, params)
	if err != nil {
		return nil, err
	}
	return soap.ParseRecords(operation, data)
}
