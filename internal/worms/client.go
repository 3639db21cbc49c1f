// Package worms implements a client for the WoRMS Aphia web service, used
// to resolve the Aphia species codes carried by DATRAS length-frequency
// records into scientific names.
package worms

import (
	"context"
	"log/slog"
	"net/http"

	"datrascli/internal/config"
	"datrascli/internal/infrastructure"
	"datrascli/internal/soap"
	"datrascli/internal/table"
)

// Namespace is the Aphia web service XML namespace
const Namespace = "http://aphia/v1.0"

const (
	// AphiaColumn is the DATRAS column carrying the species code
	AphiaColumn = "Valid_Aphia"
	// SpeciesNameColumn is the column added by enrichment
	SpeciesNameColumn = "Species_Name"
	// UnresolvedName marks codes the service could not resolve
	UnresolvedName = "No data"
)

// Client talks to the WoRMS Aphia web service
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client, mainly for tests
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a WoRMS client for the configured endpoint
func NewClient(cfg config.WormsConfig, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	c := &Client{
		endpoint:   cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With(slog.String("component", "worms_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAphiaNameByID resolves one Aphia code into a scientific name
func (c *Client) GetAphiaNameByID(ctx context.Context, aphiaID string) (string, error) {
	data, err := soap.Call(ctx, c.httpClient, c.endpoint, Namespace, "getAphiaNameByID", []soap.Param{
		{Name: "ID", Value: aphiaID},
	})
	if err != nil {
		return "", err
	}
	return soap.ParseScalar("getAphiaNameByID", data)
}

// ResolveNames looks up each code sequentially and returns a two-column
// lookup table of code and scientific name. Lookups are best-effort: a
// failed or empty lookup yields the literal "No data" rather than an error.
func (c *Client) ResolveNames(ctx context.Context, codes []string) *table.Table {
	names := table.New()
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			break
		}

		name, err := c.GetAphiaNameByID(ctx, code)
		if err != nil {
			c.logger.WarnContext(ctx, "aphia lookup failed",
				slog.String("aphia_code", code),
				slog.String("error", err.Error()))
			name = UnresolvedName
		}
		if name == "" {
			name = UnresolvedName
		}

		names.Append(table.Row{AphiaColumn: code, SpeciesNameColumn: name})
	}
	return names
}

// Enrich resolves the distinct Valid_Aphia codes present in tbl and
// left-merges a Species_Name column onto it. Tables without the code
// column pass through unchanged.
func (c *Client) Enrich(ctx context.Context, tbl *table.Table) *table.Table {
	codes := tbl.UniqueValues(AphiaColumn)
	if len(codes) == 0 {
		return tbl
	}

	c.logger.InfoContext(ctx, "resolving aphia codes",
		slog.Int("codes", len(codes)))

	names := c.ResolveNames(ctx, codes)
	return tbl.Merge(names, AphiaColumn)
}
