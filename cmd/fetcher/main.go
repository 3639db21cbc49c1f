package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"datrascli/internal/config"
	"datrascli/internal/datras"
	"datrascli/internal/infrastructure"
	"datrascli/internal/services"
	"datrascli/internal/worms"
)

func main() {
	datasets := flag.String("dataset", "hh", "dataset type(s) to download: hh | hl | ca (comma-separated for multiple)")
	surveysFlag := flag.String("surveys", "", "survey acronyms, comma-separated (e.g. NS-IBTS,BITS)")
	yearsFlag := flag.String("years", "", "years, comma-separated (e.g. 2002,2003)")
	quartersFlag := flag.String("quarters", "", "quarters, comma-separated (e.g. 1,3)")
	outDir := flag.String("out", "", "export directory (defaults to data/exports relative to the working directory)")
	format := flag.String("format", "csv", "export format: csv | xlsx")
	translate := flag.Bool("translate-species", false, "resolve Valid_Aphia codes to scientific names via WoRMS")
	ignoreLimit := flag.Bool("ignore-limit", false, "bypass the download limit on large requests")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall timeout for the download")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		fmt.Printf("Error: Failed to initialize paths: %v\n", err)
		os.Exit(1)
	}
	if *outDir != "" {
		paths.ExportsDir = *outDir
	}
	if err := paths.EnsureDirectories(); err != nil {
		fmt.Printf("Error: Failed to create required directories: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Warning: Failed to load config, using defaults: %v\n", err)
		cfg = &config.Config{
			Datras:  config.DatrasConfig{BaseURL: "https://datras.ices.dk/WebServices/DATRASWebService.asmx", Timeout: 5 * time.Minute},
			Worms:   config.WormsConfig{BaseURL: "https://www.marinespecies.org/aphia.php?p=soap", Timeout: 30 * time.Second},
			Fetch:   config.FetchConfig{DownloadLimit: 5},
			Logging: config.LoggingConfig{Level: "info", Format: "text", Output: "console"},
		}
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Warning: Failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}

	surveys := splitCSV(*surveysFlag)
	if len(surveys) == 0 {
		fmt.Println("Error: -surveys is required (e.g. -surveys NS-IBTS)")
		flag.Usage()
		os.Exit(2)
	}
	years, err := parseInts(*yearsFlag)
	if err != nil {
		fmt.Printf("Error: invalid -years: %v\n", err)
		os.Exit(2)
	}
	if len(years) == 0 {
		fmt.Println("Error: -years is required (e.g. -years 2002,2003)")
		flag.Usage()
		os.Exit(2)
	}
	quarters, err := parseInts(*quartersFlag)
	if err != nil {
		fmt.Printf("Error: invalid -quarters: %v\n", err)
		os.Exit(2)
	}
	if len(quarters) == 0 {
		fmt.Println("Error: -quarters is required (e.g. -quarters 1,3)")
		flag.Usage()
		os.Exit(2)
	}
	if *format != services.FormatCSV && *format != services.FormatXLSX {
		fmt.Printf("Error: invalid -format %q, must be csv or xlsx\n", *format)
		os.Exit(2)
	}

	types, err := parseDatasetTypes(*datasets)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(2)
	}

	datrasClient := datras.NewClient(cfg.Datras, logger,
		datras.WithDownloadLimit(cfg.Fetch.DownloadLimit))
	wormsClient := worms.NewClient(cfg.Worms, logger)
	service := services.NewDatasetService(datrasClient, wormsClient, paths, nil, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger.InfoContext(ctx, "Starting dataset download",
		slog.String("datasets", *datasets),
		slog.Any("surveys", surveys),
		slog.Any("years", years),
		slog.Any("quarters", quarters),
		slog.Bool("translate_species", *translate),
		slog.Bool("ignore_limit", *ignoreLimit))

	summaries := make([]*services.FetchSummary, len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, typ := range types {
		g.Go(func() error {
			summary, err := service.FetchDataset(gctx, typ, services.FetchRequest{
				Surveys:          surveys,
				Years:            years,
				Quarters:         quarters,
				TranslateSpecies: *translate,
				IgnoreLimit:      *ignoreLimit,
				Export:           &services.ExportRequest{Format: *format},
			})
			if err != nil {
				return fmt.Errorf("%s: %w", typ, err)
			}
			summaries[i] = summary
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "Download failed", slog.String("error", err.Error()))
		var limitErr *datras.DownloadLimitError
		if errors.As(err, &limitErr) {
			fmt.Printf("Error: %v\n", err)
			fmt.Println("Re-run with -ignore-limit to download anyway.")
			os.Exit(3)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	for _, summary := range summaries {
		fmt.Printf("%s: %d/%d combinations downloaded, %d rows -> %s\n",
			summary.Dataset, summary.Downloaded, summary.Requested, summary.Rows, summary.ExportPath)
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range splitCSV(s) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseDatasetTypes(s string) ([]services.DatasetType, error) {
	seen := map[services.DatasetType]bool{}
	var out []services.DatasetType
	for _, part := range splitCSV(s) {
		typ := services.DatasetType(strings.ToLower(part))
		switch typ {
		case services.DatasetHH, services.DatasetHL, services.DatasetCA:
			if !seen[typ] {
				seen[typ] = true
				out = append(out, typ)
			}
		default:
			return nil, fmt.Errorf("invalid dataset type %q, must be hh, hl or ca", part)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no dataset type given, must be hh, hl or ca")
	}
	return out, nil
}
