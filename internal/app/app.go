package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"datrascli/internal/config"
	"datrascli/internal/datras"
	apierrors "datrascli/internal/errors"
	"datrascli/internal/infrastructure"
	customMiddleware "datrascli/internal/middleware"
	"datrascli/internal/services"
	handlers "datrascli/internal/transport/http"
	"datrascli/internal/worms"
	ws "datrascli/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const (
	VERSION = "1.0.0"
	AppName = "DATRAS CLI - ICES Trawl Survey Data Service"
)

// BuildTime is set at compile time via -ldflags
var BuildTime = time.Now().Format(time.RFC3339)

// Application represents the main application container
type Application struct {
	Config         *config.Config
	Router         *chi.Mux
	Server         *http.Server
	WebSocketHub   *ws.Hub
	DatrasClient   *datras.Client
	WormsClient    *worms.Client
	DatasetService *services.DatasetService
	SurveyService  *services.SurveyService
	ExportService  *services.ExportService
	HealthService  *services.HealthService
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders

	paths *config.Paths
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION))

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution()

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		paths:         paths,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to setup router: %w", err)
	}

	app.createServer()

	return app, nil
}

// initializeServices wires the DATRAS and WoRMS clients and the service layer
func (a *Application) initializeServices() error {
	a.WebSocketHub = ws.NewHub(a.Logger)

	fetchMetrics, err := infrastructure.CreateFetchMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create fetch metrics: %w", err)
	}

	a.DatrasClient = datras.NewClient(a.Config.Datras, a.Logger,
		datras.WithDownloadLimit(a.Config.Fetch.DownloadLimit),
		datras.WithMetrics(fetchMetrics))
	a.WormsClient = worms.NewClient(a.Config.Worms, a.Logger)

	a.DatasetService = services.NewDatasetService(a.DatrasClient, a.WormsClient, a.paths, a.WebSocketHub, a.Logger)
	a.SurveyService = services.NewSurveyService(a.DatrasClient, a.Logger)
	a.ExportService = services.NewExportService(a.paths, a.Logger)
	a.HealthService = services.NewHealthService(VERSION, BuildTime, a.paths, a.WebSocketHub, a.Logger)

	return nil
}

// setupRouter configures the chi router with middleware and routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create otel middleware: %w", err)
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.RequestID)
		r.Use(customMiddleware.RealIP)
		r.Use(customMiddleware.StripSlashes)
		r.Use(customMiddleware.Compress(5))
		r.Use(otelMiddleware.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.getCORSConfig()))

		a.setupAPIRoutes(r)

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/healthz", healthHandler.HealthCheck)
	})

	// WebSocket endpoint outside the timeout groups; upgraded connections
	// outlive any request timeout.
	wsHandler := handlers.NewWebSocketHandler(a.WebSocketHub, a.Logger)
	r.Get("/ws", wsHandler.ServeHTTP)

	// Prometheus metrics endpoint (outside the middleware group)
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	validation := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)

	surveyHandler := handlers.NewSurveyHandler(a.SurveyService, validation, a.Logger, errorHandler)
	datasetHandler := handlers.NewDatasetHandler(a.DatasetService, validation, a.Logger, errorHandler)
	exportHandler := handlers.NewExportHandler(a.ExportService, a.Logger, errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)

		// Catalogue lookups complete quickly; the standard timeout applies.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))
			r.Mount("/surveys", surveyHandler.Routes())
			r.Mount("/exports", exportHandler.Routes())
		})

		// Dataset downloads can run for many minutes per combination, so
		// they get the long write timeout instead.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout, a.Logger))
			r.Mount("/datasets", datasetHandler.Routes())
			r.Mount("/indices", datasetHandler.IndicesRoutes())
			r.Mount("/length-age", datasetHandler.LengthAgeRoutes())
			r.Mount("/litter", datasetHandler.LitterRoutes())
		})
	})
}

// getCORSConfig returns CORS configuration based on server settings
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	allowed := a.Config.Server.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)}
	}
	return customMiddleware.CORSConfig{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the application
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.Int("port", a.Config.Server.Port),
		slog.String("datras_endpoint", a.Config.Datras.BaseURL),
		slog.Int("download_limit", a.Config.Fetch.DownloadLimit))

	a.WebSocketHub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Context cancelled, shutting down")
	}

	return a.Stop(context.Background())
}
