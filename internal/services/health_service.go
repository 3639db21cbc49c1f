package services

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"datrascli/internal/config"
	ws "datrascli/internal/websocket"
)

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	paths     *config.Paths
	hub       *ws.Hub
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates a new health service with injected dependencies
func NewHealthService(version, buildTime string, paths *config.Paths, hub *ws.Hub, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		paths:     paths,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger,
	}
}

// GetHealthStatus returns the overall application health
func (s *HealthService) GetHealthStatus(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
		Runtime: map[string]interface{}{
			"go_version":     runtime.Version(),
			"os":             runtime.GOOS,
			"arch":           runtime.GOARCH,
			"goroutines":     runtime.NumGoroutine(),
			"uptime_seconds": time.Since(s.startTime).Seconds(),
		},
		Services: map[string]interface{}{},
	}

	if s.buildTime != "" {
		status.Runtime["build_time"] = s.buildTime
	}

	if s.hub != nil {
		status.Services["websocket"] = map[string]interface{}{
			"status":  "healthy",
			"clients": s.hub.ClientCount(),
		}
	}

	exports := map[string]interface{}{"status": "healthy", "path": s.paths.ExportsDir}
	if _, err := os.Stat(s.paths.ExportsDir); err != nil {
		exports["status"] = "degraded"
		exports["message"] = err.Error()
		status.Status = "degraded"
	}
	status.Services["exports"] = exports

	return status
}
