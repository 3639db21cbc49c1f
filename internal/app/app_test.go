package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datrascli/internal/config"
	"datrascli/internal/infrastructure"
)

func newFakeDatrasServer(t *testing.T, records []map[string]string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := strings.Trim(r.Header.Get("SOAPAction"), `"`)
		operation := action[strings.LastIndex(action, "/")+1:]
		io.Copy(io.Discard, r.Body)

		var sb strings.Builder
		sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
		sb.WriteString(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`)
		fmt.Fprintf(&sb, `<%sResponse xmlns="ices.dk.local/DATRAS"><%sResult>`, operation, operation)
		for _, record := range records {
			sb.WriteString("<Record>")
			for field, value := range record {
				fmt.Fprintf(&sb, "<%s>%s</%s>", field, value, field)
			}
			sb.WriteString("</Record>")
		}
		fmt.Fprintf(&sb, `</%sResult></%sResponse></soap:Body></soap:Envelope>`, operation, operation)

		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.Write([]byte(sb.String()))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApplication(t *testing.T, datrasURL string) *Application {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	paths := config.GetPathsWithBase(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:            0,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     30 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 5 * time.Second,
			AllowedOrigins:  []string{"http://localhost:8080"},
		},
		Datras:  config.DatrasConfig{BaseURL: datrasURL, Timeout: 5 * time.Second},
		Worms:   config.WormsConfig{BaseURL: datrasURL, Timeout: 5 * time.Second},
		Fetch:   config.FetchConfig{DownloadLimit: 5},
		Logging: config.LoggingConfig{Level: "error", Format: "json", Output: "console"},
	}

	providers, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    infrastructure.ServiceName,
		ServiceVersion: VERSION,
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "none",
	}, logger)
	require.NoError(t, err)

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		paths:         paths,
	}
	require.NoError(t, app.initializeServices())
	require.NoError(t, app.setupRouter())
	app.createServer()

	return app
}

func TestApplication_HealthEndpoint(t *testing.T) {
	app := newTestApplication(t, "http://127.0.0.1:1")

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, VERSION, body["version"])
}

func TestApplication_SurveyListThroughRouter(t *testing.T) {
	datras := newFakeDatrasServer(t, []map[string]string{
		{"Survey": "NS-IBTS"},
		{"Survey": "BITS"},
	})
	app := newTestApplication(t, datras.URL)

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/surveys")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(2), body["count"])
}

func TestApplication_APINotFound(t *testing.T) {
	app := newTestApplication(t, "http://127.0.0.1:1")

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/problem+json")
}

func TestApplication_SecurityHeaders(t *testing.T) {
	app := newTestApplication(t, "http://127.0.0.1:1")

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestApplication_RequestIDPropagation(t *testing.T) {
	app := newTestApplication(t, "http://127.0.0.1:1")

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "app-test-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "app-test-42", resp.Header.Get("X-Request-ID"))
}

func TestApplication_TrailingSlashStripped(t *testing.T) {
	app := newTestApplication(t, "http://127.0.0.1:1")

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApplication_GzipResponses(t *testing.T) {
	datras := newFakeDatrasServer(t, []map[string]string{
		{"Survey": "NS-IBTS"},
	})
	app := newTestApplication(t, datras.URL)

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/surveys", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
}

func TestApplication_GetCORSConfigFallback(t *testing.T) {
	app := newTestApplication(t, "http://127.0.0.1:1")
	app.Config.Server.AllowedOrigins = nil
	app.Config.Server.Port = 9090

	cfg := app.getCORSConfig()
	assert.Equal(t, []string{"http://localhost:9090"}, cfg.AllowedOrigins)
}

func TestApplication_CreateServer(t *testing.T) {
	app := newTestApplication(t, "http://127.0.0.1:1")

	require.NotNil(t, app.Server)
	assert.Equal(t, fmt.Sprintf(":%d", app.Config.Server.Port), app.Server.Addr)
	assert.Equal(t, app.Config.Server.ReadTimeout, app.Server.ReadTimeout)
	assert.Equal(t, app.Config.Server.WriteTimeout, app.Server.WriteTimeout)
}

func TestApplication_StopWithoutStart(t *testing.T) {
	app := newTestApplication(t, "http://127.0.0.1:1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Stop(ctx))
}
