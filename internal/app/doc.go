// Package app wires the application together: configuration, logging,
// OpenTelemetry, the DATRAS and WoRMS SOAP clients, the service layer,
// HTTP routing and the WebSocket hub.
//
// The Application container owns the full lifecycle:
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := app.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// NewApplication builds everything in dependency order (config, logger,
// paths, telemetry, clients, services, router, server); Run starts the
// HTTP server and WebSocket hub and blocks until SIGINT or SIGTERM, then
// shuts down gracefully within the configured timeout.
package app
