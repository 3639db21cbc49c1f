// Package services implements the business logic layer between HTTP
// handlers and the DATRAS and WoRMS clients.
//
// Services follow these principles:
//
//	1. Context propagation for cancellation and tracing
//	2. Dependency injection for loose coupling
//	3. Domain-focused methods that encapsulate the download workflow
//
// The package provides these core services:
//
//	- DatasetService: downloads HH/HL/CA data, indices and litter output,
//	  optionally enriching species names and exporting to disk
//	- SurveyService: lists surveys, years, quarters and insert dates
//	- ExportService: lists and serves previously exported files
//	- HealthService: provides system health checks
//
// Services return domain-specific errors that handlers transform into
// RFC 7807 problem responses.
package services
