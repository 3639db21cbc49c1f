package services

import "errors"

// Service layer errors
var (
	// Dataset errors
	ErrInvalidDatasetType = errors.New("invalid dataset type")

	// Export errors
	ErrExportNotFound      = errors.New("export not found")
	ErrInvalidExportFormat = errors.New("invalid export format")
	ErrInvalidFilename     = errors.New("invalid filename")
)
