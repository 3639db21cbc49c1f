package http

import (
	"errors"
	"net/http"
	"net/url"

	"datrascli/internal/datras"
	apierrors "datrascli/internal/errors"
	"datrascli/internal/services"
	"datrascli/internal/soap"
)

// mapFetchError translates service and client errors into APIErrors so
// the central handler renders the right problem type
func mapFetchError(err error) error {
	var limitErr *datras.DownloadLimitError
	if errors.As(err, &limitErr) {
		return apierrors.DownloadLimitExceeded(limitErr.Requested, limitErr.Limit)
	}

	var faultErr *soap.FaultError
	if errors.As(err, &faultErr) {
		return apierrors.NewWithDetails(http.StatusBadGateway, "UPSTREAM_FAULT",
			"The DATRAS web service reported a fault",
			map[string]string{
				"operation": faultErr.Operation,
				"reason":    faultErr.Reason,
			})
	}

	// Transport-level failures (connection refused, DNS, timeouts) carry
	// a url.Error, as opposed to faults the service itself reports
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return apierrors.ErrUpstreamUnavailable
	}

	switch {
	case errors.Is(err, services.ErrInvalidDatasetType):
		return apierrors.ErrValidation("type", "Dataset type must be one of: hh, hl, ca")
	case errors.Is(err, services.ErrInvalidExportFormat):
		return apierrors.ErrValidation("export.format", "Export format must be one of: csv, xlsx")
	case errors.Is(err, services.ErrInvalidFilename):
		return apierrors.ErrValidation("filename", "Invalid filename")
	case errors.Is(err, services.ErrExportNotFound):
		return apierrors.ErrExportNotFound
	}

	return err
}
