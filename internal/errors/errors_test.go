package errors

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	err := New(http.StatusNotFound, "DATASET_NOT_FOUND", "no data")

	assert.Equal(t, "no data", err.Error())
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "DATASET_NOT_FOUND", err.ErrorCode)
	assert.Nil(t, err.Details)
}

func TestNewWithDetails(t *testing.T) {
	details := []ValidationError{{Field: "surveys", Message: "required"}}
	err := NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "bad request", details)

	assert.Equal(t, details, err.Details)
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("quarters", "must be between 1 and 4")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	require.IsType(t, []ValidationError{}, err.Details)
	fields := err.Details.([]ValidationError)
	require.Len(t, fields, 1)
	assert.Equal(t, "quarters", fields[0].Field)
}

func TestDownloadLimitExceeded(t *testing.T) {
	err := DownloadLimitExceeded(12, 5)

	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	assert.Equal(t, "DOWNLOAD_LIMIT_EXCEEDED", err.ErrorCode)
	assert.Equal(t, map[string]int{"requested": 12, "limit": 5}, err.Details)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(
		http.StatusUnprocessableEntity,
		TypeDownloadLimit,
		"Unprocessable Entity",
		"Requested combinations exceed the download limit",
		"/api/datasets/hl",
	).WithExtension("requested", 12).WithExtension("trace_id", "abc")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, TypeDownloadLimit, decoded["type"])
	assert.Equal(t, float64(http.StatusUnprocessableEntity), decoded["status"])
	assert.Equal(t, "/api/datasets/hl", decoded["instance"])
	assert.Equal(t, float64(12), decoded["requested"])
	assert.Equal(t, "abc", decoded["trace_id"])
}

func TestProblemDetails_OmitsEmptyFields(t *testing.T) {
	problem := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "detail")
	assert.NotContains(t, decoded, "instance")
}
