package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "datrascli/internal/errors"
)

func newValidation(t *testing.T) *ValidationMiddleware {
	t.Helper()
	return NewValidationMiddleware(slog.Default(), apierrors.NewErrorHandler(slog.Default(), false))
}

func TestValidateRequest_InvalidJSON(t *testing.T) {
	m := newValidation(t)
	handler := m.ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run for invalid JSON")
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON")
}

func TestValidateRequest_PassesValidJSON(t *testing.T) {
	m := newValidation(t)
	var bodySeen string
	handler := m.ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		bodySeen = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"surveys":["NS-IBTS"]}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"surveys":["NS-IBTS"]}`, bodySeen, "body must be restored for the handler")
}

func TestValidateRequest_SkipsGet(t *testing.T) {
	m := newValidation(t)
	handler := m.ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateStruct(t *testing.T) {
	m := newValidation(t)

	type fetchRequest struct {
		Surveys  []string `json:"surveys" validate:"required,min=1,dive,survey"`
		Years    []int    `json:"years" validate:"required,min=1,dive,gte=1965"`
		Quarters []int    `json:"quarters" validate:"required,min=1,dive,gte=1,lte=4"`
	}

	valid := fetchRequest{
		Surveys:  []string{"NS-IBTS"},
		Years:    []int{2022},
		Quarters: []int{1},
	}
	assert.NoError(t, m.ValidateStruct(valid))

	invalid := fetchRequest{
		Surveys:  []string{"!"},
		Years:    []int{2022},
		Quarters: []int{5},
	}
	err := m.ValidateStruct(invalid)
	require.Error(t, err)

	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)
}

func TestContentTypeValidator(t *testing.T) {
	handler := ContentTypeValidator("application/json")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCustomValidators(t *testing.T) {
	m := newValidation(t)

	type form struct {
		Survey   string `json:"survey" validate:"omitempty,survey"`
		Date     string `json:"date" validate:"omitempty,iso8601"`
		Filename string `json:"filename" validate:"omitempty,filename"`
	}

	assert.NoError(t, m.ValidateStruct(form{Survey: "NS-IBTS"}))
	assert.Error(t, m.ValidateStruct(form{Survey: "x"}))

	assert.NoError(t, m.ValidateStruct(form{Date: "2022-03-01"}))
	assert.NoError(t, m.ValidateStruct(form{Date: "20220301"}))
	assert.Error(t, m.ValidateStruct(form{Date: "01/03/2022"}))
	assert.Error(t, m.ValidateStruct(form{Date: "2022-13-40"}))

	assert.NoError(t, m.ValidateStruct(form{Filename: "hh_data.csv"}))
	assert.Error(t, m.ValidateStruct(form{Filename: "../etc/passwd"}))
}
