package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	err := NewWithDetails(http.StatusBadRequest, "INVALID_PARAMETER", "bad limit", "limit")
	assert.Equal(t, "bad limit", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "limit", err.Details)
}

func TestProblemDetailsMarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusNotFound, TypeTableNotFound, "Table Not Found", "no such table", "/api/validation/run/foo").
		WithExtension("trace_id", "abc-123")

	raw, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, TypeTableNotFound, decoded["type"])
	assert.Equal(t, "Table Not Found", decoded["title"])
	assert.Equal(t, float64(http.StatusNotFound), decoded["status"])
	assert.Equal(t, "no such table", decoded["detail"])
	assert.Equal(t, "abc-123", decoded["trace_id"])
}

func TestMapValidationError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"unknown table", fmt.Errorf("lookup: %w", ErrUnknownTable), http.StatusNotFound, TypeTableNotFound},
		{"source down", ErrSourceUnavailable, http.StatusServiceUnavailable, TypeSourceDown},
		{"store down", ErrStoreUnavailable, http.StatusServiceUnavailable, TypeStoreDown},
		{"timeout", ErrRunTimeout, http.StatusGatewayTimeout, TypeTimeout},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem, ok := MapValidationError(tt.err, "trace-1").(*ProblemDetails)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "trace-1", problem.Extensions["trace_id"])
		})
	}
}

func newTestHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func TestErrorToProblem(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/validation/results", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"context deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"api error", TableNotFoundError("foo"), http.StatusNotFound, TypeTableNotFound},
		{"domain sentinel", fmt.Errorf("query: %w", ErrSourceUnavailable), http.StatusServiceUnavailable, TypeSourceDown},
		{"message match", errors.New("result not found"), http.StatusNotFound, TypeNotFound},
		{"fallthrough", errors.New("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := h.ErrorToProblem(tt.err, req)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
		})
	}
}

func TestHandleErrorWritesProblemJSON(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/validation/run/foo", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, TableNotFoundError("foo"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, TypeTableNotFound, decoded["type"])
	assert.Equal(t, "TABLE_NOT_FOUND", decoded["error_code"])
}

func TestHandlePanic(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/validation/tables", nil)
	rec := httptest.NewRecorder()

	h.HandlePanic(rec, req, "detector blew up")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, TypeInternal, decoded["type"])
}
