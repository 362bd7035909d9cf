package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Domain sentinel errors surfaced by the validation service.
var (
	ErrUnknownTable      = errors.New("unknown table")
	ErrSourceUnavailable = errors.New("table source unavailable")
	ErrStoreUnavailable  = errors.New("result store unavailable")
	ErrRunTimeout        = errors.New("validation run timed out")
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// MapValidationError maps validation domain errors to HTTP problem details.
func MapValidationError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/validation#trace-%s", traceID)

	switch {
	case errors.Is(err, ErrUnknownTable):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeTableNotFound,
			"Table Not Found",
			"The requested table is not registered for validation.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "TABLE_NOT_FOUND")

	case errors.Is(err, ErrSourceUnavailable):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeSourceDown,
			"Table Source Unavailable",
			"Unable to read table rows from the configured source. Please try again later.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "SOURCE_UNAVAILABLE")

	case errors.Is(err, ErrStoreUnavailable):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeStoreDown,
			"Result Store Unavailable",
			"Unable to read validation results from the result store.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "STORE_UNAVAILABLE")

	case errors.Is(err, ErrRunTimeout):
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Validation Run Timeout",
			"The validation run took too long and was cancelled.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "RUN_TIMEOUT")

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
