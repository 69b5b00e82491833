package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"budgeteer/internal/core"
	applog "budgeteer/internal/log"
)

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Row   int    `json:"row,omitempty"`
	Line  int    `json:"line,omitempty"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.FromContext(ctx).WithComponent(applog.ComponentHTTP).WarnContext(ctx, "Failed to write response", "error", err)
	}
}

// errorStatus maps the core error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	var (
		ve     *core.ValidationError
		pe     *core.ParseError
		maxErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.As(err, &pe):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorBody describes err to the caller. Unexpected errors are reported
// generically; their detail only goes to the log.
func errorBody(err error, status int) errorResponse {
	var (
		ve *core.ValidationError
		pe *core.ParseError
	)
	switch {
	case status == http.StatusInternalServerError:
		return errorResponse{Error: "internal server error"}
	case status == http.StatusUnauthorized:
		return errorResponse{Error: "unauthenticated"}
	case errors.As(err, &ve):
		return errorResponse{Error: ve.Error(), Field: ve.Field, Row: ve.Row}
	case errors.As(err, &pe):
		return errorResponse{Error: pe.Error(), Line: pe.Line}
	default:
		return errorResponse{Error: err.Error()}
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error, op string) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		applog.LogError(ctx, "Request failed", err, applog.ComponentHTTP, op, nil)
	} else {
		applog.FromContext(ctx).WithComponent(applog.ComponentHTTP).DebugContext(ctx, "Request rejected",
			applog.FieldOperation, op,
			applog.FieldStatusCode, status,
			applog.FieldError, err.Error())
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="budgeteer"`)
	}
	writeJSON(ctx, w, status, errorBody(err, status))
}
