// Common helper functions for HTTP handlers.

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/biograph-io/nodenorm/pkg/errors"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// writeError writes a detail-string error response.
func writeError(w http.ResponseWriter, statusCode int, msg string) {
	writeJSON(w, statusCode, ErrorResponse{Detail: msg})
}

// writeAppError maps application-level errors to HTTP status codes. Internal
// causes are masked.
func writeAppError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(errors.GetCode(err))
	if status >= http.StatusInternalServerError {
		writeError(w, status, "Error occurred during processing.")
		return
	}
	writeError(w, status, err.Error())
}

// ValidationDetail is one entry of a 422 response body.
type ValidationDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// writeValidationError writes a 422 with structured field locations.
func writeValidationError(w http.ResponseWriter, details ...ValidationDetail) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string][]ValidationDetail{
		"detail": details,
	})
}

// minItemsDetail is the rejection for an empty required list parameter.
func minItemsDetail(loc ...string) ValidationDetail {
	return ValidationDetail{
		Loc:  loc,
		Msg:  "ensure this value has at least 1 items",
		Type: "value_error.list.min_items",
	}
}

// queryBool parses a boolean query parameter, falling back to a default when
// absent or malformed.
func queryBool(r *http.Request, name string, def bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
