package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/formbridge/formbridge/internal/domain"
)

// ErrorResponse is the standard error body. Successful responses carry
// endpoint-specific shapes; only errors share a common envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error"`
}

// Error represents an API error
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// JSONError writes a JSON error response
func JSONError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	JSON(w, status, ErrorResponse{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// ErrorFromDomain converts a domain error to an HTTP response.
func ErrorFromDomain(w http.ResponseWriter, err error) {
	if appErr, ok := domain.AsAppError(err); ok {
		var details map[string]any
		if len(appErr.Metadata) > 0 {
			details = appErr.Metadata
		}
		JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, details)
		return
	}

	JSONError(w, http.StatusInternalServerError, domain.ErrCodeInternal, "Internal server error", nil)
}

// DecodeJSON decodes JSON from request body
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return domain.ErrValidationField("body", "request body is required")
	}

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(v); err != nil {
		return domain.ErrValidationField("body", "invalid JSON: "+err.Error())
	}

	return nil
}
