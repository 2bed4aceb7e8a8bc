package rest

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// WriteError maps application errors to HTTP responses. Server-side failures
// are logged with the underlying cause, which never reaches the body.
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	statusCode := application.ToHTTPStatus(err)

	response := ErrorResponse{
		Success: false,
		Message: application.ToMessage(err),
		Code:    application.ToErrorCode(err),
	}
	if svcErr, ok := application.IsServiceError(err); ok {
		response.Details = svcErr.Details
	}

	if statusCode >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "code", response.Code, "error", err)
	}

	WriteJSON(w, statusCode, response)
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads a JSON request body into dst. Any decode failure is a
// validation error.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return application.NewValidationError("Request body is required", nil)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return application.NewValidationError("Invalid request body", err)
	}
	return nil
}
