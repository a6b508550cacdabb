package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "github.com/vault-console/internal/errors"
	"github.com/vault-console/internal/logging"
	"github.com/vault-console/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	_ = json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondServiceError logs err and renders it with the status and code of its
// category. fallback is shown when err carries no message of its own.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	cat := apperrors.Categorize(err)
	message := apperrors.DisplayMessage(err, fallback)

	logger := logging.FromContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
		"code":   cat.Code,
		"status": cat.StatusCode,
	})
	switch {
	case cat.Category == apperrors.CategorySession:
		logger.Warn("Vault session expired")
	case apperrors.IsUserError(err):
		logger.Info("Request rejected")
	default:
		logger.Error(fallback)
	}

	if cat.Category == apperrors.CategoryRateLimit {
		if retryAfter, ok := cat.Details["retryAfter"].(int); ok {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		}
	}

	// Internal failures keep their cause out of the response
	if cat.Code == "INTERNAL_ERROR" {
		message = fallback
	}
	respondError(w, cat.StatusCode, cat.Code, message, cat.Details)
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// Common error codes
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeNotReady     = "FILE_NOT_READY"
	ErrCodeInternal     = "INTERNAL_ERROR"
)
