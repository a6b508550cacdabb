package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vault-console/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryValidation represents client-side validation failures (4xx)
	CategoryValidation ErrorCategory = "validation"
	// CategoryTransport represents network failures talking to a backend
	CategoryTransport ErrorCategory = "transport"
	// CategoryUpstream represents non-2xx responses from a backend
	CategoryUpstream ErrorCategory = "upstream"
	// CategorySession represents an expired or rejected session
	CategorySession ErrorCategory = "session"
	// CategoryPoll represents export job polling failures
	CategoryPoll ErrorCategory = "poll"
	// CategoryNotFound represents not found errors
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryRateLimit represents rate limit errors
	CategoryRateLimit ErrorCategory = "rate_limit"
	// CategoryDatabase represents audit/event store errors
	CategoryDatabase ErrorCategory = "database"
	// CategoryCache represents cache errors
	CategoryCache ErrorCategory = "cache"
	// CategorySystem represents unexpected internal errors (5xx)
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// Validation Errors (4xx)

// NewValidationError creates a client-side validation error. The message is
// shown to the operator verbatim.
func NewValidationError(field string, message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
		Message:    message,
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "rate limit exceeded",
		Details: map[string]interface{}{
			"retryAfter": retryAfter,
		},
	}
}

// Session Errors

// NewSessionExpiredError creates the error returned after the backend rejected
// the session token
func NewSessionExpiredError(cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySession,
		StatusCode: http.StatusUnauthorized,
		Code:       "SESSION_EXPIRED",
		Message:    "Session Expired",
		Cause:      cause,
	}
}

// Backend Errors

// NewTransportError creates an error for a request that never got a response
func NewTransportError(backend string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryTransport,
		StatusCode: http.StatusBadGateway,
		Code:       "TRANSPORT_ERROR",
		Message:    fmt.Sprintf("request to %s failed", backend),
		Cause:      cause,
		Details: map[string]interface{}{
			"backend": backend,
		},
	}
}

// NewUpstreamError creates an error for a non-2xx backend response. message and
// details come from the structured error body when the backend sent one.
func NewUpstreamError(backend string, status int, message string, details interface{}) *CategorizedError {
	d := map[string]interface{}{
		"backend":        backend,
		"upstreamStatus": status,
	}
	if details != nil {
		d["details"] = details
	}

	code := http.StatusBadGateway
	if status >= 400 && status < 500 {
		code = status
	}

	return &CategorizedError{
		Category:   CategoryUpstream,
		StatusCode: code,
		Code:       "UPSTREAM_ERROR",
		Message:    message,
		Details:    d,
	}
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(service string) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusServiceUnavailable,
		Code:       "SERVICE_UNAVAILABLE",
		Message:    fmt.Sprintf("service unavailable: %s", service),
		Details: map[string]interface{}{
			"service": service,
		},
	}
}

// NewPollError creates an export polling error for the given job
func NewPollError(jobID string, code string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryPoll,
		StatusCode: http.StatusBadGateway,
		Code:       code,
		Message:    fmt.Sprintf("export job %s did not complete", jobID),
		Cause:      cause,
		Details: map[string]interface{}{
			"jobId": jobID,
		},
	}
}

// System Errors (5xx)

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       "DATABASE_ERROR",
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewCacheError creates a cache error
func NewCacheError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryCache,
		StatusCode: http.StatusInternalServerError,
		Code:       "CACHE_ERROR",
		Message:    fmt.Sprintf("cache error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if errors.As(err, &svcErr) {
		return &CategorizedError{
			Category:   CategorySystem,
			StatusCode: http.StatusInternalServerError,
			Code:       svcErr.Code,
			Message:    svcErr.Message,
			Details:    svcErr.Details,
		}
	}

	return NewInternalError("unexpected error", err)
}

// DisplayMessage turns any error into the single line shown to an operator.
// It prefers the message from a structured backend error body, then the
// error's own text, then fallback.
func DisplayMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		if catErr.Message != "" {
			return catErr.Message
		}
		if catErr.Cause != nil && catErr.Cause.Error() != "" {
			return catErr.Cause.Error()
		}
		return fallback
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRetryable determines if an error is retryable
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategoryTransport, CategoryDatabase, CategoryCache:
		return true
	case CategoryUpstream:
		return catErr.StatusCode >= 500 || catErr.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}

// IsSessionExpired reports whether err is a session expiry
func IsSessionExpired(err error) bool {
	var catErr *CategorizedError
	return errors.As(err, &catErr) && catErr.Category == CategorySession
}
