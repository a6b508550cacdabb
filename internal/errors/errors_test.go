package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vault-console/internal/types"
)

func TestDisplayMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback string
		want     string
	}{
		{
			name:     "structured body message wins",
			err:      NewUpstreamError("vault", 400, "Token already flagged", nil),
			fallback: "Failed to save tokens",
			want:     "Token already flagged",
		},
		{
			name:     "wrapped structured error",
			err:      fmt.Errorf("move token: %w", NewUpstreamError("vault", 500, "db down", nil)),
			fallback: "x",
			want:     "db down",
		},
		{
			name:     "empty body message falls back to cause",
			err:      &CategorizedError{Code: "UPSTREAM_ERROR", Cause: errors.New("connection reset")},
			fallback: "x",
			want:     "connection reset",
		},
		{
			name:     "plain error message",
			err:      errors.New("dial tcp: timeout"),
			fallback: "x",
			want:     "dial tcp: timeout",
		},
		{
			name:     "nothing usable",
			err:      &CategorizedError{Code: "UPSTREAM_ERROR"},
			fallback: "Failed to fetch holding data",
			want:     "Failed to fetch holding data",
		},
		{
			name:     "nil error",
			err:      nil,
			fallback: "fallback",
			want:     "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayMessage(tt.err, tt.fallback))
		})
	}
}

func TestNewUpstreamError_StatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, NewUpstreamError("vault", 400, "bad", nil).StatusCode)
	assert.Equal(t, http.StatusBadGateway, NewUpstreamError("vault", 503, "down", nil).StatusCode)

	err := NewUpstreamError("vault", 422, "bad chain", map[string]string{"chain": "unknown"})
	assert.Equal(t, map[string]string{"chain": "unknown"}, err.Details["details"])
}

func TestCategorize(t *testing.T) {
	assert.Nil(t, Categorize(nil))

	wrapped := fmt.Errorf("ctx: %w", NewSessionExpiredError(nil))
	assert.Equal(t, CategorySession, Categorize(wrapped).Category)

	svc := &types.ServiceError{Code: "X", Message: "y"}
	assert.Equal(t, "X", Categorize(svc).Code)

	assert.Equal(t, "INTERNAL_ERROR", Categorize(errors.New("boom")).Code)
}

func TestIsSessionExpired(t *testing.T) {
	assert.True(t, IsSessionExpired(fmt.Errorf("list: %w", NewSessionExpiredError(nil))))
	assert.False(t, IsSessionExpired(NewUpstreamError("vault", 500, "x", nil)))
	assert.False(t, IsSessionExpired(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewTransportError("vault", errors.New("eof"))))
	assert.True(t, IsRetryable(NewUpstreamError("vault", 502, "bad gateway", nil)))
	assert.False(t, IsRetryable(NewUpstreamError("vault", 400, "bad", nil)))
	assert.False(t, IsRetryable(NewValidationError("email", "Invalid email")))
	assert.True(t, IsUserError(NewValidationError("email", "Invalid email")))
}
