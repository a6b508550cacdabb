package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vault-console/internal/errors"
)

func fastConfig() *Config {
	return &Config{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, Multiplier: 2}
}

func TestDelay(t *testing.T) {
	cfg := &Config{InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, Delay(cfg, 1))
	assert.Equal(t, 2*time.Second, Delay(cfg, 2))
	assert.Equal(t, 4*time.Second, Delay(cfg, 3))
	assert.Equal(t, 5*time.Second, Delay(cfg, 4))
}

func TestWithExponentialBackoff_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	result := WithExponentialBackoff(context.Background(), fastConfig(), func(_ context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, calls)
	assert.NoError(t, result.LastError)
}

func TestWithExponentialBackoff_GivesUp(t *testing.T) {
	boom := errors.New("boom")
	err := Do(context.Background(), fastConfig(), func(context.Context, int) error { return boom })

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "after 4 attempts")
}

func TestWithExponentialBackoff_StopsOnPermanentError(t *testing.T) {
	cfg := fastConfig()
	cfg.Retryable = apperrors.IsRetryable

	calls := 0
	result := WithExponentialBackoff(context.Background(), cfg, func(context.Context, int) error {
		calls++
		return apperrors.NewValidationError("chain", "unsupported")
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, calls)

	calls = 0
	result = WithExponentialBackoff(context.Background(), cfg, func(context.Context, int) error {
		calls++
		return apperrors.NewTransportError("vault", errors.New("reset"))
	})
	assert.Equal(t, cfg.MaxAttempts, calls)
}

func TestWithExponentialBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2}

	result := WithExponentialBackoff(ctx, cfg, func(context.Context, int) error {
		cancel()
		return errors.New("down")
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.ErrorIs(t, result.LastError, context.Canceled)
}
