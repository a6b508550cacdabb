package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBackend = errors.New("backend 502")

func newTestBreaker(clock *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(Config{
		Name:                "test",
		ConsecutiveFailures: 3,
		Cooldown:            time.Second,
		HalfOpenProbes:      1,
	})
	cb.now = func() time.Time { return *clock }
	return cb
}

func fail() error    { return errBackend }
func succeed() error { return nil }

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(fail, nil), errBackend)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	calls := 0
	err := cb.Execute(func() error { calls++; return nil }, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls)
}

func TestCircuitBreaker_SuccessResetsStreak(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)

	_ = cb.Execute(fail, nil)
	_ = cb.Execute(fail, nil)
	_ = cb.Execute(succeed, nil)
	_ = cb.Execute(fail, nil)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_IgnoresUncountedErrors(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)
	notCounted := func(error) bool { return false }

	for i := 0; i < 5; i++ {
		_ = cb.Execute(fail, notCounted)
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(fail, nil)
	}

	clock = clock.Add(2 * time.Second)
	assert.NoError(t, cb.Execute(succeed, nil))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(fail, nil)
	}

	clock = clock.Add(2 * time.Second)
	_ = cb.Execute(fail, nil)
	assert.Equal(t, StateOpen, cb.GetState())
	assert.ErrorIs(t, cb.Execute(succeed, nil), ErrCircuitOpen)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
}
