package session

import (
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/vault-console/internal/errors"
)

func TestState_TwoForbiddenClearOnce(t *testing.T) {
	var cleared int
	s := NewState("tok", func() { cleared++ })

	assert.ErrorIs(t, s.Check(http.StatusForbidden, "tok"), ErrSessionExpired)
	assert.ErrorIs(t, s.Check(http.StatusForbidden, "tok"), ErrSessionExpired)

	assert.Equal(t, 1, cleared)
	assert.EqualValues(t, 1, s.Expiries())
	assert.Empty(t, s.Token())
	assert.False(t, s.Active())
}

func TestState_CheckIgnoresOtherStatuses(t *testing.T) {
	s := NewState("tok", nil)
	for _, status := range []int{200, 400, 404, 500} {
		assert.NoError(t, s.Check(status, "tok"))
	}
	assert.Equal(t, "tok", s.Token())
}

func TestState_ConcurrentExpiry(t *testing.T) {
	var cleared atomic.Int32
	s := NewState("tok", func() { cleared.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Check(http.StatusUnauthorized, "tok")
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, cleared.Load())
}

func TestState_SetAfterExpiry(t *testing.T) {
	s := NewState("old", nil)
	assert.True(t, s.ExpireOnce("old"))
	assert.False(t, s.ExpireOnce("old"))

	s.Set("new")
	assert.True(t, s.Active())
	assert.True(t, s.ExpireOnce("new"))
	assert.EqualValues(t, 2, s.Expiries())
}

func TestState_LateRejectionKeepsFreshToken(t *testing.T) {
	s := NewState("old", nil)
	s.Set("fresh")

	assert.ErrorIs(t, s.Check(http.StatusUnauthorized, "old"), ErrSessionExpired)
	assert.Equal(t, "fresh", s.Token())
	assert.Zero(t, s.Expiries())

	assert.ErrorIs(t, s.Check(http.StatusUnauthorized, "fresh"), ErrSessionExpired)
	assert.Empty(t, s.Token())
	assert.EqualValues(t, 1, s.Expiries())
}

func TestErrSessionExpired_IsSessionCategory(t *testing.T) {
	assert.True(t, apperrors.IsSessionExpired(ErrSessionExpired))
	assert.Equal(t, "Session Expired", apperrors.DisplayMessage(ErrSessionExpired, "x"))
}
