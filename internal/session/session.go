// Package session holds the operator's vault auth token and clears it once
// when the vault rejects it.
package session

import (
	"net/http"
	"sync/atomic"

	apperrors "github.com/vault-console/internal/errors"
	"github.com/vault-console/internal/logging"
)

// ErrSessionExpired is the rejection returned for any 401/403 from the vault
var ErrSessionExpired = apperrors.NewSessionExpiredError(nil)

// State is the shared auth state. It is safe for concurrent use.
type State struct {
	token    atomic.Pointer[string]
	expiries atomic.Int64
	onExpire func()
}

// NewState creates a session holding token. onExpire, when set, runs after
// the token has been cleared.
func NewState(token string, onExpire func()) *State {
	s := &State{onExpire: onExpire}
	s.token.Store(&token)
	return s
}

// Token returns the current token, empty once the session has expired
func (s *State) Token() string {
	if p := s.token.Load(); p != nil {
		return *p
	}
	return ""
}

// Set installs a fresh token after a new login
func (s *State) Set(token string) {
	s.token.Store(&token)
}

// Active reports whether a token is held
func (s *State) Active() bool {
	return s.Token() != ""
}

// ExpireOnce clears the token if it is still used, the token the failing
// request sent. A late rejection of an older token leaves a fresh one alone.
// It reports whether this call performed the clear.
func (s *State) ExpireOnce(used string) bool {
	current := s.token.Load()
	if current == nil || *current == "" || *current != used {
		return false
	}

	empty := ""
	if !s.token.CompareAndSwap(current, &empty) {
		return false
	}

	s.expiries.Add(1)
	logging.GetGlobalLogger().Component("session").Warn("Session expired, auth token cleared")
	if s.onExpire != nil {
		s.onExpire()
	}
	return true
}

// Expiries returns how many times the token has been cleared
func (s *State) Expiries() int64 {
	return s.expiries.Load()
}

// IsAuthFailure reports whether an HTTP status means the session was rejected
func IsAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// Check converts an auth failure status of a request sent with used into
// ErrSessionExpired, clearing the token on the first occurrence. Other
// statuses return nil.
func (s *State) Check(status int, used string) error {
	if !IsAuthFailure(status) {
		return nil
	}
	s.ExpireOnce(used)
	return ErrSessionExpired
}
