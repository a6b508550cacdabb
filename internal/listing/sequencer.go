package listing

import "sync/atomic"

// Sequencer hands out increasing request tokens so a slow, older response
// can be recognised and dropped
type Sequencer struct {
	issued    atomic.Uint64
	committed atomic.Uint64
}

// Begin returns the token for a new request
func (s *Sequencer) Begin() uint64 {
	return s.issued.Add(1)
}

// IsLatest reports whether token belongs to the most recently begun request
func (s *Sequencer) IsLatest(token uint64) bool {
	return s.issued.Load() == token
}

// Commit accepts a response unless a newer one was already committed
func (s *Sequencer) Commit(token uint64) bool {
	for {
		current := s.committed.Load()
		if token <= current {
			return false
		}
		if s.committed.CompareAndSwap(current, token) {
			return true
		}
	}
}
